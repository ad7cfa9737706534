package format

import "github.com/ginjaninja78/packing-list-ingest/internal/xmltree"

// Dialect identifies one of the supported input structures.
type Dialect string

const (
	Tabular        Dialect = "tabular"
	ERPRecord      Dialect = "erp-record"
	SpreadsheetXML Dialect = "spreadsheet-xml"
)

// Detect inspects an XML root and returns its dialect.
//
// A record/field root is either a <record> with <field> children, or any root
// whose direct <record> child has <field> children. A Workbook root is a
// <Workbook> with a <Worksheet> child. Anything else is an
// *UnknownFormatError. This is a single structural check, not a score.
func Detect(root *xmltree.Node) (Dialect, error) {
	if root == nil {
		return "", &UnknownFormatError{}
	}

	if RecordRoot(root) != nil {
		return ERPRecord, nil
	}
	if root.Name == "Workbook" && root.HasChild("Worksheet") {
		return SpreadsheetXML, nil
	}

	return "", &UnknownFormatError{Root: root.Name}
}

// RecordRoot returns the top-level <record> carrying the field list, or nil.
func RecordRoot(root *xmltree.Node) *xmltree.Node {
	if root == nil {
		return nil
	}
	if root.Name == "record" && root.HasChild("field") {
		return root
	}
	for _, rec := range root.ChildrenNamed("record") {
		if rec.HasChild("field") {
			return rec
		}
	}
	return nil
}
