// =============================================================================
// Packing List Ingest - Tabular Anchor Rules
// =============================================================================
//
// Tabular packing lists have no fixed schema. Header values are located by
// scanning for anchor labels, then reading a cell at a fixed offset from the
// anchor. The quirks of the layout live in the tables below so that the
// segmentation code never needs to know where a value sits.
//
// LAYOUT (one segment):
//
//   | PACKING LIST          |              |                  |
//   | PL-2025-001           |              |                  |
//   | Our Ref.:             | PO-001       |                  |
//   | Shipper: Warehouse    | Dispatch: To |                  |
//   | Hamburg               | Rotterdam    |                  |
//   | Parcel No.: 1 to 5    | Total weight 12.5 | Total volume 0.3 |
//   | Code                  | Description  | Total Qty.  | Batch | Exp. Date |
//   | ABC                   | Gloves       | 7.000 PCE   | B1    | 2026-01-31 |
//   |                       | Total        | 7                |
//   | Containing:           |              |                  |
//   | cc                    | dg           | cs               |
//   |                       |              | x                |
//
// =============================================================================

package tabular

import (
	"regexp"
	"strings"
)

// =============================================================================
// ANCHOR MATCHERS
// =============================================================================

// matcher reports whether a trimmed cell text is an anchor label.
type matcher func(text string) bool

func prefixFold(label string) matcher {
	label = strings.ToLower(label)
	return func(text string) bool {
		return strings.HasPrefix(strings.ToLower(text), label)
	}
}

func containsFold(label string) matcher {
	label = strings.ToLower(label)
	return func(text string) bool {
		return strings.Contains(strings.ToLower(text), label)
	}
}

// Anchor labels.
const (
	ParcelMarker      = "Parcel No."
	OurRefLabel       = "Our Ref."
	PackingListLabel  = "PACKING LIST"
	ShipperToken      = "shipper"
	ContainingToken   = "Containing:"
	ShipperColumn     = "shipper:"
	DispatchColumn    = "dispatch:"
	ItemTypeMarkValue = "x"
)

var (
	isParcelMarker = prefixFold(ParcelMarker)
	isOurRef       = containsFold(OurRefLabel)
	isPackingList  = containsFold(PackingListLabel)
	isShipperRow   = containsFold(ShipperToken)
	isContaining   = containsFold(ContainingToken)
)

// requiredAnchors must each match at least one cell of the grid.
var requiredAnchors = []struct {
	label string
	match matcher
}{
	{label: ParcelMarker, match: isParcelMarker},
	{label: OurRefLabel, match: isOurRef},
	{label: PackingListLabel, match: isPackingList},
}

// =============================================================================
// ITEM COLUMNS
// =============================================================================

// Item table column names, matched case-insensitively against the header row.
const (
	ColumnCode        = "Code"
	ColumnDescription = "Description"
	ColumnTotalQty    = "Total Qty."
	ColumnBatch       = "Batch"
	ColumnExpiryDate  = "Exp. Date"
)

// requiredColumns must appear together in one header row of the grid.
var requiredColumns = []string{ColumnCode, ColumnDescription, ColumnTotalQty}

// itemColumns are resolved to indices from the header row of each segment.
var itemColumns = []string{ColumnCode, ColumnDescription, ColumnTotalQty, ColumnBatch, ColumnExpiryDate}

// =============================================================================
// HEADER RULES
// =============================================================================

// headerField names a Parcel field filled by a headerRule.
type headerField int

const (
	fieldPurchaseOrder headerField = iota
	fieldPackingList
)

// headerRule locates one parcel header value.
//
// The anchor is searched from the segment start upward (start row included).
// The value is read at rowOffset rows below the anchor row. When fromAnchor is
// set the column is anchorCol+colOffset, otherwise it is colOffset itself.
// With inline set, a missing value falls back to the text after the label in
// the anchor cell ("Our Ref.: PO-1").
type headerRule struct {
	field      headerField
	label      string
	match      matcher
	rowOffset  int
	colOffset  int
	fromAnchor bool
	inline     bool
}

var headerRules = []headerRule{
	{
		field:      fieldPurchaseOrder,
		label:      OurRefLabel,
		match:      isOurRef,
		rowOffset:  0,
		colOffset:  1,
		fromAnchor: true,
		inline:     true,
	},
	{
		field:     fieldPackingList,
		label:     PackingListLabel,
		match:     isPackingList,
		rowOffset: 1,
		colOffset: 0,
	},
}

// =============================================================================
// FREE-TEXT PATTERNS
// =============================================================================

var (
	totalWeightPattern = regexp.MustCompile(`(?i)total\s+weight\s*:?\s*(\d+(?:[.,]\d+)?)`)
	totalVolumePattern = regexp.MustCompile(`(?i)total\s+volume\s*:?\s*(\d+(?:[.,]\d+)?)`)
)

// labelPatterns match anchor labels case-insensitively inside cell text.
var labelPatterns = map[string]*regexp.Regexp{
	OurRefLabel:  labelPattern(OurRefLabel),
	ParcelMarker: labelPattern(ParcelMarker),
}

func labelPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label))
}

// afterLabel returns the text following label in text, with a leading colon
// and surrounding space removed. The match is case-insensitive and offsets
// always refer to text itself.
func afterLabel(text, label string) string {
	re, ok := labelPatterns[label]
	if !ok {
		re = labelPattern(label)
	}
	loc := re.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	rest := strings.TrimSpace(text[loc[1]:])
	rest = strings.TrimPrefix(rest, ":")
	return strings.TrimSpace(rest)
}
