// =============================================================================
// Packing List Ingest - Spreadsheet-XML Parser
// =============================================================================
//
// Spreadsheet 2003 XML exports carry one purchase order per workbook. Rows are
// read from the first Worksheet's Table and classified one at a time:
//
//   row 0          | PO number:  | PO-001 |
//   parcel row     | #           | qty | from | to | weight | volume | packing list |
//   item row       | 1           | code | description | qty | unit | batch | expiry |
//
// A "#" row closes the current parcel and opens the next. Rows whose first
// cell is a plain integer belong to the open parcel. Everything else is
// ignored.
//
// =============================================================================

package ssxml

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ginjaninja78/packing-list-ingest/internal/canonical"
	"github.com/ginjaninja78/packing-list-ingest/internal/format"
	"github.com/ginjaninja78/packing-list-ingest/internal/model"
	"github.com/ginjaninja78/packing-list-ingest/internal/xmltree"
)

// ParcelMarker is the first cell of a parcel row.
const ParcelMarker = "#"

var itemIndexPattern = regexp.MustCompile(`^\d+$`)

// Parse converts a Workbook tree into canonical payloads.
//
// PARAMETERS:
//   - root: The decoded <Workbook> element.
//   - b: The canonical builder used for quantities, dates and warnings.
//
// RETURNS:
//   - One payload per "#" row, in document order. A workbook without a PO
//     number in row 0 yields none.
//   - A *format.FormatValidationError when no Worksheet/Table exists.
func Parse(root *xmltree.Node, b *canonical.Builder) ([]model.Payload, error) {
	rows, err := Rows(root)
	if err != nil {
		return nil, err
	}

	var po *string
	if len(rows) > 0 {
		po = PurchaseOrderNumber(rows[0])
	}

	m := NewMachine(po, b)
	for _, row := range rows[min(1, len(rows)):] {
		m.Feed(row)
	}
	return m.Finish(), nil
}

// PurchaseOrderNumber reads cell 1 of the first row, without a trailing colon.
func PurchaseOrderNumber(row []*string) *string {
	if len(row) < 2 || row[1] == nil {
		return nil
	}
	return canonical.TrimOrNil(strings.TrimSuffix(strings.TrimSpace(*row[1]), ":"))
}

// =============================================================================
// ROW READING
// =============================================================================

// Rows returns the cells of the first worksheet's table as positional rows.
// A cell's ss:Index attribute (1-based) moves it to that column; the gap is
// filled with nil cells.
func Rows(root *xmltree.Node) ([][]*string, error) {
	table := root.Child("Worksheet").Child("Table")
	if table == nil {
		missing := []string{"Table"}
		if !root.HasChild("Worksheet") {
			missing = []string{"Worksheet", "Table"}
		}
		return nil, &format.FormatValidationError{
			Dialect: format.SpreadsheetXML,
			Missing: missing,
		}
	}

	var rows [][]*string
	for _, row := range table.ChildrenNamed("Row") {
		var cells []*string
		for _, cell := range row.ChildrenNamed("Cell") {
			if idx, ok := cellIndex(cell); ok && idx > len(cells) {
				cells = append(cells, make([]*string, idx-len(cells))...)
			}
			cells = append(cells, canonical.TrimOrNil(cell.Child("Data").InnerText()))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// cellIndex returns the zero-based column from ss:Index.
func cellIndex(cell *xmltree.Node) (int, bool) {
	raw, ok := cell.Attr("Index")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 0, false
	}
	return n - 1, true
}

// =============================================================================
// ROW STATE MACHINE
// =============================================================================

// State is the position of the Machine relative to a parcel.
type State int

const (
	// Outside means no parcel row has been seen yet.
	Outside State = iota
	// Inside means item rows are attached to the open parcel.
	Inside
)

// Machine classifies rows into parcels and items.
//
// The open parcel is only appended to the output by flush, which runs on the
// next parcel row and on Finish. Parcels are emitted only when the workbook
// has a PO number.
type Machine struct {
	po      *string
	builder *canonical.Builder

	state    State
	current  model.Payload
	parcelNo string
	weight   *string
	volume   *string

	out []model.Payload
}

// NewMachine creates a Machine for a workbook's PO number.
func NewMachine(po *string, b *canonical.Builder) *Machine {
	return &Machine{po: po, builder: b}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Feed classifies one row.
func (m *Machine) Feed(row []*string) {
	first := ""
	if len(row) > 0 {
		first = canonical.Value(row[0])
	}

	switch {
	case first == ParcelMarker:
		m.flush()
		m.open(row)
	case m.state == Inside && itemIndexPattern.MatchString(first):
		m.addItem(row)
	}
}

// Finish flushes the open parcel and returns every emitted payload.
func (m *Machine) Finish() []model.Payload {
	m.flush()
	return m.out
}

func (m *Machine) open(row []*string) {
	parcel := model.NewParcel()
	parcel.PurchaseOrderNumber = m.po
	parcel.TotalNumberOfParcels = canonical.ParseCount(cell(row, 1))
	parcel.ParcelFrom = cell(row, 2)
	parcel.ParcelTo = cell(row, 3)
	parcel.PackingListNumber = cell(row, 6)

	m.current = model.NewPayload(parcel)
	m.parcelNo = canonical.ParcelRange(parcel.ParcelFrom, parcel.ParcelTo)
	m.weight = cell(row, 4)
	m.volume = cell(row, 5)
	m.state = Inside
}

func (m *Machine) addItem(row []*string) {
	code := cell(row, 1)
	if code == nil {
		return
	}

	m.current.AddItem(model.ParcelItem{
		ParcelNo:        m.parcelNo,
		ProductQuantity: m.builder.Quantity("quantity", cell(row, 3), cell(row, 4)),
		BatchNumber:     cell(row, 5),
		ExpiryDate:      m.builder.Date("expiry", cell(row, 6)),
		Weight:          m.weight,
		Volume:          m.volume,
		Product: model.Product{
			ProductCode:        code,
			ProductDescription: cell(row, 2),
		},
	})
}

// flush emits the open parcel and returns to Outside.
func (m *Machine) flush() {
	if m.state != Inside {
		return
	}
	if m.po != nil {
		m.out = append(m.out, m.current)
	} else {
		m.builder.Logger().Warn().Str("parcel_no", m.parcelNo).Msg("workbook has no PO number, parcel dropped")
	}
	m.current = model.Payload{}
	m.state = Outside
}

// cell returns the trimmed cell at i, or nil.
func cell(row []*string, i int) *string {
	if i >= len(row) {
		return nil
	}
	return canonical.TrimPtr(row[i])
}
