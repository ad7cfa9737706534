// =============================================================================
// Packing List Ingest - Tabular Parser
// =============================================================================
//
// PARSING PIPELINE:
//   1. Validate that every anchor label and the item header row exist
//   2. Find all parcel-start rows (first cell starts with "Parcel No.")
//   3. Split the grid into segments [start, nextStart)
//   4. For each segment:
//      a. Extract header fields via the rule table (rules.go)
//      b. Extract From/To from the nearest "shipper" header/value row pair
//      c. Detect the item type from the "Containing:" block
//      d. Extract item rows using the segment's own header row
//
// A structurally valid grid with no parcel-start rows yields one default
// record, never zero records.
//
// =============================================================================

package tabular

import (
	"strings"

	"github.com/ginjaninja78/packing-list-ingest/internal/canonical"
	"github.com/ginjaninja78/packing-list-ingest/internal/format"
	"github.com/ginjaninja78/packing-list-ingest/internal/grid"
	"github.com/ginjaninja78/packing-list-ingest/internal/model"
)

// segment is a half-open row range describing one parcel.
type segment struct {
	start int
	end   int
}

// Parse converts a grid into canonical payloads.
//
// PARAMETERS:
//   - g: The grid produced by the grid reader.
//   - b: The canonical builder used for quantities, dates and warnings.
//
// RETURNS:
//   - One payload per segment, in document order.
//   - A *format.FormatValidationError when anchors or columns are missing.
func Parse(g grid.Grid, b *canonical.Builder) ([]model.Payload, error) {
	if err := Validate(g); err != nil {
		return nil, err
	}

	segments := findSegments(g)
	if len(segments) == 0 {
		b.Logger().Debug().Msg("no parcel-start rows found, emitting default record")
		return model.DefaultPayloads(), nil
	}

	payloads := make([]model.Payload, 0, len(segments))
	for _, seg := range segments {
		payloads = append(payloads, parseSegment(g, seg, b))
	}
	return payloads, nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the grid for the anchor labels and the item header row.
// It runs before any row is interpreted.
func Validate(g grid.Grid) error {
	var missing []string

	for _, a := range requiredAnchors {
		if findCell(g, a.match) < 0 {
			missing = append(missing, a.label)
		}
	}

	if findHeaderRow(g) < 0 {
		missing = append(missing, requiredColumns...)
	}

	if len(missing) > 0 {
		return &format.FormatValidationError{
			Dialect: format.Tabular,
			Missing: missing,
		}
	}
	return nil
}

// findCell returns the first row holding a cell that matches, or -1.
func findCell(g grid.Grid, match matcher) int {
	for r := range g {
		if rowMatches(g, r, match) {
			return r
		}
	}
	return -1
}

// findHeaderRow returns the first row whose cells include every required
// column name, or -1.
func findHeaderRow(g grid.Grid) int {
	for r := range g {
		if len(resolveColumns(g, r, requiredColumns)) == len(requiredColumns) {
			return r
		}
	}
	return -1
}

// =============================================================================
// SEGMENTATION
// =============================================================================

// findSegments returns one segment per parcel-start row.
func findSegments(g grid.Grid) []segment {
	var starts []int
	for r := range g {
		if isParcelMarker(g.Text(r, 0)) {
			starts = append(starts, r)
		}
	}

	segments := make([]segment, len(starts))
	for i, start := range starts {
		end := len(g)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		segments[i] = segment{start: start, end: end}
	}
	return segments
}

// parseSegment builds the payload for one segment.
func parseSegment(g grid.Grid, seg segment, b *canonical.Builder) model.Payload {
	parcel := model.NewParcel()

	for _, rule := range headerRules {
		value := applyHeaderRule(g, seg.start, rule)
		switch rule.field {
		case fieldPurchaseOrder:
			parcel.PurchaseOrderNumber = value
		case fieldPackingList:
			parcel.PackingListNumber = value
		}
	}

	parcel.ParcelFrom, parcel.ParcelTo = extractFromTo(g, seg.start)

	parcelNo := parcelIdentifier(g, seg.start)
	parcel.TotalNumberOfParcels = canonical.ParseParcelCount(parcelNo)
	parcel.ItemType = extractItemType(g, seg)

	payload := model.NewPayload(parcel)
	for _, item := range extractItems(g, seg, parcelNo, b) {
		payload.AddItem(item)
	}

	b.Logger().Debug().
		Str("parcel_no", parcelNo).
		Int("row", seg.start+1).
		Int("items", len(payload.ParcelItems)).
		Msg("parsed tabular segment")

	return payload
}

// =============================================================================
// HEADER EXTRACTION
// =============================================================================

// applyHeaderRule scans upward from start for the rule's anchor and reads the
// value at the rule's offset.
func applyHeaderRule(g grid.Grid, start int, rule headerRule) *string {
	for r := start; r >= 0; r-- {
		for c := 0; c < g.Width(r); c++ {
			text := g.Text(r, c)
			if !rule.match(text) {
				continue
			}

			col := rule.colOffset
			if rule.fromAnchor {
				col += c
			}
			if v := canonical.TrimPtr(g.Cell(r+rule.rowOffset, col)); v != nil {
				return v
			}
			if rule.inline {
				return canonical.TrimOrNil(afterLabel(text, rule.label))
			}
			return nil
		}
	}
	return nil
}

// extractFromTo reads the shipper/dispatch header row at or above start and
// the value row beneath it.
func extractFromTo(g grid.Grid, start int) (from, to *string) {
	for r := start; r >= 0; r-- {
		if !rowMatches(g, r, isShipperRow) {
			continue
		}
		for c := 0; c < g.Width(r); c++ {
			header := strings.ToLower(g.Text(r, c))
			switch {
			case strings.HasPrefix(header, ShipperColumn):
				from = canonical.TrimPtr(g.Cell(r+1, c))
			case strings.HasPrefix(header, DispatchColumn):
				to = canonical.TrimPtr(g.Cell(r+1, c))
			}
		}
		return from, to
	}
	return nil, nil
}

// parcelIdentifier returns the parcel range label from the start row, e.g.
// "1 to 5" from "Parcel No.: 1 to 5". When the marker cell holds only the
// label, the next cell is used.
func parcelIdentifier(g grid.Grid, start int) string {
	if id := afterLabel(g.Text(start, 0), ParcelMarker); id != "" {
		return id
	}
	return g.Text(start, 1)
}

// extractItemType scans the segment for a "Containing:" row. The two rows
// below it are a label row and a value row; the first column marked "x" under
// a cc/dg/cs label wins.
func extractItemType(g grid.Grid, seg segment) model.ItemType {
	for r := seg.start; r < seg.end; r++ {
		if !rowMatches(g, r, isContaining) {
			continue
		}
		labels, values := r+1, r+2
		for c := 0; c < g.Width(values); c++ {
			if !strings.EqualFold(g.Text(values, c), ItemTypeMarkValue) {
				continue
			}
			if t, ok := model.ParseItemType(strings.ToLower(g.Text(labels, c))); ok {
				return t
			}
		}
		return model.ItemTypeRegular
	}
	return model.ItemTypeRegular
}

// =============================================================================
// ITEM EXTRACTION
// =============================================================================

// extractItems reads the item table that follows the segment-start row.
// The table ends at a row with an empty first cell or at the "Containing:"
// block, whichever comes first.
func extractItems(g grid.Grid, seg segment, parcelNo string, b *canonical.Builder) []model.ParcelItem {
	weight, volume := extractWeightVolume(g, seg.start)

	headerRow := seg.start + 1
	cols := resolveColumns(g, headerRow, itemColumns)
	codeCol, ok := cols[ColumnCode]
	if !ok {
		b.Logger().Warn().Int("row", headerRow+1).Msg("no item header row after parcel start, segment has no items")
		return nil
	}

	cell := func(r int, name string) *string {
		c, ok := cols[name]
		if !ok {
			return nil
		}
		return canonical.TrimPtr(g.Cell(r, c))
	}

	var items []model.ParcelItem
	for r := headerRow + 1; r < seg.end; r++ {
		if g.Cell(r, 0) == nil || rowMatches(g, r, isContaining) {
			break
		}

		code := canonical.TrimPtr(g.Cell(r, codeCol))
		if code == nil {
			continue
		}

		items = append(items, model.ParcelItem{
			ParcelNo:        parcelNo,
			ProductQuantity: b.Quantity(ColumnTotalQty, cell(r, ColumnTotalQty), nil),
			BatchNumber:     cell(r, ColumnBatch),
			ExpiryDate:      b.Date(ColumnExpiryDate, cell(r, ColumnExpiryDate)),
			Weight:          weight,
			Volume:          volume,
			Product: model.Product{
				ProductCode:        code,
				ProductDescription: cell(r, ColumnDescription),
			},
		})
	}
	return items
}

// extractWeightVolume pattern-matches the free-text cells of the start row.
func extractWeightVolume(g grid.Grid, start int) (weight, volume *string) {
	for c := 0; c < g.Width(start); c++ {
		text := g.Text(start, c)
		if weight == nil {
			if m := totalWeightPattern.FindStringSubmatch(text); m != nil {
				weight = canonical.TrimOrNil(m[1])
			}
		}
		if volume == nil {
			if m := totalVolumePattern.FindStringSubmatch(text); m != nil {
				volume = canonical.TrimOrNil(m[1])
			}
		}
	}
	return weight, volume
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// resolveColumns maps each wanted column name found in row r to its index.
// Names match case-insensitively after trimming; the first occurrence wins.
func resolveColumns(g grid.Grid, r int, wanted []string) map[string]int {
	cols := make(map[string]int, len(wanted))
	for c := 0; c < g.Width(r); c++ {
		text := g.Text(r, c)
		for _, name := range wanted {
			if _, seen := cols[name]; seen {
				continue
			}
			if strings.EqualFold(text, name) {
				cols[name] = c
			}
		}
	}
	return cols
}

// rowMatches reports whether any cell of row r matches.
func rowMatches(g grid.Grid, r int, match matcher) bool {
	for c := 0; c < g.Width(r); c++ {
		if match(g.Text(r, c)) {
			return true
		}
	}
	return false
}
