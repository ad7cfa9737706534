package tabular

import (
	"fmt"
	"testing"

	"github.com/ginjaninja78/packing-list-ingest/internal/canonical"
	"github.com/ginjaninja78/packing-list-ingest/internal/format"
	"github.com/ginjaninja78/packing-list-ingest/internal/grid"
	"github.com/ginjaninja78/packing-list-ingest/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func header() [][]string {
	return [][]string{
		{"PACKING LIST"},
		{"PL-2025-001"},
		{"Our Ref.:", "PO-001"},
		{"Shipper: Warehouse", "Dispatch: Customer"},
		{"Hamburg", "Rotterdam"},
	}
}

func firstSegment() [][]string {
	return [][]string{
		{"Parcel No.: 1 to 5", "Total weight 12.5 kg", "Total volume 0.3"},
		{"Pos.", "Code", "Description", "Total Qty.", "Batch", "Exp. Date"},
		{"1", "ABC", "Gloves", "7.000 PCE", "B1", "2026-01-31"},
		{"2", "", "No code", "1 PCE"},
		{"3", "DEF", "Masks", "12.500 KG", "B2", "garbage"},
		{"", "Total", "20"},
		{"Containing:"},
		{"cc", "dg", "cs"},
		{"", "", "x"},
	}
}

func secondSegment() [][]string {
	return [][]string{
		{"Parcel No.: 6", "Total weight 3"},
		{"Pos.", "Code", "Description", "Total Qty."},
		{"1", "XYZ", "Tape", "2 ROL"},
	}
}

func build(parts ...[][]string) grid.Grid {
	var rows [][]string
	for _, p := range parts {
		rows = append(rows, p...)
	}
	return grid.FromStrings(rows)
}

func builder() *canonical.Builder {
	return canonical.NewBuilder(zerolog.Nop())
}

func TestParse_SingleSegment(t *testing.T) {
	payloads, err := Parse(build(header(), firstSegment()), builder())
	require.NoError(t, err)
	require.Len(t, payloads, 1)

	p := payloads[0].Parcel
	assert.Equal(t, "PO-001", *p.PurchaseOrderNumber)
	assert.Equal(t, "PL-2025-001", *p.PackingListNumber)
	assert.Equal(t, "Hamburg", *p.ParcelFrom)
	assert.Equal(t, "Rotterdam", *p.ParcelTo)
	assert.Equal(t, 5, p.TotalNumberOfParcels)
	assert.Equal(t, model.ItemTypeCS, p.ItemType)

	items := payloads[0].ParcelItems
	require.Len(t, items, 2, "row without a code is dropped")

	assert.Equal(t, "1 to 5", items[0].ParcelNo)
	assert.Equal(t, "ABC", *items[0].Product.ProductCode)
	assert.Equal(t, "Gloves", *items[0].Product.ProductDescription)
	assert.Equal(t, "7 PCE", *items[0].ProductQuantity)
	assert.Equal(t, "B1", *items[0].BatchNumber)
	assert.Equal(t, "2026-01-31", *items[0].ExpiryDate)
	assert.Equal(t, "12.5", *items[0].Weight)
	assert.Equal(t, "0.3", *items[0].Volume)

	assert.Equal(t, "DEF", *items[1].Product.ProductCode)
	assert.Equal(t, "12.5 KG", *items[1].ProductQuantity)
	assert.Nil(t, items[1].ExpiryDate, "unparseable date degrades to null")
	assert.Equal(t, "12.5", *items[1].Weight)
}

func TestParse_MultipleSegments(t *testing.T) {
	payloads, err := Parse(build(header(), firstSegment(), secondSegment()), builder())
	require.NoError(t, err)
	require.Len(t, payloads, 2)

	second := payloads[1]
	assert.Equal(t, "PO-001", *second.Parcel.PurchaseOrderNumber)
	assert.Equal(t, 1, second.Parcel.TotalNumberOfParcels)
	assert.Equal(t, model.ItemTypeRegular, second.Parcel.ItemType, "Containing: block belongs to the first segment")

	require.Len(t, second.ParcelItems, 1)
	assert.Equal(t, "6", second.ParcelItems[0].ParcelNo)
	assert.Equal(t, "2 ROL", *second.ParcelItems[0].ProductQuantity)
	assert.Equal(t, "3", *second.ParcelItems[0].Weight)
	assert.Nil(t, second.ParcelItems[0].Volume)
	assert.Nil(t, second.ParcelItems[0].BatchNumber, "missing optional column")

	assert.NotEqual(t, payloads[0].ParcelItems[0].ParcelNo, second.ParcelItems[0].ParcelNo)
}

func TestParse_OutputLengthMatchesSegmentCount(t *testing.T) {
	for n := 1; n <= 4; n++ {
		t.Run(fmt.Sprintf("%d segments", n), func(t *testing.T) {
			parts := [][][]string{header()}
			for i := 1; i <= n; i++ {
				parts = append(parts, [][]string{
					{fmt.Sprintf("Parcel No.: %d", i)},
					{"Code", "Description", "Total Qty."},
					{fmt.Sprintf("P%d", i), "Item", "1 PCE"},
				})
			}

			payloads, err := Parse(build(parts...), builder())
			require.NoError(t, err)
			require.Len(t, payloads, n)

			seen := map[string]bool{}
			for _, p := range payloads {
				require.Len(t, p.ParcelItems, 1)
				seen[p.ParcelItems[0].ParcelNo] = true
			}
			assert.Len(t, seen, n)
		})
	}
}

func TestParse_NoSegmentsYieldsDefaultRecord(t *testing.T) {
	g := build(header(), [][]string{
		{"Remarks", "Parcel No. list attached separately"},
		{"Code", "Description", "Total Qty."},
	})

	payloads, err := Parse(g, builder())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultPayloads(), payloads)
}

func TestParse_ItemType(t *testing.T) {
	tests := []struct {
		name     string
		labels   []string
		values   []string
		expected model.ItemType
	}{
		{name: "cs marked", labels: []string{"cc", "dg", "cs"}, values: []string{"", "", "x"}, expected: model.ItemTypeCS},
		{name: "uppercase mark", labels: []string{"cc", "dg", "cs"}, values: []string{"X", "", ""}, expected: model.ItemTypeCC},
		{name: "first match wins", labels: []string{"cc", "dg", "cs"}, values: []string{"", "x", "x"}, expected: model.ItemTypeDG},
		{name: "unknown label ignored", labels: []string{"zz", "dg"}, values: []string{"x", ""}, expected: model.ItemTypeRegular},
		{name: "nothing marked", labels: []string{"cc", "dg", "cs"}, values: []string{"-", "-", "-"}, expected: model.ItemTypeRegular},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := build(header(), [][]string{
				{"Parcel No.: 1"},
				{"Code", "Description", "Total Qty."},
				{"ABC", "Item", "1"},
				{"Containing:"},
				tt.labels,
				tt.values,
			})

			payloads, err := Parse(g, builder())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, payloads[0].Parcel.ItemType)
		})
	}
}

func TestParse_NoContainingBlock(t *testing.T) {
	payloads, err := Parse(build(header(), secondSegment()), builder())
	require.NoError(t, err)
	assert.Equal(t, model.ItemTypeRegular, payloads[0].Parcel.ItemType)
}

func TestParse_InlineOurRefAndReversedShipperColumns(t *testing.T) {
	g := build([][]string{
		{"PACKING LIST"},
		{"PL-9"},
		{"Our Ref.: PO-9"},
		{"Dispatch: Customer", "Shipper: Warehouse"},
		{"Lyon", "Paris"},
		{"Parcel No.", "2 to 3"},
		{"Code", "Description", "Total Qty."},
		{"ABC", "Item", "1"},
	})

	payloads, err := Parse(g, builder())
	require.NoError(t, err)

	p := payloads[0].Parcel
	assert.Equal(t, "PO-9", *p.PurchaseOrderNumber)
	assert.Equal(t, "Paris", *p.ParcelFrom)
	assert.Equal(t, "Lyon", *p.ParcelTo)
	assert.Equal(t, 3, p.TotalNumberOfParcels)
	assert.Equal(t, "2 to 3", payloads[0].ParcelItems[0].ParcelNo)
}

func TestAfterLabel(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		label    string
		expected string
	}{
		{name: "colon", text: "Our Ref.: PO-9", label: OurRefLabel, expected: "PO-9"},
		{name: "case folded", text: "OUR REF. PO-9", label: OurRefLabel, expected: "PO-9"},
		{name: "no value", text: "Our Ref.:", label: OurRefLabel, expected: ""},
		{name: "absent", text: "Reference", label: OurRefLabel, expected: ""},
		{name: "runes shrinking when lowered", text: "İSTANBUL İZMİR Our Ref.: PO-9", label: OurRefLabel, expected: "PO-9"},
		{name: "runes growing when lowered", text: "ȺȺȺȺȺȺȺȺȺȺ Our Ref.:", label: OurRefLabel, expected: ""},
		{name: "parcel marker", text: "Parcel No.: 1 to 5", label: ParcelMarker, expected: "1 to 5"},
		{name: "other label", text: "Packing List 7", label: PackingListLabel, expected: "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, afterLabel(tt.text, tt.label))
		})
	}
}

func TestParse_InlineOurRefWithNonASCIIPrefix(t *testing.T) {
	tests := []struct {
		name     string
		ourRef   string
		expected *string
	}{
		{name: "shrinking runes", ourRef: "İSTANBUL İZMİR Our Ref.: PO-9", expected: model.StringPtr("PO-9")},
		{name: "growing runes", ourRef: "ȺȺȺȺȺȺȺȺȺȺ Our Ref.:", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := build([][]string{
				{"PACKING LIST"},
				{"PL-9"},
				{tt.ourRef},
				{"Parcel No.: 1"},
				{"Code", "Description", "Total Qty."},
				{"ABC", "Item", "1"},
			})

			var payloads []model.Payload
			require.NotPanics(t, func() {
				var err error
				payloads, err = Parse(g, builder())
				require.NoError(t, err)
			})
			require.Len(t, payloads, 1)
			assert.Equal(t, tt.expected, payloads[0].Parcel.PurchaseOrderNumber)
		})
	}
}

func TestParse_MissingAnchors(t *testing.T) {
	tests := []struct {
		name    string
		rows    [][]string
		missing []string
	}{
		{
			name: "no packing list",
			rows: [][]string{
				{"Our Ref.:", "PO-1"},
				{"Parcel No.: 1"},
				{"Code", "Description", "Total Qty."},
			},
			missing: []string{PackingListLabel},
		},
		{
			name: "no our ref",
			rows: [][]string{
				{"PACKING LIST"},
				{"Parcel No.: 1"},
				{"Code", "Description", "Total Qty."},
			},
			missing: []string{OurRefLabel},
		},
		{
			name: "no parcel marker",
			rows: [][]string{
				{"PACKING LIST"},
				{"Our Ref.:", "PO-1"},
				{"Code", "Description", "Total Qty."},
			},
			missing: []string{ParcelMarker},
		},
		{
			name: "incomplete header row",
			rows: [][]string{
				{"PACKING LIST"},
				{"Our Ref.:", "PO-1"},
				{"Parcel No.: 1"},
				{"Code", "Description"},
				{"Total Qty."},
			},
			missing: []string{ColumnCode, ColumnDescription, ColumnTotalQty},
		},
		{
			name:    "empty grid",
			rows:    nil,
			missing: []string{ParcelMarker, OurRefLabel, PackingListLabel, ColumnCode, ColumnDescription, ColumnTotalQty},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(grid.FromStrings(tt.rows), builder())

			var fve *format.FormatValidationError
			require.ErrorAs(t, err, &fve)
			assert.Equal(t, format.Tabular, fve.Dialect)
			assert.Equal(t, tt.missing, fve.Missing)
		})
	}
}

func TestParse_SegmentWithoutItemHeader(t *testing.T) {
	g := build(header(), [][]string{
		{"Parcel No.: 1"},
		{"no header here"},
		{"Parcel No.: 2"},
		{"Code", "Description", "Total Qty."},
		{"ABC", "Item", "4"},
	})

	payloads, err := Parse(g, builder())
	require.NoError(t, err)
	require.Len(t, payloads, 2)
	assert.Empty(t, payloads[0].ParcelItems)
	assert.NotNil(t, payloads[0].ParcelItems)
	assert.Len(t, payloads[1].ParcelItems, 1)
}
