package format

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ginjaninja78/packing-list-ingest/internal/xmltree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		expected Dialect
		root     string
	}{
		{
			name:     "bare record root",
			doc:      `<record><field name="origin">PO-1</field></record>`,
			expected: ERPRecord,
		},
		{
			name:     "wrapped record",
			doc:      `<odoo><record model="stock.picking"><field name="origin">PO-1</field></record></odoo>`,
			expected: ERPRecord,
		},
		{
			name:     "workbook",
			doc:      `<Workbook xmlns="urn:schemas-microsoft-com:office:spreadsheet"><Worksheet><Table/></Worksheet></Workbook>`,
			expected: SpreadsheetXML,
		},
		{
			name: "record without fields",
			doc:  `<record><other/></record>`,
			root: "record",
		},
		{
			name: "workbook without worksheet",
			doc:  `<Workbook><Styles/></Workbook>`,
			root: "Workbook",
		},
		{
			name: "unrelated root",
			doc:  `<invoice><line/></invoice>`,
			root: "invoice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := xmltree.Parse([]byte(tt.doc))
			require.NoError(t, err)

			got, err := Detect(root)
			if tt.expected != "" {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, got)
				return
			}

			var ufe *UnknownFormatError
			require.ErrorAs(t, err, &ufe)
			assert.Equal(t, tt.root, ufe.Root)
		})
	}
}

func TestErrors_SurviveWrapping(t *testing.T) {
	err := fmt.Errorf("parse tabular: %w", &FormatValidationError{
		Dialect: Tabular,
		Missing: []string{"PACKING LIST", "Code"},
	})

	var fve *FormatValidationError
	require.True(t, errors.As(err, &fve))
	assert.Equal(t, []string{"PACKING LIST", "Code"}, fve.Missing)
	assert.Contains(t, err.Error(), "missing PACKING LIST, Code")

	assert.Contains(t, (&UnsupportedContentTypeError{ContentType: "image/png"}).Error(), "image/png")
}
