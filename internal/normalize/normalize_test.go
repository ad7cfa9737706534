package normalize

import (
	"testing"
	"unicode/utf8"

	"github.com/ginjaninja78/packing-list-ingest/internal/config"
	"github.com/ginjaninja78/packing-list-ingest/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	tests := []struct {
		name     string
		action   config.TransformationAction
		input    string
		expected string
	}{
		{name: "trim", action: config.TransformationAction{Type: "trim"}, input: "  a ", expected: "a"},
		{name: "trim_left default", action: config.TransformationAction{Type: "trim_left"}, input: "  a ", expected: "a "},
		{name: "trim_right cutset", action: config.TransformationAction{Type: "trim_right", Value: "-"}, input: "a--", expected: "a"},
		{name: "uppercase", action: config.TransformationAction{Type: "uppercase"}, input: "abc", expected: "ABC"},
		{name: "lowercase", action: config.TransformationAction{Type: "lowercase"}, input: "ABC", expected: "abc"},
		{name: "prepend", action: config.TransformationAction{Type: "prepend_string", Value: "P-"}, input: "1", expected: "P-1"},
		{name: "append", action: config.TransformationAction{Type: "append_string", Value: "-X"}, input: "1", expected: "1-X"},
		{name: "replace", action: config.TransformationAction{Type: "replace", Find: "/", Value: "-"}, input: "a/b/c", expected: "a-b-c"},
		{name: "regex_replace", action: config.TransformationAction{Type: "regex_replace", Find: `^0+`, Value: ""}, input: "007", expected: "7"},
		{name: "pad zeros", action: config.TransformationAction{Type: "pad_zeros_to_length", Value: "6"}, input: "123", expected: "000123"},
		{name: "pad zeros already long", action: config.TransformationAction{Type: "pad_zeros_to_length", Value: "2"}, input: "123", expected: "123"},
		{name: "ensure length truncates", action: config.TransformationAction{Type: "ensure_length", Value: "3"}, input: "12345", expected: "123"},
		{name: "ensure length pads", action: config.TransformationAction{Type: "ensure_length", Value: "4"}, input: "12", expected: "0012"},
		{name: "ensure length truncates on runes", action: config.TransformationAction{Type: "ensure_length", Value: "3"}, input: "ÄÖÜß", expected: "ÄÖÜ"},
		{name: "pad zeros counts runes", action: config.TransformationAction{Type: "pad_zeros_to_length", Value: "4"}, input: "äö", expected: "00äö"},
		{name: "remove leading zeros", action: config.TransformationAction{Type: "remove_leading_zeros"}, input: "000", expected: "0"},
		{name: "format number", action: config.TransformationAction{Type: "format_number", Value: "2"}, input: "12.5", expected: "12.50"},
		{name: "format number not a number", action: config.TransformationAction{Type: "format_number", Value: "2"}, input: "n/a", expected: "n/a"},
		{name: "lookup hit", action: config.TransformationAction{Type: "lookup", LookupTable: map[string]string{"PCS": "PCE"}}, input: "PCS", expected: "PCE"},
		{name: "lookup miss", action: config.TransformationAction{Type: "lookup", LookupTable: map[string]string{"PCS": "PCE"}}, input: "KG", expected: "KG"},
		{name: "lookup with default", action: config.TransformationAction{Type: "lookup_with_default", Value: "EA", LookupTable: map[string]string{}}, input: "KG", expected: "EA"},
		{name: "extract digits", action: config.TransformationAction{Type: "extract_digits"}, input: "A-12-B3", expected: "123"},
		{name: "normalize whitespace", action: config.TransformationAction{Type: "normalize_whitespace"}, input: " a   b ", expected: "a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, err := compile(tt.action)
			require.NoError(t, err)
			out := fn(tt.input)
			assert.Equal(t, tt.expected, out)
			assert.True(t, utf8.ValidString(out))
		})
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name  string
		rules []config.TransformationRule
	}{
		{name: "unknown field", rules: []config.TransformationRule{{Field: "colour", Actions: []config.TransformationAction{{Type: "trim"}}}}},
		{name: "unknown action", rules: []config.TransformationRule{{Field: FieldProductCode, Actions: []config.TransformationAction{{Type: "explode"}}}}},
		{name: "bad regex", rules: []config.TransformationRule{{Field: FieldProductCode, Actions: []config.TransformationAction{{Type: "regex_replace", Find: "("}}}}},
		{name: "bad length", rules: []config.TransformationRule{{Field: FieldProductCode, Actions: []config.TransformationAction{{Type: "pad_zeros_to_length", Value: "x"}}}}},
		{name: "replace without find", rules: []config.TransformationRule{{Field: FieldProductCode, Actions: []config.TransformationAction{{Type: "replace"}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.rules)
			assert.Error(t, err)
		})
	}
}

func TestApply(t *testing.T) {
	n, err := New([]config.TransformationRule{
		{Field: FieldUnit, Actions: []config.TransformationAction{
			{Type: "uppercase"},
			{Type: "lookup", LookupTable: map[string]string{"PCS": "PCE"}},
		}},
		{Field: FieldProductCode, Actions: []config.TransformationAction{
			{Type: "pad_zeros_to_length", Value: "5"},
			{Type: "regex_replace", Find: `^DROP.*`, Value: ""},
		}},
		{Field: FieldPurchaseOrderNumber, Actions: []config.TransformationAction{{Type: "prepend_string", Value: "PO-"}}},
	})
	require.NoError(t, err)
	assert.False(t, n.Empty())

	parcel := model.NewParcel()
	parcel.PurchaseOrderNumber = model.StringPtr("123")
	payload := model.NewPayload(parcel)
	payload.AddItem(model.ParcelItem{
		ParcelNo:        "1",
		ProductQuantity: model.StringPtr("7 pcs"),
		Product:         model.Product{ProductCode: model.StringPtr("42")},
	})
	payload.AddItem(model.ParcelItem{
		ParcelNo:        "1",
		ProductQuantity: model.StringPtr("3"),
		Product:         model.Product{ProductCode: model.StringPtr("DROPME")},
	})

	payloads := []model.Payload{payload, model.NewPayload(model.NewParcel())}
	n.Apply(payloads)

	assert.Equal(t, "PO-123", *payloads[0].Parcel.PurchaseOrderNumber)
	require.Len(t, payloads[0].ParcelItems, 1, "item whose code normalizes to empty is dropped")
	item := payloads[0].ParcelItems[0]
	assert.Equal(t, "00042", *item.Product.ProductCode)
	assert.Equal(t, "7 PCE", *item.ProductQuantity)
	assert.Equal(t, "1", item.ParcelNo)

	assert.Nil(t, payloads[1].Parcel.PurchaseOrderNumber, "null fields are not transformed")
	assert.NotNil(t, payloads[1].ParcelItems)
}

func TestApply_NoRules(t *testing.T) {
	n, err := New(nil)
	require.NoError(t, err)
	assert.True(t, n.Empty())

	payloads := model.DefaultPayloads()
	n.Apply(payloads)
	assert.Equal(t, model.DefaultPayloads(), payloads)
}
