// =============================================================================
// Packing List Ingest - Normalization Rules
// =============================================================================
//
// Normalization rules rewrite canonical field values after parsing, e.g.
// mapping unit aliases ("PCS" -> "PCE") or padding product codes. Rules are
// read from the transformation_rules section of the configuration and are
// compiled once; applying them cannot fail.
//
// FIELD NAMES:
//   Parcel:  purchaseOrderNumber, originPartner, parcelFrom, parcelTo,
//            packingListNumber
//   Item:    parcelNo, productCode, productDescription, batchNumber,
//            expiryDate, weight, volume, productQuantity
//   Derived: unit (the unit part of productQuantity)
//
// Null fields are never transformed. A value that becomes empty is set to
// null, and an item whose productCode becomes null is dropped.
//
// =============================================================================

package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ginjaninja78/packing-list-ingest/internal/canonical"
	"github.com/ginjaninja78/packing-list-ingest/internal/config"
	"github.com/ginjaninja78/packing-list-ingest/internal/model"
	"github.com/shopspring/decimal"
)

// Field names accepted in rules.
const (
	FieldPurchaseOrderNumber = "purchaseOrderNumber"
	FieldOriginPartner       = "originPartner"
	FieldParcelFrom          = "parcelFrom"
	FieldParcelTo            = "parcelTo"
	FieldPackingListNumber   = "packingListNumber"
	FieldParcelNo            = "parcelNo"
	FieldProductCode         = "productCode"
	FieldProductDescription  = "productDescription"
	FieldBatchNumber         = "batchNumber"
	FieldExpiryDate          = "expiryDate"
	FieldWeight              = "weight"
	FieldVolume              = "volume"
	FieldProductQuantity     = "productQuantity"
	FieldUnit                = "unit"
)

var knownFields = map[string]bool{
	FieldPurchaseOrderNumber: true,
	FieldOriginPartner:       true,
	FieldParcelFrom:          true,
	FieldParcelTo:            true,
	FieldPackingListNumber:   true,
	FieldParcelNo:            true,
	FieldProductCode:         true,
	FieldProductDescription:  true,
	FieldBatchNumber:         true,
	FieldExpiryDate:          true,
	FieldWeight:              true,
	FieldVolume:              true,
	FieldProductQuantity:     true,
	FieldUnit:                true,
}

// transform is one compiled action.
type transform func(string) string

// Normalizer applies compiled transformation rules to payloads.
type Normalizer struct {
	fields map[string][]transform
}

// New compiles rules. Unknown fields, unknown action types and invalid
// parameters are reported here, not during Apply.
func New(rules []config.TransformationRule) (*Normalizer, error) {
	n := &Normalizer{fields: make(map[string][]transform)}

	for _, rule := range rules {
		if !knownFields[rule.Field] {
			return nil, fmt.Errorf("unknown field %q in transformation rule", rule.Field)
		}
		for _, action := range rule.Actions {
			fn, err := compile(action)
			if err != nil {
				return nil, fmt.Errorf("field %s: transformation '%s' failed: %w", rule.Field, action.Type, err)
			}
			n.fields[rule.Field] = append(n.fields[rule.Field], fn)
		}
	}
	return n, nil
}

// Empty reports whether the normalizer has no rules.
func (n *Normalizer) Empty() bool {
	return n == nil || len(n.fields) == 0
}

// Apply rewrites payloads in place.
func (n *Normalizer) Apply(payloads []model.Payload) {
	if n.Empty() {
		return
	}

	for i := range payloads {
		p := &payloads[i]
		p.Parcel.PurchaseOrderNumber = n.value(FieldPurchaseOrderNumber, p.Parcel.PurchaseOrderNumber)
		p.Parcel.OriginPartner = n.value(FieldOriginPartner, p.Parcel.OriginPartner)
		p.Parcel.ParcelFrom = n.value(FieldParcelFrom, p.Parcel.ParcelFrom)
		p.Parcel.ParcelTo = n.value(FieldParcelTo, p.Parcel.ParcelTo)
		p.Parcel.PackingListNumber = n.value(FieldPackingListNumber, p.Parcel.PackingListNumber)

		items := p.ParcelItems
		p.ParcelItems = make([]model.ParcelItem, 0, len(items))
		for _, item := range items {
			p.AddItem(n.item(item))
		}
	}
}

func (n *Normalizer) item(item model.ParcelItem) model.ParcelItem {
	item.ParcelNo = canonical.Value(n.value(FieldParcelNo, &item.ParcelNo))
	item.Product.ProductCode = n.value(FieldProductCode, item.Product.ProductCode)
	item.Product.ProductDescription = n.value(FieldProductDescription, item.Product.ProductDescription)
	item.BatchNumber = n.value(FieldBatchNumber, item.BatchNumber)
	item.ExpiryDate = n.value(FieldExpiryDate, item.ExpiryDate)
	item.Weight = n.value(FieldWeight, item.Weight)
	item.Volume = n.value(FieldVolume, item.Volume)
	item.ProductQuantity = n.quantity(n.value(FieldProductQuantity, item.ProductQuantity))
	return item
}

// value runs the field's transforms over v.
func (n *Normalizer) value(field string, v *string) *string {
	fns := n.fields[field]
	if v == nil || len(fns) == 0 {
		return v
	}
	s := *v
	for _, fn := range fns {
		s = fn(s)
	}
	return canonical.TrimOrNil(s)
}

// quantity applies unit transforms to the unit part of a quantity string.
func (n *Normalizer) quantity(v *string) *string {
	if v == nil || len(n.fields[FieldUnit]) == 0 {
		return v
	}
	q, ok := canonical.ParseQuantity(*v)
	if !ok || q.Unit == "" {
		return v
	}
	q.Unit = canonical.Value(n.value(FieldUnit, &q.Unit))
	s := q.String()
	return &s
}

// =============================================================================
// ACTIONS
// =============================================================================

var (
	digitsPattern     = regexp.MustCompile(`\d+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// compile turns one configured action into a transform.
func compile(action config.TransformationAction) (transform, error) {
	switch action.Type {
	case "trim":
		return strings.TrimSpace, nil

	case "trim_left":
		cutset := action.Value
		if cutset == "" {
			cutset = " \t\n\r"
		}
		return func(s string) string { return strings.TrimLeft(s, cutset) }, nil

	case "trim_right":
		cutset := action.Value
		if cutset == "" {
			cutset = " \t\n\r"
		}
		return func(s string) string { return strings.TrimRight(s, cutset) }, nil

	case "uppercase":
		return strings.ToUpper, nil

	case "lowercase":
		return strings.ToLower, nil

	case "prepend_string":
		return func(s string) string { return action.Value + s }, nil

	case "append_string":
		return func(s string) string { return s + action.Value }, nil

	case "replace":
		if action.Find == "" {
			return nil, fmt.Errorf("replace needs find")
		}
		return func(s string) string { return strings.ReplaceAll(s, action.Find, action.Value) }, nil

	case "regex_replace":
		re, err := regexp.Compile(action.Find)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern: %w", err)
		}
		return func(s string) string { return re.ReplaceAllString(s, action.Value) }, nil

	case "pad_zeros_to_length":
		length, err := positive(action.Value)
		if err != nil {
			return nil, err
		}
		return func(s string) string { return PadLeft(s, length, '0') }, nil

	case "ensure_length":
		length, err := positive(action.Value)
		if err != nil {
			return nil, err
		}
		return func(s string) string {
			if len(s) > length {
				return s[:length]
			}
			return PadLeft(s, length, '0')
		}, nil

	case "remove_leading_zeros":
		return func(s string) string {
			if r := strings.TrimLeft(s, "0"); r != "" {
				return r
			}
			return "0"
		}, nil

	case "format_number":
		places, err := strconv.Atoi(action.Value)
		if err != nil || places < 0 {
			return nil, fmt.Errorf("decimal places must be a non-negative integer, got %q", action.Value)
		}
		return func(s string) string {
			d, err := decimal.NewFromString(strings.TrimSpace(s))
			if err != nil {
				return s
			}
			return d.StringFixed(int32(places))
		}, nil

	case "lookup":
		table := action.LookupTable
		return func(s string) string {
			if r, ok := table[s]; ok {
				return r
			}
			return s
		}, nil

	case "lookup_with_default":
		table := action.LookupTable
		return func(s string) string {
			if r, ok := table[s]; ok {
				return r
			}
			return action.Value
		}, nil

	case "extract_digits":
		return func(s string) string {
			return strings.Join(digitsPattern.FindAllString(s, -1), "")
		}, nil

	case "normalize_whitespace":
		return func(s string) string {
			return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
		}, nil

	default:
		return nil, fmt.Errorf("unknown transformation type: %s", action.Type)
	}
}

func positive(v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("length must be a positive integer, got %q", v)
	}
	return n, nil
}

// PadLeft pads a string with a character on the left to reach the target
// length, counted in runes.
func PadLeft(s string, length int, padChar rune) string {
	n := utf8.RuneCountInString(s)
	if n >= length {
		return s
	}
	return strings.Repeat(string(padChar), length-n) + s
}
