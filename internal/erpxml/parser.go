// =============================================================================
// Packing List Ingest - ERP Record XML Parser
// =============================================================================
//
// ERP exports describe a picking as a tree of named <field> elements:
//
//   <record>
//     <field name="origin">PO-001</field>
//     <field name="partner_id"><field name="name">ACME</field></field>
//     <field name="move_lines">
//       <record>                                  <- one parcel
//         <field name="parcel_from">1</field>
//         <field name="parcel_to">1</field>
//         <record>                                <- one item
//           <field name="product_id">
//             <field name="product_code">ABC</field>
//             <field name="product_name">Gloves</field>
//           </field>
//           <field name="product_qty">10</field>
//           <field name="product_uom"><field name="name">PCE</field></field>
//         </record>
//       </record>
//     </field>
//   </record>
//
// product_id may also wrap its fields in one more <record> level. Both shapes
// are accepted.
//
// =============================================================================

package erpxml

import (
	"github.com/ginjaninja78/packing-list-ingest/internal/canonical"
	"github.com/ginjaninja78/packing-list-ingest/internal/format"
	"github.com/ginjaninja78/packing-list-ingest/internal/model"
	"github.com/ginjaninja78/packing-list-ingest/internal/xmltree"
)

// Field names read from the export.
const (
	FieldOrigin      = "origin"
	FieldPartner     = "partner_id"
	FieldMoveLines   = "move_lines"
	FieldParcelFrom  = "parcel_from"
	FieldParcelTo    = "parcel_to"
	FieldParcelQty   = "parcel_qty"
	FieldTotalWeight = "total_weight"
	FieldTotalVolume = "total_volume"
	FieldPackingList = "packing_list"
	FieldProduct     = "product_id"
	FieldProductCode = "product_code"
	FieldProductName = "product_name"
	FieldProductQty  = "product_qty"
	FieldProductUOM  = "product_uom"
	FieldLot         = "prodlot_id"
	FieldExpiry      = "expired_date"
	FieldName        = "name"
)

// Parse converts an ERP record tree into canonical payloads.
func Parse(root *xmltree.Node, b *canonical.Builder) ([]model.Payload, error) {
	record, err := Validate(root)
	if err != nil {
		return nil, err
	}

	po := value(field(record, FieldOrigin))
	partner := value(field(field(record, FieldPartner), FieldName))

	moveLines := field(record, FieldMoveLines).ChildrenNamed("record")
	if len(moveLines) == 0 {
		parcel := model.NewParcel()
		parcel.PurchaseOrderNumber = po
		parcel.OriginPartner = partner
		return []model.Payload{model.NewPayload(parcel)}, nil
	}

	payloads := make([]model.Payload, 0, len(moveLines))
	for _, line := range moveLines {
		payloads = append(payloads, parseMoveLine(line, po, partner, b))
	}
	return payloads, nil
}

// Validate returns the top-level record once it is known to carry the
// origin and partner_id fields.
func Validate(root *xmltree.Node) (*xmltree.Node, error) {
	record := format.RecordRoot(root)
	if record == nil {
		return nil, &format.FormatValidationError{
			Dialect: format.ERPRecord,
			Missing: []string{"record with field list"},
		}
	}

	var missing []string
	for _, name := range []string{FieldOrigin, FieldPartner} {
		if field(record, name) == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &format.FormatValidationError{
			Dialect: format.ERPRecord,
			Missing: missing,
		}
	}
	return record, nil
}

// parseMoveLine builds one parcel and its items from a move_lines record.
func parseMoveLine(line *xmltree.Node, po, partner *string, b *canonical.Builder) model.Payload {
	parcel := model.NewParcel()
	parcel.PurchaseOrderNumber = po
	parcel.OriginPartner = partner
	parcel.ParcelFrom = value(field(line, FieldParcelFrom))
	parcel.ParcelTo = value(field(line, FieldParcelTo))
	parcel.PackingListNumber = value(field(line, FieldPackingList))
	parcel.TotalNumberOfParcels = canonical.ParseCount(value(field(line, FieldParcelQty)))

	weight := value(field(line, FieldTotalWeight))
	volume := value(field(line, FieldTotalVolume))
	parcelNo := canonical.ParcelRange(parcel.ParcelFrom, parcel.ParcelTo)

	payload := model.NewPayload(parcel)
	for _, rec := range line.ChildrenNamed("record") {
		product := productFields(field(rec, FieldProduct))
		code := value(product(FieldProductCode))
		if code == nil {
			b.Logger().Debug().Str("parcel_no", parcelNo).Msg("skipping move line item without product code")
			continue
		}

		payload.AddItem(model.ParcelItem{
			ParcelNo:        parcelNo,
			ProductQuantity: b.Quantity(FieldProductQty, value(field(rec, FieldProductQty)), value(field(rec, FieldProductUOM))),
			BatchNumber:     value(field(rec, FieldLot)),
			ExpiryDate:      b.Date(FieldExpiry, value(field(rec, FieldExpiry))),
			Weight:          weight,
			Volume:          volume,
			Product: model.Product{
				ProductCode:        code,
				ProductDescription: value(product(FieldProductName)),
			},
		})
	}
	return payload
}

// =============================================================================
// FIELD ACCESS
// =============================================================================

// field returns the direct <field name="..."> child of n, or nil.
func field(n *xmltree.Node, name string) *xmltree.Node {
	if n == nil {
		return nil
	}
	return n.ChildWithAttr("field", "name", name)
}

// value resolves a field to a string.
//
// Text content wins. A field without text that wraps a nested "name" field
// (partner_id, product_uom, prodlot_id) resolves to that name. Anything else
// is null: the node itself is never used as a value.
func value(n *xmltree.Node) *string {
	if n == nil {
		return nil
	}
	if v := canonical.TrimPtr(n.Value()); v != nil {
		return v
	}
	if nested := field(n, FieldName); nested != nil {
		return canonical.TrimPtr(nested.Value())
	}
	return nil
}

// productFields returns a lookup over product_id's fields, whether they sit
// directly under product_id or inside a nested <record>.
func productFields(product *xmltree.Node) func(name string) *xmltree.Node {
	return func(name string) *xmltree.Node {
		if f := field(product, name); f != nil {
			return f
		}
		for _, rec := range product.ChildrenNamed("record") {
			if f := field(rec, name); f != nil {
				return f
			}
		}
		return nil
	}
}
