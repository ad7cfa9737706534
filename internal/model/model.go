// =============================================================================
// Packing List Ingest - Canonical Model
// =============================================================================
//
// This package contains the canonical payload every input dialect converges
// on. Types defined here are used by:
//   - tabular
//   - erpxml
//   - ssxml
//   - ingest
//
// The payload is built once per invocation and carries no persisted identity.
// Database keys are assigned by the storage layer that consumes the JSON.
//
// =============================================================================

package model

// =============================================================================
// ITEM TYPES
// =============================================================================

// ItemType classifies the goods carried by a parcel.
type ItemType string

const (
	// ItemTypeRegular is the default when no "Containing:" marker is set.
	ItemTypeRegular ItemType = "Regular"

	// ItemTypeCC marks cold-chain goods.
	ItemTypeCC ItemType = "cc"

	// ItemTypeDG marks dangerous goods.
	ItemTypeDG ItemType = "dg"

	// ItemTypeCS marks controlled substances.
	ItemTypeCS ItemType = "cs"
)

// ParseItemType maps a lowercase grid label onto an ItemType.
// The second return value is false for anything but cc, dg and cs.
func ParseItemType(label string) (ItemType, bool) {
	switch ItemType(label) {
	case ItemTypeCC, ItemTypeDG, ItemTypeCS:
		return ItemType(label), true
	}
	return "", false
}

// =============================================================================
// PARCEL
// =============================================================================

// Parcel represents one physical or logical shipment unit.
type Parcel struct {
	// PurchaseOrderNumber is the buyer's reference for the shipment.
	PurchaseOrderNumber *string `json:"purchaseOrderNumber"`

	// OriginPartner is the sending partner name. Only the ERP export carries it.
	OriginPartner *string `json:"originPartner,omitempty"`

	// ParcelFrom and ParcelTo are either locations (tabular) or the endpoints
	// of a parcel sequence range (XML dialects).
	ParcelFrom *string `json:"parcelFrom"`
	ParcelTo   *string `json:"parcelTo"`

	// PackingListNumber identifies the source packing list.
	PackingListNumber *string `json:"packingListNumber"`

	// TotalNumberOfParcels is always at least 1.
	TotalNumberOfParcels int `json:"totalNumberOfParcels"`

	// ItemType defaults to ItemTypeRegular.
	ItemType ItemType `json:"itemType"`
}

// NewParcel returns a Parcel with every optional field null and defaults set.
func NewParcel() Parcel {
	return Parcel{
		TotalNumberOfParcels: 1,
		ItemType:             ItemTypeRegular,
	}
}

// =============================================================================
// PRODUCT AND PARCEL ITEM
// =============================================================================

// Product is a catalog reference embedded in a ParcelItem.
// Deduplication by ProductCode happens downstream.
type Product struct {
	ProductCode        *string `json:"productCode"`
	ProductDescription *string `json:"productDescription"`
}

// ParcelItem is one product line within a Parcel.
type ParcelItem struct {
	// ParcelNo is a free-text label for the parcel range the line sits in.
	ParcelNo string `json:"parcelNo"`

	// ProductQuantity is "<number> <unit>" when the unit resolves, else the
	// bare number.
	ProductQuantity *string `json:"productQuantity"`

	BatchNumber *string `json:"batchNumber"`
	ExpiryDate  *string `json:"expiryDate"`
	Weight      *string `json:"weight"`
	Volume      *string `json:"volume"`

	Product Product `json:"product"`
}

// HasProductCode reports whether the item may be emitted.
func (i ParcelItem) HasProductCode() bool {
	return i.Product.ProductCode != nil && *i.Product.ProductCode != ""
}

// =============================================================================
// PAYLOAD
// =============================================================================

// Payload is the canonical record handed to the storage layer.
type Payload struct {
	Parcel      Parcel       `json:"parcel"`
	ParcelItems []ParcelItem `json:"parcelItems"`
}

// NewPayload wraps a parcel with an empty, non-nil item list so it
// serializes as [] rather than null.
func NewPayload(p Parcel) Payload {
	return Payload{
		Parcel:      p,
		ParcelItems: []ParcelItem{},
	}
}

// DefaultPayloads is the result for a document with no detected segments:
// one record with null header fields and no items.
func DefaultPayloads() []Payload {
	return []Payload{NewPayload(NewParcel())}
}

// AddItem appends item unless it lacks a product code.
// It reports whether the item was kept.
func (p *Payload) AddItem(item ParcelItem) bool {
	if !item.HasProductCode() {
		return false
	}
	p.ParcelItems = append(p.ParcelItems, item)
	return true
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
