package model

import "fmt"

// ProductStatus is a product's position in the fulfillment pipeline.
type ProductStatus string

const (
	StatusInbound     ProductStatus = "inbound"
	StatusInspection  ProductStatus = "inspection"
	StatusStorage     ProductStatus = "storage"
	StatusListing     ProductStatus = "listing"
	StatusOrdered     ProductStatus = "ordered"
	StatusPicking     ProductStatus = "picking"
	StatusWorkstation ProductStatus = "workstation"
	StatusPacked      ProductStatus = "packed"
	StatusShipping    ProductStatus = "shipping"
	StatusShipped     ProductStatus = "shipped"
	StatusDelivered   ProductStatus = "delivered"
	StatusSold        ProductStatus = "sold"
	StatusCompleted   ProductStatus = "completed"
	StatusReturned    ProductStatus = "returned"
	StatusCancelled   ProductStatus = "cancelled"
)

// ProductStatuses lists the full vocabulary in pipeline order.
var ProductStatuses = []ProductStatus{
	StatusInbound,
	StatusInspection,
	StatusStorage,
	StatusListing,
	StatusOrdered,
	StatusSold,
	StatusCompleted,
	StatusPicking,
	StatusWorkstation,
	StatusPacked,
	StatusShipping,
	StatusShipped,
	StatusDelivered,
	StatusReturned,
	StatusCancelled,
}

// allowedSuccessors is the single authoritative transition table.
var allowedSuccessors = map[ProductStatus][]ProductStatus{
	StatusInbound:     {StatusInspection, StatusCancelled},
	StatusInspection:  {StatusStorage, StatusCancelled},
	StatusStorage:     {StatusListing},
	StatusListing:     {StatusOrdered, StatusSold, StatusStorage, StatusReturned},
	StatusOrdered:     {StatusCompleted, StatusPicking, StatusWorkstation, StatusReturned},
	StatusSold:        {StatusCompleted, StatusPicking, StatusWorkstation, StatusReturned},
	StatusCompleted:   {StatusPicking, StatusWorkstation, StatusReturned},
	StatusPicking:     {StatusWorkstation, StatusPacked, StatusReturned},
	StatusWorkstation: {StatusPacked, StatusReturned},
	StatusPacked:      {StatusShipping, StatusShipped, StatusReturned},
	StatusShipping:    {StatusShipped, StatusReturned},
	StatusShipped:     {StatusDelivered, StatusReturned},
	StatusReturned:    {StatusInspection, StatusStorage},
	StatusDelivered:   nil,
	StatusCancelled:   nil,
}

func ParseProductStatus(s string) (ProductStatus, error) {
	st := ProductStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown product status %q", s)
	}
	return st, nil
}

func (s ProductStatus) Valid() bool {
	_, ok := allowedSuccessors[s]
	return ok
}

func (s ProductStatus) Terminal() bool {
	return s.Valid() && len(allowedSuccessors[s]) == 0
}

// Successors returns a copy of the statuses reachable in one step.
func (s ProductStatus) Successors() []ProductStatus {
	next := allowedSuccessors[s]
	out := make([]ProductStatus, len(next))
	copy(out, next)
	return out
}

func (s ProductStatus) CanTransitionTo(target ProductStatus) bool {
	for _, next := range allowedSuccessors[s] {
		if next == target {
			return true
		}
	}
	return false
}

// RequiresLocation is true for statuses that put an item on a shelf.
func (s ProductStatus) RequiresLocation() bool {
	return s == StatusStorage
}

// InIntake is true before an item has been shelved.
func (s ProductStatus) InIntake() bool {
	return s == StatusInbound || s == StatusInspection
}

// Orderable is true for items a sales order may claim.
func (s ProductStatus) Orderable() bool {
	switch s {
	case StatusStorage, StatusListing, StatusOrdered, StatusSold:
		return true
	}
	return false
}

func (s ProductStatus) String() string { return string(s) }

// ProductCondition grades the physical state of a resale item.
type ProductCondition string

const (
	ConditionNew       ProductCondition = "new"
	ConditionExcellent ProductCondition = "excellent"
	ConditionVeryGood  ProductCondition = "very_good"
	ConditionGood      ProductCondition = "good"
	ConditionFair      ProductCondition = "fair"
	ConditionPoor      ProductCondition = "poor"
	ConditionDamaged   ProductCondition = "damaged"
)

func (c ProductCondition) Valid() bool {
	switch c {
	case ConditionNew, ConditionExcellent, ConditionVeryGood, ConditionGood,
		ConditionFair, ConditionPoor, ConditionDamaged:
		return true
	}
	return false
}

// ProductCategory is the merchandise family.
type ProductCategory string

const (
	CategoryCamera    ProductCategory = "camera"
	CategoryWatch     ProductCategory = "watch"
	CategoryLens      ProductCategory = "lens"
	CategoryAccessory ProductCategory = "accessory"
	CategoryOther     ProductCategory = "other"
)

func (c ProductCategory) Valid() bool {
	switch c {
	case CategoryCamera, CategoryWatch, CategoryLens, CategoryAccessory, CategoryOther:
		return true
	}
	return false
}
