package domain

import (
	"sort"
	"time"
)

// Patch names the fields a merge update touches. Nil fields stay untouched.
type Patch struct {
	Status           *Status
	PaymentStatus    *PaymentStatus
	PaymentReference *string
	UpdatedAt        time.Time
}

// Apply merges the patch into the order.
func (o *Order) Apply(p Patch) {
	if p.Status != nil {
		o.Status = *p.Status
	}
	if p.PaymentStatus != nil {
		o.PaymentStatus = *p.PaymentStatus
	}
	if p.PaymentReference != nil {
		o.PaymentReference = *p.PaymentReference
	}
	if !p.UpdatedAt.IsZero() {
		o.UpdatedAt = p.UpdatedAt
	}
}

// SortNewestFirst orders by CreatedAt descending, keeping ties stable.
func SortNewestFirst(orders []*Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}
