package domain

import "strings"

// FilterAll disables a status or payment filter.
const FilterAll = "all"

// Filter narrows an order list for the admin dashboard.
type Filter struct {
	// Search matches id, customer name or customer email, case-insensitively.
	Search        string
	Status        string
	PaymentStatus string
}

// Matches reports whether the order passes every criterion.
func (f Filter) Matches(o *Order) bool {
	if o == nil {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		if !strings.Contains(strings.ToLower(o.ID), term) &&
			!strings.Contains(strings.ToLower(o.UserName), term) &&
			!strings.Contains(strings.ToLower(o.UserEmail), term) {
			return false
		}
	}
	if f.Status != "" && f.Status != FilterAll && string(o.Status) != f.Status {
		return false
	}
	if f.PaymentStatus != "" && f.PaymentStatus != FilterAll && string(o.PaymentStatus) != f.PaymentStatus {
		return false
	}
	return true
}

// Apply returns the orders that match, preserving order.
func (f Filter) Apply(orders []*Order) []*Order {
	out := make([]*Order, 0, len(orders))
	for _, o := range orders {
		if f.Matches(o) {
			out = append(out, o)
		}
	}
	return out
}
