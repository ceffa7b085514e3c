package domain

import "time"

// OrderStats summarises a snapshot of all orders. It is never persisted.
type OrderStats struct {
	TotalOrders     int
	PendingOrders   int
	CompletedOrders int
	TotalRevenue    float64
	TodayOrders     int
	ThisWeekOrders  int
	ThisMonthOrders int
}

// ComputeStats derives OrderStats from a full snapshot. Day and month
// boundaries are taken in now's location; the week is a rolling 7×24h window.
func ComputeStats(orders []*Order, now time.Time) OrderStats {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	week := now.Add(-7 * 24 * time.Hour)
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)

	var stats OrderStats
	for _, o := range orders {
		if o == nil {
			continue
		}
		stats.TotalOrders++
		switch o.Status {
		case StatusPending:
			stats.PendingOrders++
		case StatusDelivered:
			stats.CompletedOrders++
		}
		if o.PaymentStatus == PaymentPaid {
			stats.TotalRevenue += o.Total
		}
		if !o.CreatedAt.Before(today) {
			stats.TodayOrders++
		}
		if !o.CreatedAt.Before(week) {
			stats.ThisWeekOrders++
		}
		if !o.CreatedAt.Before(month) {
			stats.ThisMonthOrders++
		}
	}
	return stats
}
