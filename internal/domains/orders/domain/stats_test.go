package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestComputeStats_RevenueCountsOnlyPaid(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	orders := []*Order{
		{Total: 100, PaymentStatus: PaymentPaid, Status: StatusPending, CreatedAt: now},
		{Total: 50, PaymentStatus: PaymentPending, Status: StatusDelivered, CreatedAt: now},
		{Total: 70, PaymentStatus: PaymentFailed, Status: StatusDelivered, CreatedAt: now},
	}
	stats := ComputeStats(orders, now)
	require.Equal(t, 100.0, stats.TotalRevenue)
	require.Equal(t, 3, stats.TotalOrders)
	require.Equal(t, 1, stats.PendingOrders)
	require.Equal(t, 2, stats.CompletedOrders)
}

func TestComputeStats_CompletedMeansDeliveredOnly(t *testing.T) {
	now := time.Now()
	orders := []*Order{
		{Status: StatusShipped, CreatedAt: now},
		{Status: StatusConfirmed, CreatedAt: now},
		{Status: StatusDelivered, CreatedAt: now},
	}
	require.Equal(t, 1, ComputeStats(orders, now).CompletedOrders)
}

func TestComputeStats_PreviousMonthNotInThisMonth(t *testing.T) {
	loc := time.FixedZone("WAT", 3600)
	now := time.Date(2024, 3, 2, 10, 0, 0, 0, loc)
	lastDayOfFeb := time.Date(2024, 2, 29, 23, 30, 0, 0, loc)

	stats := ComputeStats([]*Order{{CreatedAt: lastDayOfFeb}}, now)
	require.Equal(t, 1, stats.ThisWeekOrders)
	require.Equal(t, 0, stats.ThisMonthOrders)
	require.Equal(t, 0, stats.TodayOrders)
}

func TestComputeStats_Buckets(t *testing.T) {
	loc := time.FixedZone("WAT", 3600)
	now := time.Date(2024, 6, 20, 15, 0, 0, 0, loc)
	orders := []*Order{
		{CreatedAt: time.Date(2024, 6, 20, 0, 0, 0, 0, loc)},  // local midnight: today
		{CreatedAt: time.Date(2024, 6, 19, 23, 59, 0, 0, loc)}, // yesterday
		{CreatedAt: now.Add(-7 * 24 * time.Hour)},              // exactly on the week edge
		{CreatedAt: now.Add(-7*24*time.Hour - time.Second)},    // just outside the week
		{CreatedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, loc)},    // first instant of the month
		{CreatedAt: time.Date(2024, 5, 31, 23, 59, 59, 0, loc)},
	}
	stats := ComputeStats(orders, now)
	require.Equal(t, 1, stats.TodayOrders)
	require.Equal(t, 3, stats.ThisWeekOrders)
	require.Equal(t, 5, stats.ThisMonthOrders)
	require.Equal(t, 6, stats.TotalOrders)
}

func TestComputeStats_Empty(t *testing.T) {
	require.Equal(t, OrderStats{}, ComputeStats(nil, time.Now()))
}

func TestComputeStats_SkipsNilOrders(t *testing.T) {
	now := time.Now()
	stats := ComputeStats([]*Order{nil, {Status: StatusPending, CreatedAt: now}, nil}, now)
	require.Equal(t, 1, stats.TotalOrders)
	require.Equal(t, 1, stats.PendingOrders)
	require.Equal(t, 1, stats.TodayOrders)
}
