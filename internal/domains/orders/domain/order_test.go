package domain

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validDraft() Draft {
	return Draft{
		UserID:    "user-1",
		UserEmail: "ada@example.com",
		UserName:  "Ada",
		Items: []OrderItem{
			{ID: "yam", Name: "Yam flour", Price: 1500, Quantity: 2},
			{ID: "oil", Name: "Palm oil", Price: 2499.99, Quantity: 1},
		},
		Total:          5499.99,
		PaymentMethod:  PaymentMethodPaystack,
		DeliveryMethod: DeliveryPickup,
	}
}

func TestNewOrder_DefaultsToPending(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	order, err := NewOrder("AGF-1", validDraft(), now)
	require.NoError(t, err)
	require.Equal(t, StatusPending, order.Status)
	require.Equal(t, PaymentPending, order.PaymentStatus)
	require.Equal(t, now, order.CreatedAt)
	require.Equal(t, now, order.UpdatedAt)
}

func TestNewOrder_RejectsInvalidFields(t *testing.T) {
	cases := map[string]struct {
		mutate func(*Draft)
		err    error
	}{
		"missing owner":    {func(d *Draft) { d.UserID = " " }, ErrMissingOwner},
		"no items":         {func(d *Draft) { d.Items = nil }, ErrNoItems},
		"zero quantity":    {func(d *Draft) { d.Items[0].Quantity = 0 }, ErrInvalidQuantity},
		"negative price":   {func(d *Draft) { d.Items[0].Price = -1 }, ErrInvalidPrice},
		"bad status":       {func(d *Draft) { d.Status = "lost" }, ErrInvalidStatus},
		"bad payment":      {func(d *Draft) { d.PaymentStatus = "refunded" }, ErrInvalidPaymentStatus},
		"bad method":       {func(d *Draft) { d.PaymentMethod = "cash" }, ErrInvalidPaymentMethod},
		"bad delivery":     {func(d *Draft) { d.DeliveryMethod = "drone" }, ErrInvalidDeliveryMethod},
		"missing address":  {func(d *Draft) { d.DeliveryMethod = DeliveryDelivery }, ErrMissingDeliveryAddress},
		"negative total":   {func(d *Draft) { d.Total = -5 }, ErrInvalidTotal},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			draft := validDraft()
			tc.mutate(&draft)
			_, err := NewOrder("AGF-1", draft, time.Now())
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestNewOrder_CopiesItems(t *testing.T) {
	draft := validDraft()
	order, err := NewOrder("AGF-1", draft, time.Now())
	require.NoError(t, err)
	draft.Items[0].Quantity = 99
	require.Equal(t, 2, order.Items[0].Quantity)

	clone := order.Clone()
	clone.Items[0].Name = "changed"
	require.Equal(t, "Yam flour", order.Items[0].Name)
}

func TestItemsTotal_MatchesToTheCent(t *testing.T) {
	items := []OrderItem{{Price: 0.1, Quantity: 3}, {Price: 0.2, Quantity: 1}}
	require.Equal(t, 0.5, ItemsTotal(items))
	require.True(t, TotalMatchesItems(0.5, items))
	require.False(t, TotalMatchesItems(0.51, items))
	require.True(t, TotalMatchesItems(5499.99, validDraft().Items))
}

func TestNewOrderID_Format(t *testing.T) {
	now := time.UnixMilli(1717000000123)
	id := NewOrderID(now)
	require.Regexp(t, regexp.MustCompile(`^AGF-1717000000123-[0-9A-Z]{6}$`), id)
}

func TestNewOrderID_Unique(t *testing.T) {
	now := time.Now()
	seen := map[string]struct{}{}
	for i := 0; i < 2000; i++ {
		id := NewOrderID(now)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestApplyPatch_MergesNamedFieldsOnly(t *testing.T) {
	order, err := NewOrder("AGF-1", validDraft(), time.Unix(100, 0))
	require.NoError(t, err)
	order.PaymentReference = "AGF_old"

	paid := PaymentPaid
	order.Apply(Patch{PaymentStatus: &paid, UpdatedAt: time.Unix(200, 0)})

	require.Equal(t, PaymentPaid, order.PaymentStatus)
	require.Equal(t, StatusPending, order.Status)
	require.Equal(t, "AGF_old", order.PaymentReference)
	require.Equal(t, time.Unix(200, 0), order.UpdatedAt)
}

func TestSortNewestFirst(t *testing.T) {
	orders := []*Order{
		{ID: "a", CreatedAt: time.Unix(1, 0)},
		{ID: "c", CreatedAt: time.Unix(3, 0)},
		{ID: "b", CreatedAt: time.Unix(2, 0)},
	}
	SortNewestFirst(orders)
	require.Equal(t, "c", orders[0].ID)
	require.Equal(t, "b", orders[1].ID)
	require.Equal(t, "a", orders[2].ID)
}

func TestFormatStatus(t *testing.T) {
	require.Equal(t, "Pending", FormatStatus("pending"))
	require.Equal(t, "Bank transfer", FormatStatus("bank_transfer"))
	require.Equal(t, "", FormatStatus(""))
}

func TestFilter(t *testing.T) {
	orders := []*Order{
		{ID: "AGF-1-AAAAAA", UserName: "Ada Obi", UserEmail: "ada@example.com", Status: StatusPending, PaymentStatus: PaymentPaid},
		{ID: "AGF-2-BBBBBB", UserName: "Chidi", UserEmail: "chidi@example.com", Status: StatusDelivered, PaymentStatus: PaymentPending},
	}

	require.Len(t, Filter{}.Apply(orders), 2)
	require.Len(t, Filter{Status: FilterAll, PaymentStatus: FilterAll}.Apply(orders), 2)

	byName := Filter{Search: "ADA"}.Apply(orders)
	require.Len(t, byName, 1)
	require.Equal(t, "AGF-1-AAAAAA", byName[0].ID)

	byID := Filter{Search: "bbbbbb"}.Apply(orders)
	require.Len(t, byID, 1)
	require.Equal(t, "AGF-2-BBBBBB", byID[0].ID)

	require.Len(t, Filter{Search: "example.com", Status: "delivered"}.Apply(orders), 1)
	require.Empty(t, Filter{Status: "delivered", PaymentStatus: "paid"}.Apply(orders))
}
