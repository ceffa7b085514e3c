package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/adapters/memory"
	orderapp "github.com/Apurer/go-gin-orders-server/internal/domains/orders/application"
	orderdomain "github.com/Apurer/go-gin-orders-server/internal/domains/orders/domain"
	orderports "github.com/Apurer/go-gin-orders-server/internal/domains/orders/ports"
)

type harness struct {
	svc    orderports.Service
	reader *sdkmetric.ManualReader
	spans  *tracetest.SpanRecorder
}

func newHarness(t *testing.T) harness {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	spans := tracetest.NewSpanRecorder()
	inner := orderapp.NewService(memory.NewDocumentStore(nil))
	require.NoError(t, inner.Start(context.Background()))
	t.Cleanup(inner.Close)
	svc := New(inner,
		WithMeter(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")),
		WithTracer(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans)).Tracer("test")),
	)
	return harness{svc: svc, reader: reader, spans: spans}
}

func (h harness) sum(t *testing.T, name string, attr attribute.KeyValue) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, h.reader.Collect(context.Background(), &rm))
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			data, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range data.DataPoints {
				if v, ok := dp.Attributes.Value(attr.Key); ok && v == attr.Value {
					return dp.Value
				}
			}
		}
	}
	return 0
}

func draft() orderdomain.Draft {
	return orderdomain.Draft{
		UserID:         "u1",
		UserEmail:      "ada@example.com",
		Items:          []orderdomain.OrderItem{{ID: "beans", Name: "Honey beans", Price: 900, Quantity: 2}},
		Total:          1800,
		PaymentMethod:  orderdomain.PaymentMethodPickup,
		DeliveryMethod: orderdomain.DeliveryPickup,
	}
}

func TestService_CountsWrites(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	id, err := h.svc.CreateOrder(ctx, draft())
	require.NoError(t, err)
	require.NoError(t, h.svc.UpdateOrderStatus(ctx, id, orderdomain.StatusConfirmed))
	require.NoError(t, h.svc.UpdatePaymentStatus(ctx, id, orderdomain.PaymentPaid, nil))

	assert.Equal(t, int64(1), h.sum(t, "orders.service.orders_created", attribute.String("payment.method", "pickup")))
	assert.Equal(t, int64(1), h.sum(t, "orders.service.status_updates", attribute.String("order.status", "confirmed")))
	assert.Equal(t, int64(1), h.sum(t, "orders.service.payment_updates", attribute.String("payment.status", "paid")))
}

func TestService_TracksOpenViews(t *testing.T) {
	h := newHarness(t)
	sub, err := h.svc.SubscribeUserOrders(context.Background(), "u1", func([]*orderdomain.Order) {}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), h.sum(t, "orders.service.subscriptions", attribute.String("view", "user")))

	sub.Close()
	sub.Close()
	assert.Equal(t, int64(0), h.sum(t, "orders.service.subscriptions", attribute.String("view", "user")))
}

func TestService_RecordsErrorsOnSpans(t *testing.T) {
	h := newHarness(t)
	err := h.svc.UpdateOrderStatus(context.Background(), "AGF-0-NOPE00", orderdomain.Status("lost"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, orderapp.ErrValidation))

	ended := h.spans.Ended()
	require.NotEmpty(t, ended)
	last := ended[len(ended)-1]
	assert.Equal(t, "OrderService.UpdateOrderStatus", last.Name())
	assert.Equal(t, codes.Error, last.Status().Code)
	assert.Zero(t, h.sum(t, "orders.service.status_updates", attribute.String("order.status", "lost")))
}

func TestService_DelegatesReads(t *testing.T) {
	h := newHarness(t)
	id, err := h.svc.CreateOrder(context.Background(), draft())
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, ok := h.svc.GetOrderByID(id)
		return ok
	}, time.Second, 10*time.Millisecond)
	assert.True(t, h.svc.Loaded())
	assert.NoError(t, h.svc.FeedErr())
	assert.Len(t, h.svc.Orders(), 1)
	assert.Equal(t, 1, h.svc.Stats().TotalOrders)
}

func TestService_TakenIDIsNotAnError(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.svc.CreateOrderWithID(ctx, "AGF-1714557600000-TAKEN1", draft()))
	err := h.svc.CreateOrderWithID(ctx, "AGF-1714557600000-TAKEN1", draft())
	require.ErrorIs(t, err, orderports.ErrAlreadyExists)

	ended := h.spans.Ended()
	require.NotEmpty(t, ended)
	last := ended[len(ended)-1]
	assert.Equal(t, "OrderService.CreateOrderWithID", last.Name())
	assert.NotEqual(t, codes.Error, last.Status().Code)
	assert.Equal(t, int64(1), h.sum(t, "orders.service.orders_created", attribute.String("payment.method", "pickup")))
}
