package observability

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	orderdomain "github.com/Apurer/go-gin-orders-server/internal/domains/orders/domain"
	orderports "github.com/Apurer/go-gin-orders-server/internal/domains/orders/ports"
)

const tracerName = "github.com/Apurer/go-gin-orders-server/internal/domains/orders/adapters/observability/service"

// Service decorates the orders service with tracing, logging, and metrics.
type Service struct {
	inner   orderports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wraps the core orders service.
func New(inner orderports.Service, opts ...Option) orderports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return s
}

func (s *Service) SubscribeAllOrders(ctx context.Context, onSnapshot orderports.SnapshotFunc, onError orderports.ErrorFunc) (orderports.Subscription, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.SubscribeAllOrders")
	defer span.End()

	sub, err := s.inner.SubscribeAllOrders(ctx, onSnapshot, s.observeFeedError(ctx, "all", onError))
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to open all-orders view")
	}
	s.logInfo(ctx, "all-orders view opened")
	return s.track(ctx, "all", sub), nil
}

func (s *Service) SubscribeUserOrders(ctx context.Context, userID string, onSnapshot orderports.SnapshotFunc, onError orderports.ErrorFunc) (orderports.Subscription, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.SubscribeUserOrders", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	sub, err := s.inner.SubscribeUserOrders(ctx, userID, onSnapshot, s.observeFeedError(ctx, "user", onError))
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to open user orders view", slog.String("user.id", userID))
	}
	s.logInfo(ctx, "user orders view opened", slog.String("user.id", userID))
	return s.track(ctx, "user", sub), nil
}

func (s *Service) CreateOrder(ctx context.Context, draft orderdomain.Draft) (string, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CreateOrder",
		trace.WithAttributes(attribute.String("user.id", draft.UserID), attribute.Int("order.items", len(draft.Items))))
	defer span.End()

	s.logInfo(ctx, "creating order", slog.String("user.id", draft.UserID), slog.Float64("order.total", draft.Total))
	id, err := s.inner.CreateOrder(ctx, draft)
	if err != nil {
		return "", s.handleError(ctx, span, err, "failed to create order", slog.String("user.id", draft.UserID))
	}
	span.SetAttributes(attribute.String("order.id", id))
	s.metrics.recordCreated(ctx, draft.PaymentMethod)
	s.logInfo(ctx, "order created", slog.String("order.id", id))
	return id, nil
}

func (s *Service) CreateOrderWithID(ctx context.Context, id string, draft orderdomain.Draft) error {
	ctx, span := s.tracer.Start(ctx, "OrderService.CreateOrderWithID",
		trace.WithAttributes(attribute.String("order.id", id), attribute.String("user.id", draft.UserID), attribute.Int("order.items", len(draft.Items))))
	defer span.End()

	if err := s.inner.CreateOrderWithID(ctx, id, draft); err != nil {
		if errors.Is(err, orderports.ErrAlreadyExists) {
			span.SetAttributes(attribute.Bool("order.exists", true))
			return err
		}
		return s.handleError(ctx, span, err, "failed to create order", slog.String("order.id", id), slog.String("user.id", draft.UserID))
	}
	s.metrics.recordCreated(ctx, draft.PaymentMethod)
	s.logInfo(ctx, "order created", slog.String("order.id", id))
	return nil
}

func (s *Service) UpdateOrderStatus(ctx context.Context, id string, status orderdomain.Status) error {
	ctx, span := s.tracer.Start(ctx, "OrderService.UpdateOrderStatus",
		trace.WithAttributes(attribute.String("order.id", id), attribute.String("order.status", string(status))))
	defer span.End()

	s.logInfo(ctx, "updating order status", slog.String("order.id", id), slog.String("status", string(status)))
	if err := s.inner.UpdateOrderStatus(ctx, id, status); err != nil {
		return s.handleError(ctx, span, err, "failed to update order status", slog.String("order.id", id))
	}
	s.metrics.recordStatus(ctx, status)
	return nil
}

func (s *Service) UpdatePaymentStatus(ctx context.Context, id string, status orderdomain.PaymentStatus, reference *string) error {
	ctx, span := s.tracer.Start(ctx, "OrderService.UpdatePaymentStatus",
		trace.WithAttributes(attribute.String("order.id", id), attribute.String("payment.status", string(status)), attribute.Bool("payment.reference", reference != nil)))
	defer span.End()

	s.logInfo(ctx, "updating payment status", slog.String("order.id", id), slog.String("payment_status", string(status)))
	if err := s.inner.UpdatePaymentStatus(ctx, id, status, reference); err != nil {
		return s.handleError(ctx, span, err, "failed to update payment status", slog.String("order.id", id))
	}
	s.metrics.recordPayment(ctx, status)
	return nil
}

func (s *Service) GetOrderByID(id string) (*orderdomain.Order, bool) {
	return s.inner.GetOrderByID(id)
}

func (s *Service) Orders() []*orderdomain.Order {
	return s.inner.Orders()
}

func (s *Service) Stats() orderdomain.OrderStats {
	return s.inner.Stats()
}

func (s *Service) Loaded() bool {
	return s.inner.Loaded()
}

func (s *Service) FeedErr() error {
	return s.inner.FeedErr()
}

func (s *Service) observeFeedError(ctx context.Context, view string, onError orderports.ErrorFunc) orderports.ErrorFunc {
	return func(err error) {
		s.logError(context.WithoutCancel(ctx), "live view terminated", err, slog.String("view", view))
		if onError != nil {
			onError(err)
		}
	}
}

func (s *Service) track(ctx context.Context, view string, sub orderports.Subscription) orderports.Subscription {
	s.metrics.recordSubscription(ctx, view, 1)
	return &trackedSubscription{Subscription: sub, release: func() {
		s.metrics.recordSubscription(context.WithoutCancel(ctx), view, -1)
	}}
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) logError(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.logError(ctx, msg, err, attrs...)
	return err
}

type trackedSubscription struct {
	orderports.Subscription
	once    sync.Once
	release func()
}

func (t *trackedSubscription) Close() {
	t.Subscription.Close()
	t.once.Do(t.release)
}

type serviceMetrics struct {
	ordersCreated  metric.Int64Counter
	statusUpdates  metric.Int64Counter
	paymentUpdates metric.Int64Counter
	subscriptions  metric.Int64UpDownCounter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	ordersCreated, _ := m.Int64Counter("orders.service.orders_created", metric.WithDescription("Number of orders created"))
	statusUpdates, _ := m.Int64Counter("orders.service.status_updates", metric.WithDescription("Number of order status updates"))
	paymentUpdates, _ := m.Int64Counter("orders.service.payment_updates", metric.WithDescription("Number of payment status updates"))
	subscriptions, _ := m.Int64UpDownCounter("orders.service.subscriptions", metric.WithDescription("Open live order views"))
	return serviceMetrics{
		ordersCreated:  ordersCreated,
		statusUpdates:  statusUpdates,
		paymentUpdates: paymentUpdates,
		subscriptions:  subscriptions,
	}
}

func (m serviceMetrics) recordCreated(ctx context.Context, method orderdomain.PaymentMethod) {
	if m.ordersCreated != nil {
		m.ordersCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("payment.method", string(method))))
	}
}

func (m serviceMetrics) recordStatus(ctx context.Context, status orderdomain.Status) {
	if m.statusUpdates != nil {
		m.statusUpdates.Add(ctx, 1, metric.WithAttributes(attribute.String("order.status", string(status))))
	}
}

func (m serviceMetrics) recordPayment(ctx context.Context, status orderdomain.PaymentStatus) {
	if m.paymentUpdates != nil {
		m.paymentUpdates.Add(ctx, 1, metric.WithAttributes(attribute.String("payment.status", string(status))))
	}
}

func (m serviceMetrics) recordSubscription(ctx context.Context, view string, delta int64) {
	if m.subscriptions != nil {
		m.subscriptions.Add(ctx, delta, metric.WithAttributes(attribute.String("view", view)))
	}
}

var _ orderports.Service = (*Service)(nil)
