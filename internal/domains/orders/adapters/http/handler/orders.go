// Package handler exposes the orders service over HTTP and websockets.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/adapters/http/mapper"
	orderapp "github.com/Apurer/go-gin-orders-server/internal/domains/orders/application"
	orderdomain "github.com/Apurer/go-gin-orders-server/internal/domains/orders/domain"
	orderports "github.com/Apurer/go-gin-orders-server/internal/domains/orders/ports"
	paydomain "github.com/Apurer/go-gin-orders-server/internal/domains/payments/domain"
	"github.com/Apurer/go-gin-orders-server/internal/platform/auth"
	apierrors "github.com/Apurer/go-gin-orders-server/internal/shared/errors"
)

// IdempotencyKeyHeader carries the client retry key on checkout.
const IdempotencyKeyHeader = "Idempotency-Key"

const defaultSnapshotTimeout = 10 * time.Second

// OrdersAPI wires HTTP transport with the orders service and checkout flow.
type OrdersAPI struct {
	orders    orderports.Service
	checkout  orderports.CheckoutOrchestrator
	verifier  *auth.Verifier
	admins    auth.AdminList
	validate  *validatorv10.Validate
	responder *apierrors.Responder
	upgrader  websocket.Upgrader
	logger    *slog.Logger
	now       func() time.Time
	location  *time.Location

	snapshotTimeout time.Duration
}

type Option func(*OrdersAPI)

func WithLogger(logger *slog.Logger) Option {
	return func(api *OrdersAPI) {
		if logger != nil {
			api.logger = logger
		}
	}
}

// WithAllowedOrigins restricts websocket upgrades to the listed origins. Empty allows any.
func WithAllowedOrigins(origins []string) Option {
	return func(api *OrdersAPI) {
		api.upgrader.CheckOrigin = originChecker(origins)
	}
}

// WithClock overrides the time source used for stats and payment references.
func WithClock(now func() time.Time) Option {
	return func(api *OrdersAPI) {
		if now != nil {
			api.now = now
		}
	}
}

// WithLocation sets the zone for the stats pushed on the admin stream.
func WithLocation(loc *time.Location) Option {
	return func(api *OrdersAPI) {
		if loc != nil {
			api.location = loc
		}
	}
}

// WithSnapshotTimeout bounds how long GET /me/orders waits for the first snapshot.
func WithSnapshotTimeout(d time.Duration) Option {
	return func(api *OrdersAPI) {
		if d > 0 {
			api.snapshotTimeout = d
		}
	}
}

// NewOrdersAPI creates an OrdersAPI backed by the provided service and checkout.
func NewOrdersAPI(orders orderports.Service, checkout orderports.CheckoutOrchestrator, verifier *auth.Verifier, admins auth.AdminList, opts ...Option) *OrdersAPI {
	api := &OrdersAPI{
		orders:          orders,
		checkout:        checkout,
		verifier:        verifier,
		admins:          admins,
		validate:        mapper.NewValidator(),
		responder:       newResponder(),
		logger:          slog.Default(),
		now:             time.Now,
		location:        time.Local,
		snapshotTimeout: defaultSnapshotTimeout,
	}
	api.upgrader.CheckOrigin = originChecker(nil)
	for _, opt := range opts {
		if opt != nil {
			opt(api)
		}
	}
	return api
}

// Register mounts the order routes under r.
func (api *OrdersAPI) Register(r gin.IRouter) {
	session := auth.RequireSession(api.verifier, api.admins)

	orders := r.Group("/orders", session)
	orders.POST("", api.CreateOrder)
	orders.GET("/:id", api.GetOrder)
	orders.POST("/:id/payment", api.RecordPayment)
	orders.POST("/:id/payment/init", api.InitPayment)

	me := r.Group("/me")
	me.GET("/orders", session, api.MyOrders)
	// The stream authenticates through its own session messages.
	me.GET("/orders/stream", api.MyOrdersStream)

	admin := r.Group("/admin", session, auth.RequireAdmin())
	admin.GET("/orders", api.ListOrders)
	admin.GET("/orders/stats", api.Stats)
	admin.GET("/orders/stream", api.AdminOrdersStream)
	admin.PATCH("/orders/:id/status", api.UpdateStatus)
	admin.PATCH("/orders/:id/payment", api.UpdatePayment)
}

// Post /v1/orders
// Places an order for the signed-in customer
func (api *OrdersAPI) CreateOrder(c *gin.Context) {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		api.responder.Respond(c, apierrors.ErrUnauthorized)
		return
	}
	var payload mapper.CheckoutRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		api.responder.BadRequest(c, err.Error())
		return
	}
	if err := api.validate.Struct(payload); err != nil {
		api.responder.ValidationFailed(c, mapper.FieldErrors(err))
		return
	}
	req := mapper.ToCheckoutRequest(payload, principal.UserID, principal.Email, c.GetHeader(IdempotencyKeyHeader))
	result, err := api.checkout.Checkout(c.Request.Context(), req)
	if err != nil {
		api.respondServiceError(c, err)
		return
	}
	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, mapper.CheckoutResponse{OrderID: result.OrderID, Replayed: result.Replayed})
}

// Get /v1/orders/:id
// Finds an order the caller owns, or any order for admins
func (api *OrdersAPI) GetOrder(c *gin.Context) {
	order, ok := api.visibleOrder(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, mapper.FromDomainOrder(order))
}

// Post /v1/orders/:id/payment
// Records the gateway outcome for the caller's order
func (api *OrdersAPI) RecordPayment(c *gin.Context) {
	order, ok := api.visibleOrder(c)
	if !ok {
		return
	}
	var payload mapper.PaymentUpdate
	if !api.bindAndValidate(c, &payload) {
		return
	}
	if payload.Amount != nil && *payload.Amount != paydomain.ToKobo(order.Total) {
		api.responder.ValidationFailed(c, map[string]string{
			"amount": fmt.Sprintf("charged %.2f %s, order total is %.2f", paydomain.FromKobo(*payload.Amount), paydomain.Currency, order.Total),
		})
		return
	}
	status := orderdomain.PaymentStatus(payload.PaymentStatus)
	if err := api.orders.UpdatePaymentStatus(c.Request.Context(), order.ID, status, payload.PaymentReference); err != nil {
		api.respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Post /v1/orders/:id/payment/init
// Mints a gateway reference and amount for a card payment
func (api *OrdersAPI) InitPayment(c *gin.Context) {
	order, ok := api.visibleOrder(c)
	if !ok {
		return
	}
	if order.PaymentMethod != orderdomain.PaymentMethodPaystack {
		api.responder.Respond(c, apierrors.ErrConflict.WithDetail("order is not paid by card"))
		return
	}
	if order.PaymentStatus == orderdomain.PaymentPaid {
		api.responder.Respond(c, apierrors.ErrConflict.WithDetail("order is already paid"))
		return
	}
	c.JSON(http.StatusOK, mapper.PaymentInit{
		OrderID:   order.ID,
		Email:     order.UserEmail,
		Reference: paydomain.NewReference(api.now()),
		Amount:    paydomain.ToKobo(order.Total),
		Currency:  paydomain.Currency,
	})
}

// Get /v1/me/orders
// Lists the caller's orders, newest first
func (api *OrdersAPI) MyOrders(c *gin.Context) {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		api.responder.Respond(c, apierrors.ErrUnauthorized)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), api.snapshotTimeout)
	defer cancel()
	orders, err := orderapp.FirstSnapshot(ctx, func(ctx context.Context, onSnapshot orderports.SnapshotFunc, onError orderports.ErrorFunc) (orderports.Subscription, error) {
		return api.orders.SubscribeUserOrders(ctx, principal.UserID, onSnapshot, onError)
	})
	if err != nil {
		api.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromDomainOrders(orders))
}

// visibleOrder resolves :id against the all-orders cache. Orders owned by
// someone else are reported as missing unless the caller is an admin.
func (api *OrdersAPI) visibleOrder(c *gin.Context) (*orderdomain.Order, bool) {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		api.responder.Respond(c, apierrors.ErrUnauthorized)
		return nil, false
	}
	id, ok := api.orderIDParam(c)
	if !ok {
		return nil, false
	}
	if !api.orders.Loaded() {
		api.respondNotReady(c)
		return nil, false
	}
	order, found := api.orders.GetOrderByID(id)
	if !found || (order.UserID != principal.UserID && !auth.IsAdmin(c)) {
		api.responder.NotFound(c, "order", id)
		return nil, false
	}
	return order, true
}

func (api *OrdersAPI) bindAndValidate(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		api.responder.BadRequest(c, err.Error())
		return false
	}
	if err := api.validate.Struct(out); err != nil {
		api.responder.ValidationFailed(c, mapper.FieldErrors(err))
		return false
	}
	return true
}

func (api *OrdersAPI) respondNotReady(c *gin.Context) {
	if err := api.orders.FeedErr(); err != nil {
		api.respondServiceError(c, err)
		return
	}
	api.responder.Respond(c, apierrors.ErrUnavailable.WithDetail("orders are still loading"))
}

func (api *OrdersAPI) respondServiceError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		api.responder.Respond(c, apierrors.ErrUnavailable.WithDetail("timed out waiting for orders"))
		return
	}
	if !errors.Is(err, orderapp.ErrValidation) && !errors.Is(err, orderports.ErrIdempotencyConflict) {
		api.logger.Error("order request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	}
	api.responder.RespondError(c, err)
}
