package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/adapters/http/mapper"
	orderdomain "github.com/Apurer/go-gin-orders-server/internal/domains/orders/domain"
)

// Get /v1/admin/orders
// Lists every order, newest first, narrowed by search, status and paymentStatus
func (api *OrdersAPI) ListOrders(c *gin.Context) {
	filter, ok := api.filterFromQuery(c)
	if !ok {
		return
	}
	if !api.orders.Loaded() {
		api.respondNotReady(c)
		return
	}
	c.JSON(http.StatusOK, mapper.FromDomainOrders(filter.Apply(api.orders.Orders())))
}

// Get /v1/admin/orders/stats
// Returns the dashboard counters for the latest snapshot
func (api *OrdersAPI) Stats(c *gin.Context) {
	if !api.orders.Loaded() {
		api.respondNotReady(c)
		return
	}
	c.JSON(http.StatusOK, mapper.FromDomainStats(api.orders.Stats()))
}

// Patch /v1/admin/orders/:id/status
// Moves an order to a new status
func (api *OrdersAPI) UpdateStatus(c *gin.Context) {
	id, ok := api.orderIDParam(c)
	if !ok {
		return
	}
	var payload mapper.StatusUpdate
	if !api.bindAndValidate(c, &payload) {
		return
	}
	if err := api.orders.UpdateOrderStatus(c.Request.Context(), id, orderdomain.Status(payload.Status)); err != nil {
		api.respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Patch /v1/admin/orders/:id/payment
// Sets the payment status, optionally replacing the reference
func (api *OrdersAPI) UpdatePayment(c *gin.Context) {
	id, ok := api.orderIDParam(c)
	if !ok {
		return
	}
	var payload mapper.PaymentUpdate
	if !api.bindAndValidate(c, &payload) {
		return
	}
	status := orderdomain.PaymentStatus(payload.PaymentStatus)
	if err := api.orders.UpdatePaymentStatus(c.Request.Context(), id, status, payload.PaymentReference); err != nil {
		api.respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
