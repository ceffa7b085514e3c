package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"

	orderapp "github.com/Apurer/go-gin-orders-server/internal/domains/orders/application"
	orderdomain "github.com/Apurer/go-gin-orders-server/internal/domains/orders/domain"
	orderports "github.com/Apurer/go-gin-orders-server/internal/domains/orders/ports"
	apierrors "github.com/Apurer/go-gin-orders-server/internal/shared/errors"
)

// newResponder maps order errors to problems. Not-found is checked before
// persistence because the store's ErrNotFound arrives wrapped in ErrPersistence.
func newResponder() *apierrors.Responder {
	return apierrors.NewResponder(apierrors.WithMappers(
		apierrors.MapSentinel(orderports.ErrNotFound, apierrors.ErrNotFound),
		apierrors.MapSentinel(orderapp.ErrValidation, apierrors.ErrValidation),
		apierrors.MapSentinel(orderports.ErrIdempotencyConflict, apierrors.ErrConflict),
		apierrors.MapSentinel(orderapp.ErrPersistence, apierrors.ErrUnavailable),
	))
}

func (api *OrdersAPI) orderIDParam(c *gin.Context) (string, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", c.Param("id"), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil || strings.TrimSpace(id) == "" {
		api.responder.BadRequest(c, "invalid order id")
		return "", false
	}
	return id, true
}

// filterFromQuery reads search, status and paymentStatus; unknown enum values are rejected.
func (api *OrdersAPI) filterFromQuery(c *gin.Context) (orderdomain.Filter, bool) {
	var filter orderdomain.Filter
	query := c.Request.URL.Query()
	for name, dest := range map[string]*string{
		"search":        &filter.Search,
		"status":        &filter.Status,
		"paymentStatus": &filter.PaymentStatus,
	} {
		if err := runtime.BindQueryParameter("form", true, false, name, query, dest); err != nil {
			api.responder.BadRequest(c, err.Error())
			return orderdomain.Filter{}, false
		}
	}
	if s := filter.Status; s != "" && s != orderdomain.FilterAll && !orderdomain.Status(s).Valid() {
		api.responder.ValidationFailed(c, map[string]string{"status": "must be all or one of " + oneOf(orderdomain.Statuses())})
		return orderdomain.Filter{}, false
	}
	if s := filter.PaymentStatus; s != "" && s != orderdomain.FilterAll && !orderdomain.PaymentStatus(s).Valid() {
		api.responder.ValidationFailed(c, map[string]string{"paymentStatus": "must be all or one of " + oneOf(orderdomain.PaymentStatuses())})
		return orderdomain.Filter{}, false
	}
	return filter, true
}

func oneOf[T ~string](values []T) string {
	names := make([]string, 0, len(values))
	for _, v := range values {
		names = append(names, string(v))
	}
	return strings.Join(names, ", ")
}

func originChecker(origins []string) func(r *http.Request) bool {
	allowed := map[string]struct{}{}
	for _, origin := range origins {
		if origin = strings.TrimSpace(origin); origin != "" && origin != "*" {
			allowed[strings.ToLower(origin)] = struct{}{}
		}
	}
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[strings.ToLower(origin)]
		return ok
	}
}
