package mapper

import (
	"errors"
	"fmt"

	validatorv10 "github.com/go-playground/validator/v10"

	orderdomain "github.com/Apurer/go-gin-orders-server/internal/domains/orders/domain"
)

// NewValidator returns a validator with the checkout total rule registered.
func NewValidator() *validatorv10.Validate {
	v := validatorv10.New()
	v.RegisterStructValidation(checkoutStructValidation, CheckoutRequest{})
	return v
}

// checkoutStructValidation requires total to equal the items sum to the cent.
func checkoutStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CheckoutRequest)
	if len(req.Items) == 0 {
		return
	}
	items := ToDomainItems(req.Items)
	if !orderdomain.TotalMatchesItems(req.Total, items) {
		sl.ReportError(req.Total, "total", "Total", "total_matches_items",
			fmt.Sprintf("%.2f", orderdomain.ItemsTotal(items)))
	}
}

// FieldErrors flattens validation errors for a problem response.
func FieldErrors(err error) map[string]string {
	out := map[string]string{}
	var ve validatorv10.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			msg := fe.Tag()
			if fe.Param() != "" {
				msg += "=" + fe.Param()
			}
			out[fe.Namespace()] = msg
		}
		return out
	}
	out["body"] = err.Error()
	return out
}
