// Package domain holds the payment-gateway helpers the checkout flow relies on.
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Apurer/go-gin-orders-server/internal/shared/randid"
)

// ReferencePrefix marks gateway references minted by this service.
const ReferencePrefix = "AGF"

// Currency is the settlement currency used with the gateway.
const Currency = "NGN"

var hundred = decimal.NewFromInt(100)

// NewReference mints "AGF_<unix ms>_<9 lowercase base36>".
func NewReference(now time.Time) string {
	return fmt.Sprintf("%s_%d_%s", ReferencePrefix, now.UnixMilli(), randid.Base36(9))
}

// ToKobo converts a naira amount to the gateway's minor unit, rounding half away from zero.
func ToKobo(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(hundred).Round(0).IntPart()
}

// FromKobo converts minor units back to naira.
func FromKobo(kobo int64) float64 {
	value, _ := decimal.NewFromInt(kobo).Div(hundred).Float64()
	return value
}
