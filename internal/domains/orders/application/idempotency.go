package application

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/domain"
)

type normalizedDraft struct {
	UserID          string           `json:"userId"`
	UserEmail       string           `json:"userEmail"`
	Items           []normalizedItem `json:"items"`
	Total           string           `json:"total"`
	PaymentMethod   string           `json:"paymentMethod"`
	DeliveryMethod  string           `json:"deliveryMethod"`
	DeliveryAddress string           `json:"deliveryAddress"`
	Message         string           `json:"message"`
}

type normalizedItem struct {
	ID       string `json:"id"`
	Price    string `json:"price"`
	Quantity int    `json:"quantity"`
}

// FingerprintDraft hashes the parts of a draft that identify a purchase.
// Item order is kept: a reordered cart is treated as a different request.
func FingerprintDraft(draft domain.Draft) (string, error) {
	normalized := normalizedDraft{
		UserID:          draft.UserID,
		UserEmail:       draft.UserEmail,
		Items:           make([]normalizedItem, 0, len(draft.Items)),
		Total:           formatAmount(draft.Total),
		PaymentMethod:   string(draft.PaymentMethod),
		DeliveryMethod:  string(draft.DeliveryMethod),
		DeliveryAddress: draft.DeliveryAddress,
		Message:         draft.Message,
	}
	for _, item := range draft.Items {
		normalized.Items = append(normalized.Items, normalizedItem{ID: item.ID, Price: formatAmount(item.Price), Quantity: item.Quantity})
	}
	payload, err := json.Marshal(normalized)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

func formatAmount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
