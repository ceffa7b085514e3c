//go:build pact
// +build pact

package pacttest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/Apurer/go-gin-orders-server/internal/platform/auth"
)

const (
	ProviderName = "orders-api"
	ConsumerName = "agromyfoods-storefront"

	StateOrdersBaseline = "orders baseline"
	StateOrderExists    = "customer pact-user has order AGF-1714557600000-PACT01"
	StateOrderMissing   = "no order AGF-1714557600000-NOPE00"
)

const (
	ExistingOrderID = "AGF-1714557600000-PACT01"
	MissingOrderID  = "AGF-1714557600000-NOPE00"

	CustomerID    = "pact-user"
	CustomerEmail = "pact.user@example.com"

	// TokenSecret is shared by the consumer token and the provider verifier.
	TokenSecret = "pact-contract-secret"
)

var tokenIssuedAt = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

// CustomerToken returns a stable bearer token for the pact customer. The
// fixed clock keeps the recorded Authorization header identical between runs.
func CustomerToken(t testing.TB) string {
	t.Helper()
	issuer, err := auth.NewVerifier(TokenSecret, auth.WithClock(func() time.Time { return tokenIssuedAt }))
	if err != nil {
		t.Fatalf("create token issuer: %v", err)
	}
	token, err := issuer.Issue(auth.Principal{UserID: CustomerID, Email: CustomerEmail}, 50*365*24*time.Hour)
	if err != nil {
		t.Fatalf("issue pact token: %v", err)
	}
	return token
}

// PactDir returns the workspace-level directory for generated pact files.
func PactDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "pacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact dir: %v", err)
	}
	return dir
}

// PactFile returns the canonical pact file path for the storefront consumer.
func PactFile(t testing.TB) string {
	t.Helper()
	return filepath.Join(PactDir(t), ConsumerName+"-"+ProviderName+".json")
}

// LogDir returns the log output directory for pact-go.
func LogDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "bin", "pact-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact log dir: %v", err)
	}
	return dir
}

// ExampleCheckoutPayload is the storefront cart submitted at checkout.
func ExampleCheckoutPayload() map[string]any {
	return map[string]any{
		"userName":       "Pact User",
		"userPhone":      "+2348012345678",
		"items":          []map[string]any{{"id": "palm-oil-5l", "name": "Palm oil 5L", "price": 2500.0, "quantity": 2}},
		"total":          5000.0,
		"paymentMethod":  "bank_transfer",
		"deliveryMethod": "pickup",
	}
}

// projectRoot walks up from this file to the workspace root.
func projectRoot(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine caller for pact paths")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}
