package api

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.temporal.io/sdk/client"

	orderdomain "github.com/Apurer/go-gin-orders-server/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-orders-server/internal/platform/auth"
)

// StoreKind selects the order document store.
type StoreKind string

const (
	StoreMemory   StoreKind = "memory"
	StorePostgres StoreKind = "postgres"
	StoreMongo    StoreKind = "mongo"
)

const defaultMongoDatabase = "agromyfoods"

// Config carries environment-driven settings for the orders processes.
type Config struct {
	Port              string
	Store             StoreKind
	PostgresDSN       string
	MongoURI          string
	MongoDatabase     string
	TemporalAddress   string
	TemporalNamespace string
	TemporalDisabled  bool
	AdminEmails       auth.AdminList
	JWTSecret         string
	JWTIssuer         string
	AllowedOrigins    []string
	StatusPolicy      orderdomain.TransitionPolicy
	StatsLocation     *time.Location
}

// LoadConfig reads environment variables, applies defaults, and validates basic constraints.
func LoadConfig() (Config, error) {
	cfg := Config{
		Port:              envDefault("PORT", "8080"),
		Store:             StoreKind(strings.ToLower(envDefault("ORDER_STORE", string(StoreMemory)))),
		PostgresDSN:       strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		MongoURI:          strings.TrimSpace(os.Getenv("MONGO_URI")),
		MongoDatabase:     envDefault("MONGO_DATABASE", defaultMongoDatabase),
		TemporalAddress:   envDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		TemporalNamespace: envDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		TemporalDisabled:  isTruthy(os.Getenv("TEMPORAL_DISABLED")),
		AdminEmails:       auth.ParseAdminList(envDefault("ADMIN_EMAILS", auth.DefaultAdminEmails)),
		JWTSecret:         strings.TrimSpace(os.Getenv("AUTH_JWT_SECRET")),
		JWTIssuer:         strings.TrimSpace(os.Getenv("AUTH_JWT_ISSUER")),
		AllowedOrigins:    splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}

	switch cfg.Store {
	case StoreMemory:
	case StorePostgres:
		if cfg.PostgresDSN == "" {
			return Config{}, fmt.Errorf("ORDER_STORE=postgres requires POSTGRES_DSN")
		}
	case StoreMongo:
		if cfg.MongoURI == "" {
			return Config{}, fmt.Errorf("ORDER_STORE=mongo requires MONGO_URI")
		}
	default:
		return Config{}, fmt.Errorf("ORDER_STORE must be one of memory, postgres, mongo; got %q", cfg.Store)
	}

	policy, err := orderdomain.PolicyByName(strings.ToLower(strings.TrimSpace(os.Getenv("ORDER_STATUS_POLICY"))))
	if err != nil {
		return Config{}, fmt.Errorf("ORDER_STATUS_POLICY must be permissive or strict: %w", err)
	}
	cfg.StatusPolicy = policy

	cfg.StatsLocation = time.Local
	if zone := strings.TrimSpace(os.Getenv("STATS_TIMEZONE")); zone != "" {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			return Config{}, fmt.Errorf("STATS_TIMEZONE %q: %w", zone, err)
		}
		cfg.StatsLocation = loc
	}
	return cfg, nil
}

// DurableCheckout reports whether checkout should run as a Temporal workflow.
// The memory store lives in one process, so a worker could never write to it.
func (c Config) DurableCheckout() bool {
	return !c.TemporalDisabled && c.Store != StoreMemory
}

func envDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func isTruthy(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "yes"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
