// Command order-stats prints the dashboard statistics for the configured store as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/Apurer/go-gin-orders-server/internal/app/api"
	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/adapters/http/mapper"
	orderapp "github.com/Apurer/go-gin-orders-server/internal/domains/orders/application"
	orderdomain "github.com/Apurer/go-gin-orders-server/internal/domains/orders/domain"
	platformobservability "github.com/Apurer/go-gin-orders-server/internal/platform/observability"
)

type report struct {
	GeneratedAt time.Time         `json:"generatedAt"`
	Store       string            `json:"store"`
	Stats       mapper.OrderStats `json:"stats"`
}

func main() {
	timeout := flag.Duration("timeout", 30*time.Second, "how long to wait for the first snapshot")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to read .env: %v", err)
	}
	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	settings := platformobservability.SettingsFromEnv("order-stats")
	settings.LogText, settings.LogOutput = true, os.Stderr
	logger := platformobservability.NewLogger(settings)
	stores, closeStores, err := api.OpenStores(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to open order store: %v", err)
	}
	defer closeStores()

	svc := orderapp.NewService(stores.Documents, orderapp.WithLocation(cfg.StatsLocation))
	orders, err := orderapp.FirstSnapshot(ctx, svc.SubscribeAllOrders)
	if err != nil {
		log.Fatalf("failed to read orders: %v", err)
	}

	now := time.Now()
	out := report{
		GeneratedAt: now.UTC(),
		Store:       string(cfg.Store),
		Stats:       mapper.FromDomainStats(orderdomain.ComputeStats(orders, now.In(cfg.StatsLocation))),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("failed to write report: %v", err)
	}
}
