package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	"go.temporal.io/sdk/interceptor"
	temporallog "go.temporal.io/sdk/log"

	platformobservability "github.com/Apurer/go-gin-orders-server/internal/platform/observability"
)

// ErrTemporalDisabled is returned by DialTemporal when TEMPORAL_DISABLED is set.
var ErrTemporalDisabled = errors.New("temporal disabled via TEMPORAL_DISABLED env")

const temporalDialTimeout = 5 * time.Second

// DialTemporal connects to the configured namespace with tracing and metrics
// reported under component. It gives up after a few seconds so callers can
// fall back to running checkout inline.
func DialTemporal(ctx context.Context, cfg Config, instruments *platformobservability.Instruments, component string) (client.Client, error) {
	if cfg.TemporalDisabled {
		return nil, ErrTemporalDisabled
	}
	if instruments == nil {
		return nil, errors.New("temporal: instruments are required")
	}
	tracing, err := temporalotel.NewTracingInterceptor(temporalotel.TracerOptions{
		Tracer: instruments.Tracer(component),
	})
	if err != nil {
		return nil, fmt.Errorf("temporal tracing interceptor: %w", err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, temporalDialTimeout)
	defer cancel()
	c, err := client.DialContext(dialCtx, client.Options{
		HostPort:       cfg.TemporalAddress,
		Namespace:      cfg.TemporalNamespace,
		Logger:         temporallog.NewStructuredLogger(instruments.Logger.With("component", component)),
		MetricsHandler: temporalotel.NewMetricsHandler(temporalotel.MetricsHandlerOptions{Meter: instruments.Meter(component)}),
		Interceptors:   []interceptor.ClientInterceptor{tracing},
	})
	if err != nil {
		return nil, fmt.Errorf("dial temporal at %s: %w", cfg.TemporalAddress, err)
	}
	return c, nil
}
