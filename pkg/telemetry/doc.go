// Package telemetry provides observability instrumentation for the backend
// selection engine.
//
// The package integrates structured logging (zerolog), distributed tracing
// (OpenTelemetry), metrics (Prometheus), and the lifecycle event stream into
// a unified system for monitoring and debugging selection runs.
//
// # Architecture
//
// The telemetry system is built on four pillars:
//
//  1. Structured Logging - Context-aware logging with zerolog
//  2. Distributed Tracing - OpenTelemetry traces with multiple exporters
//  3. Metrics Collection - Prometheus metrics for probe, selection and
//     lifecycle behavior
//  4. Event Publishing - Ordered lifecycle event stream with subscriptions
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceName = "gfxsel"
//	cfg.ServiceVersion = "1.0.0"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
// Add telemetry to context:
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
// The logger provides component-specific logging with automatic context
// propagation:
//
//	logger := tel.Logger.NewComponentLogger("lifecycle")
//	logger = logger.WithRunID(runID).WithFamily("vulkan")
//	logger.Info("probing backend")
//	logger.WithError(err).Error("initialization failed")
//
// Log levels: trace, debug, info, warn, error, fatal
//
// # Metrics
//
// Prometheus metrics track probe, selection and lifecycle behavior:
//
//	tel.Metrics.RecordProbe("vulkan", "available", duration)
//	tel.Metrics.RecordSelection("highest-score", "succeeded", duration)
//	tel.Metrics.RecordInitAttempt("vulkan", "failed")
//	tel.Metrics.RecordHotReload("succeeded")
//
// Metrics are exposed via HTTP at /metrics (default: :9464/metrics)
//
// # Event Publishing
//
// The event stream delivers every lifecycle transition in publish order:
//
//	id := tel.Events.Subscribe(func(event telemetry.Event) {
//	    fmt.Printf("%s %s\n", event.Type, event.Message)
//	}, telemetry.FilterByLevel("warning"))
//	defer tel.Events.Unsubscribe(id)
//
// Event filters: FilterByLevel, FilterByType, FilterByFamily
//
// # Configuration
//
// The package provides pre-configured setups for different environments:
//
//	// Development (verbose logging, stdout traces, full sampling)
//	cfg := telemetry.DevelopmentConfig()
//
//	// Production (JSON logs, OTLP traces, 10% sampling)
//	cfg := telemetry.ProductionConfig()
//
// # Graceful Shutdown
//
// Always shut down telemetry gracefully to flush pending data:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//
//	if err := tel.Shutdown(ctx); err != nil {
//	    log.Printf("telemetry shutdown error: %v", err)
//	}
//
// This drains the buffered event stream and exports any pending traces.
package telemetry
