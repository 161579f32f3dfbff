package telemetry

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}

	cfg.Logging.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid log level")
	}

	cfg = DefaultConfig()
	cfg.Tracing.Enabled = true
	cfg.Tracing.Exporter = "jaeger"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unsupported exporter")
	}

	cfg = DefaultConfig()
	cfg.Tracing.SamplingRate = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for out-of-range sampling rate")
	}
}

func TestProductionConfig(t *testing.T) {
	cfg := ProductionConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("production config should be valid: %v", err)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected json logging in production, got %s", cfg.Logging.Format)
	}
	if cfg.Tracing.Exporter != "otlp" {
		t.Errorf("expected otlp exporter in production, got %s", cfg.Tracing.Exporter)
	}
}

func TestEventPublishSync(t *testing.T) {
	ep, err := NewEventPublisher(EventsConfig{
		Enabled:    true,
		BufferSize: 10,
	})
	if err != nil {
		t.Fatalf("failed to create publisher: %v", err)
	}

	var received []Event
	ep.Subscribe(func(event Event) {
		received = append(received, event)
	}, nil)

	if err := ep.PublishRunStarted("run-001", "contact-center"); err != nil {
		t.Fatalf("failed to publish: %v", err)
	}

	if len(received) != 1 {
		t.Fatalf("expected 1 event, got %d", len(received))
	}
	if received[0].Type != EventTypeRunStarted {
		t.Errorf("expected type %s, got %s", EventTypeRunStarted, received[0].Type)
	}
	if received[0].ID == "" {
		t.Error("expected event ID to be assigned")
	}
	if received[0].RunID != "run-001" {
		t.Errorf("expected run ID run-001, got %s", received[0].RunID)
	}
}

func TestEventFilters(t *testing.T) {
	ep, err := NewEventPublisher(EventsConfig{
		Enabled:    true,
		BufferSize: 10,
	})
	if err != nil {
		t.Fatalf("failed to create publisher: %v", err)
	}

	var errorsOnly []Event
	ep.Subscribe(func(event Event) {
		errorsOnly = append(errorsOnly, event)
	}, FilterByLevel(EventLevelError))

	if err := ep.PublishRunStarted("run-001", "contact-center"); err != nil {
		t.Fatalf("failed to publish: %v", err)
	}
	if err := ep.PublishRunFailed("run-001", "provider unreachable"); err != nil {
		t.Fatalf("failed to publish: %v", err)
	}

	if len(errorsOnly) != 1 {
		t.Fatalf("expected 1 error event, got %d", len(errorsOnly))
	}
	if errorsOnly[0].Type != EventTypeRunFailed {
		t.Errorf("expected type %s, got %s", EventTypeRunFailed, errorsOnly[0].Type)
	}
}

func TestEventAsyncShutdownDrains(t *testing.T) {
	ep, err := NewEventPublisher(EventsConfig{
		Enabled:     true,
		BufferSize:  10,
		EnableAsync: true,
	})
	if err != nil {
		t.Fatalf("failed to create publisher: %v", err)
	}

	done := make(chan Event, 10)
	ep.Subscribe(func(event Event) {
		done <- event
	}, nil)

	if err := ep.PublishSessionStarted("sess-1", "booking", "en_GB"); err != nil {
		t.Fatalf("failed to publish: %v", err)
	}

	select {
	case event := <-done:
		if event.SessionID != "sess-1" {
			t.Errorf("expected session sess-1, got %s", event.SessionID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for async delivery")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := ep.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
}

func TestMetricsHandler(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{
		Enabled:   true,
		Namespace: "dialtone",
		Path:      "/metrics",
	})
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	m.RecordResourceProvisioned("queue", 200*time.Millisecond)
	m.RecordProvisionFailure("user")
	m.RecordSessionStarted("booking", "en_GB")
	m.RecordSlotRetry("booking", "RoomType")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{
		"dialtone_resources_provisioned_total",
		"dialtone_provision_failures_total",
		"dialtone_dialog_sessions_total",
		"dialtone_slot_retries_total",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected metric %s in output", want)
		}
	}
}

func TestMetricsDisabledNoOp(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	// Must not panic
	m.RecordRunStarted("contact-center")
	m.RecordRunCompleted("completed", time.Second)
	m.RecordResourceProvisioned("queue", time.Second)
	m.RecordSessionStarted("booking", "en_GB")
	m.RecordSessionEnded()
}

func TestLoggerComponentFields(t *testing.T) {
	logger, err := NewLogger(LoggingConfig{
		Level:  "debug",
		Format: "json",
		Output: "stderr",
	})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	child := logger.NewComponentLogger("compose").
		WithRunID("run-001").
		WithResource("queue", "billing")
	if child == nil {
		t.Fatal("expected child logger")
	}

	ctx := child.WithContext(context.Background())
	if got := FromContext(ctx); got != child {
		t.Error("expected logger round-trip through context")
	}
}

func TestTelemetryRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Metrics.Enabled = false
	cfg.Events.EnableAsync = false

	tel, err := NewTelemetry(cfg)
	if err != nil {
		t.Fatalf("failed to create telemetry: %v", err)
	}

	ctx := tel.WithContext(context.Background())
	if got := FromTelemetryContext(ctx); got != tel {
		t.Error("expected telemetry round-trip through context")
	}
	if FromTelemetryContext(context.Background()) != nil {
		t.Error("expected nil telemetry from empty context")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := tel.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
}
