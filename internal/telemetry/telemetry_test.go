package telemetry

import (
	"context"
	"testing"
)

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	shutdown := Setup(context.Background(), "ticket-service")
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("expected nil shutdown error, got %v", err)
	}
}

func TestEnvironmentFallback(t *testing.T) {
	t.Setenv("APP_ENV", "")
	if got := environment(); got != "production" {
		t.Fatalf("expected production, got %s", got)
	}
	t.Setenv("APP_ENV", "kiosk")
	if got := environment(); got != "kiosk" {
		t.Fatalf("expected kiosk, got %s", got)
	}
}
