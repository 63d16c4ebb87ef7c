package otel

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestNewProviders_EmptyEndpointIsNoop(t *testing.T) {
	ctx := context.Background()
	for _, endpoint := range []string{"", "   "} {
		providers, err := NewProviders(ctx, endpoint, "archipelago-api", false)
		if err != nil {
			t.Fatalf("NewProviders(%q): %v", endpoint, err)
		}
		if providers.TracerProvider == nil || providers.MeterProvider == nil || providers.LoggerProvider == nil {
			t.Fatal("expected all providers to be constructed")
		}
		if err := providers.Shutdown(ctx); err != nil {
			t.Errorf("first shutdown: %v", err)
		}
		if err := providers.Shutdown(ctx); err != nil {
			t.Errorf("second shutdown: %v", err)
		}
	}
}

func TestNewProviders_RejectsMalformedEndpoint(t *testing.T) {
	ctx := context.Background()
	for _, endpoint := range []string{"://invalid", "http://[invalid", "http://"} {
		if _, err := NewProviders(ctx, endpoint, "archipelago-api", false); err == nil {
			t.Errorf("NewProviders(%q): expected error", endpoint)
		}
	}
}

func TestSetGlobal(t *testing.T) {
	ctx := context.Background()
	providers, err := NewProviders(ctx, "", "archipelago-api", false)
	if err != nil {
		t.Fatalf("NewProviders: %v", err)
	}

	oldTracer := otel.GetTracerProvider()
	oldMeter := otel.GetMeterProvider()
	defer func() {
		otel.SetTracerProvider(oldTracer)
		otel.SetMeterProvider(oldMeter)
	}()

	providers.SetGlobal()

	if otel.GetTracerProvider() == oldTracer {
		t.Error("global TracerProvider was not replaced")
	}
	if otel.GetMeterProvider() == oldMeter {
		t.Error("global MeterProvider was not replaced")
	}
}

func TestSetGlobal_NilProvidersAreSkipped(t *testing.T) {
	oldTracer := otel.GetTracerProvider()
	oldMeter := otel.GetMeterProvider()

	p := &Providers{Shutdown: func(context.Context) error { return nil }}
	p.SetGlobal()

	if otel.GetTracerProvider() != oldTracer {
		t.Error("nil TracerProvider should leave the global untouched")
	}
	if otel.GetMeterProvider() != oldMeter {
		t.Error("nil MeterProvider should leave the global untouched")
	}
}
