package telemetry

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"canvasgrab/lib/configutil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type Telemetry struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
}

func (t Telemetry) Shutdown(ctx context.Context) error {
	errlist := []error{}
	if t.TracerProvider != nil {
		err := t.TracerProvider.Shutdown(ctx)
		if err != nil {
			errlist = append(errlist, err)
		}
	}
	if t.MeterProvider != nil {
		err := t.MeterProvider.Shutdown(ctx)
		if err != nil {
			errlist = append(errlist, err)
		}
	}
	return errors.Join(errlist...)
}

type OtlpConnConfig struct {
	GrpcEndpoint string            `json:"grpc_endpoint"`
	HttpEndpoint string            `json:"http_endpoint"`
	Headers      map[string]string `json:"headers"`
}

func (c OtlpConnConfig) empty() bool {
	return c.GrpcEndpoint == "" && c.HttpEndpoint == ""
}

type OtlpConfig struct {
	Traces  OtlpConnConfig `json:"traces"`
	Metrics OtlpConnConfig `json:"metrics"`
}

type Config struct {
	Otlp OtlpConfig `json:"otlp"`
}

var setupTestEnvironments = map[string]bool{}

// sets up telemetry in a testing environment, ensuring that it isn't
// set up more than once
func SetupForTesting(t testing.TB, serviceName string) func() {
	_, setupAlready := setupTestEnvironments[serviceName]
	if setupAlready {
		return func() {}
	}
	setupTestEnvironments[serviceName] = true

	InitSlog(true)
	tel, err := SetupFromEnv(context.Background(), serviceName)
	if err != nil {
		t.Fatal(err)
	}
	return func() {
		err := tel.Shutdown(context.Background())
		if err != nil {
			t.Fatal(err)
		}
	}
}

// searches up the filesystem from the cwd to find a file
// called telemetry.json5, once found it will then use it
// as a config to setup telemetry. a missing config disables
// export entirely rather than failing.
func SetupFromEnv(ctx context.Context, serviceName string) (Telemetry, error) {
	config, err := configutil.ReadRecursively[Config]("telemetry.json5")
	if errors.Is(err, os.ErrNotExist) {
		return Telemetry{}, nil
	}
	if err != nil {
		return Telemetry{}, err
	}
	return Setup(ctx, serviceName, config)
}

func Setup(ctx context.Context, serviceName string, config Config) (Telemetry, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*15)
	defer cancel()

	r, err := newResource(serviceName)
	if err != nil {
		return Telemetry{}, err
	}

	out := Telemetry{}

	if !config.Otlp.Traces.empty() {
		tracerProvider, err := newTraceProvider(ctx, r, config)
		if err != nil {
			return Telemetry{}, err
		}
		otel.SetTracerProvider(tracerProvider)
		out.TracerProvider = tracerProvider
	}
	if !config.Otlp.Metrics.empty() {
		meterProvider, err := newMetricProvider(ctx, r, config)
		if err != nil {
			return Telemetry{}, err
		}
		otel.SetMeterProvider(meterProvider)
		out.MeterProvider = meterProvider
	}

	return out, nil
}

func newResource(serviceName string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
}

func newTraceProvider(ctx context.Context, r *resource.Resource, config Config) (*trace.TracerProvider, error) {
	exporter, err := otlpTracerExportFromConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	traceProvider := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(r),
	)
	return traceProvider, nil
}

func otlpTracerExportFromConfig(ctx context.Context, c Config) (trace.SpanExporter, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*3)
	defer cancel()

	if c.Otlp.Traces.GrpcEndpoint != "" {
		return otlptracegrpc.New(
			ctx,
			otlptracegrpc.WithEndpointURL(c.Otlp.Traces.GrpcEndpoint),
			otlptracegrpc.WithHeaders(c.Otlp.Traces.Headers),
		)
	}
	return otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpointURL(c.Otlp.Traces.HttpEndpoint),
		otlptracehttp.WithHeaders(c.Otlp.Traces.Headers),
	)
}

func newMetricProvider(ctx context.Context, r *resource.Resource, config Config) (*metric.MeterProvider, error) {
	exporter, err := otlpMetricExportFromConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	meterProvider := metric.NewMeterProvider(
		metric.WithResource(r),
		metric.WithReader(metric.NewPeriodicReader(
			exporter,
			metric.WithInterval(time.Minute),
		)),
	)
	return meterProvider, nil
}

func otlpMetricExportFromConfig(ctx context.Context, c Config) (metric.Exporter, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*3)
	defer cancel()

	if c.Otlp.Metrics.GrpcEndpoint != "" {
		return otlpmetricgrpc.New(
			ctx,
			otlpmetricgrpc.WithEndpointURL(c.Otlp.Metrics.GrpcEndpoint),
			otlpmetricgrpc.WithHeaders(c.Otlp.Metrics.Headers),
		)
	}
	return otlpmetrichttp.New(
		ctx,
		otlpmetrichttp.WithEndpointURL(c.Otlp.Metrics.HttpEndpoint),
		otlpmetrichttp.WithHeaders(c.Otlp.Metrics.Headers),
	)
}
