package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const instrumentationName = "glucose-bot"

type Config struct {
	ServiceName string

	// Endpoint OTLP/gRPC (host:port). Vacío => métricas no-op.
	Endpoint string
	Insecure bool
	Interval time.Duration
}

// Provider agrupa el MeterProvider y los instrumentos del bot.
type Provider struct {
	mp      *sdkmetric.MeterProvider
	Metrics *Metrics
}

// Setup arma el pipeline de métricas. Sin endpoint devuelve instrumentos no-op
// para que el resto del código no tenga que preguntar si hay telemetría.
func Setup(ctx context.Context, cfg Config) (*Provider, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		m, err := NewMetrics(noop.NewMeterProvider().Meter(instrumentationName))
		if err != nil {
			return nil, err
		}
		return &Provider{Metrics: m}, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("metric exporter: %w", err)
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	name := cfg.ServiceName
	if name == "" {
		name = instrumentationName
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(resource.NewSchemaless(attribute.String("service.name", name))),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(mp)

	m, err := NewMetrics(mp.Meter(instrumentationName))
	if err != nil {
		_ = mp.Shutdown(ctx)
		return nil, err
	}
	return &Provider{mp: mp, Metrics: m}, nil
}

// Shutdown hace flush del último intervalo.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.mp == nil {
		return nil
	}
	return p.mp.Shutdown(ctx)
}

// Metrics son los instrumentos del bot. Un *Metrics nil es válido y no registra nada.
type Metrics struct {
	commands metric.Int64Counter
	doses    metric.Float64Counter
	iob      metric.Float64Histogram
}

func NewMetrics(m metric.Meter) (*Metrics, error) {
	commands, err := m.Int64Counter("glucobot.commands",
		metric.WithDescription("Handled bot commands"),
		metric.WithUnit("{command}"),
	)
	if err != nil {
		return nil, err
	}
	doses, err := m.Float64Counter("glucobot.doses",
		metric.WithDescription("Insulin units logged"),
		metric.WithUnit("U"),
	)
	if err != nil {
		return nil, err
	}
	iob, err := m.Float64Histogram("glucobot.iob",
		metric.WithDescription("Insulin on board reported to users"),
		metric.WithUnit("U"),
		metric.WithExplicitBucketBoundaries(0, 0.25, 0.5, 1, 1.5, 2, 3, 5),
	)
	if err != nil {
		return nil, err
	}
	return &Metrics{commands: commands, doses: doses, iob: iob}, nil
}

// Command cuenta un comando atendido; outcome es "ok", "error" o "denied".
func (m *Metrics) Command(ctx context.Context, name, outcome string) {
	if m == nil {
		return
	}
	m.commands.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command", name),
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) Dose(ctx context.Context, units float64) {
	if m == nil {
		return
	}
	m.doses.Add(ctx, units)
}

func (m *Metrics) IOB(ctx context.Context, units float64) {
	if m == nil {
		return
	}
	m.iob.Record(ctx, units)
}
