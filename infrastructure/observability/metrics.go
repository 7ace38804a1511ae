package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gamecredits/config"
	"gamecredits/events"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	"google.golang.org/grpc"
)

// MetricsProvider manages OpenTelemetry metrics for the credit ledger
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	enabled       bool
	mu            sync.RWMutex

	// Metric instruments
	ledgerEntriesCounter metric.Int64Counter
	creditsMovedCounter  metric.Int64Counter
	settlementsCounter   metric.Int64Counter
	betPayoutsCounter    metric.Int64Counter
	stipendGrantsCounter metric.Int64Counter
	natsPublishedCounter metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	var reader sdkmetric.Reader
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err := stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		reader = mp.periodicReader(exporter)
		log.Info("Using console metric exporter")

	case "otlp":
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err := otlpmetricgrpc.New(dialCtx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
			otlpmetricgrpc.WithDialOption(grpc.WithUserAgent(mp.config.OTelServiceName)),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		reader = mp.periodicReader(exporter)
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	return mp.initializeWithReader(reader)
}

func (mp *MetricsProvider) periodicReader(exporter sdkmetric.Exporter) sdkmetric.Reader {
	return sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
	)
}

// initializeWithReader builds the meter provider around reader. Caller holds mu.
func (mp *MetricsProvider) initializeWithReader(reader sdkmetric.Reader) error {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("gamecredits")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	mp.enabled = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.ledgerEntriesCounter, err = mp.meter.Int64Counter(
		LedgerEntriesTotal,
		metric.WithDescription("Total number of ledger entries posted"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create ledger entries counter: %w", err)
	}

	mp.creditsMovedCounter, err = mp.meter.Int64Counter(
		LedgerCreditsMoved,
		metric.WithDescription("Absolute credits moved through the ledger"),
		metric.WithUnit("{credit}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create credits moved counter: %w", err)
	}

	mp.settlementsCounter, err = mp.meter.Int64Counter(
		SettlementsTotal,
		metric.WithDescription("Total number of settlement state changes"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create settlements counter: %w", err)
	}

	mp.betPayoutsCounter, err = mp.meter.Int64Counter(
		BetPayoutsTotal,
		metric.WithDescription("Credits paid out to winning bets"),
		metric.WithUnit("{credit}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create bet payouts counter: %w", err)
	}

	mp.stipendGrantsCounter, err = mp.meter.Int64Counter(
		StipendGrantsTotal,
		metric.WithDescription("Weekly stipend grants by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create stipend grants counter: %w", err)
	}

	mp.natsPublishedCounter, err = mp.meter.Int64Counter(
		NATSMessagesPublishedTotal,
		metric.WithDescription("Total number of NATS messages published"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create NATS messages published counter: %w", err)
	}

	return nil
}

// Shutdown flushes and stops the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// Subscribe records metrics for every committed domain event on the bus
func (mp *MetricsProvider) Subscribe(bus *events.Bus) {
	bus.SubscribeAll(func(ctx context.Context, event events.Event) {
		mp.RecordEvent(ctx, event)
	})
}

// RecordEvent maps a domain event onto the instruments
func (mp *MetricsProvider) RecordEvent(ctx context.Context, event events.Event) {
	if !mp.isEnabled() {
		return
	}

	switch e := event.(type) {
	case events.LedgerEntryPostedEvent:
		direction, amount := DirectionCredit, e.Amount
		if amount < 0 {
			direction, amount = DirectionDebit, -amount
		}
		attrs := metric.WithAttributes(
			attribute.String(LabelCategory, string(e.Category)),
			attribute.String(LabelDirection, direction),
		)
		mp.ledgerEntriesCounter.Add(ctx, 1, attrs)
		mp.creditsMovedCounter.Add(ctx, amount, attrs)

	case events.BettingEventResolvedEvent:
		mp.recordSettlement(ctx, e.Type(), "resolved")
		mp.betPayoutsCounter.Add(ctx, e.TotalPaidOut)

	case events.BettingEventCancelledEvent:
		mp.recordSettlement(ctx, e.Type(), "cancelled")

	case events.SubmissionReviewedEvent:
		mp.recordSettlement(ctx, e.Type(), string(e.Status))

	case events.LoanStateChangedEvent:
		mp.recordSettlement(ctx, e.Type(), string(e.NewStatus))

	case events.StipendRunCompletedEvent:
		mp.stipendGrantsCounter.Add(ctx, int64(e.GrantedCount), metric.WithAttributes(attribute.String(LabelOutcome, "granted")))
		mp.stipendGrantsCounter.Add(ctx, int64(e.FailedCount), metric.WithAttributes(attribute.String(LabelOutcome, "failed")))
	}
}

func (mp *MetricsProvider) recordSettlement(ctx context.Context, eventType events.EventType, outcome string) {
	mp.settlementsCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String(LabelEventType, string(eventType)),
		attribute.String(LabelOutcome, outcome),
	))
}

// RecordNATSMessagePublished records a NATS message being published
func (mp *MetricsProvider) RecordNATSMessagePublished(eventType string) {
	if !mp.isEnabled() {
		return
	}

	mp.natsPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelEventType, eventType),
		),
	)
}

// isEnabled checks if metrics are enabled and initialized
func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.enabled
}
