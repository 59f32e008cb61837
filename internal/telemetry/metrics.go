// Package telemetry exposes the server's OpenTelemetry metrics. Metrics
// are opt-in: without OTEL_EXPORTER_OTLP_ENDPOINT the package is a noop
// and every Record* call returns immediately.
package telemetry

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

const (
	// Metric export interval (configurable via OTEL_METRIC_EXPORT_INTERVAL)
	defaultMetricExportInterval = 60 * time.Second

	meterName = "mcp-textedit"
)

var (
	metricsMutex        sync.RWMutex
	globalMeterProvider *sdkmetric.MeterProvider
	globalMeter         metric.Meter
	metricsEnabled      bool

	editsAppliedCounter    metric.Int64Counter
	matchDurationHistogram metric.Float64Histogram
	batchRollbacksCounter  metric.Int64Counter
	restoreMismatchCounter metric.Int64Counter
	budgetExceededCounter  metric.Int64Counter
)

// otelErrorHandler adapts OTEL SDK errors to our logging system. OTEL must
// never log to stderr: in stdio mode stderr output breaks the MCP protocol.
type otelErrorHandler struct {
	logger *logrus.Logger
}

func (h *otelErrorHandler) Handle(err error) {
	if err == nil {
		return
	}
	h.logger.WithError(err).Debug("OTEL: SDK error occurred")
}

// InitMetrics initialises the OpenTelemetry meter provider from environment
// variables. Returns a shutdown function and an error if initialisation
// fails; the application continues with a noop meter either way.
func InitMetrics(logger *logrus.Logger) (func() error, error) {
	metricsMutex.Lock()
	defer metricsMutex.Unlock()

	if disabled := os.Getenv("OTEL_SDK_DISABLED"); strings.ToLower(disabled) == "true" {
		logger.Debug("OTEL Metrics: Explicitly disabled via OTEL_SDK_DISABLED")
		metricsEnabled = false
		globalMeter = otel.GetMeterProvider().Meter(meterName)
		return func() error { return nil }, nil
	}

	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		logger.Debug("OTEL Metrics: Not configured, using noop meter")
		metricsEnabled = false
		globalMeter = otel.GetMeterProvider().Meter(meterName)
		return func() error { return nil }, nil
	}

	metricsEnabled = true
	logger.WithField("endpoint", endpoint).Info("OTEL Metrics: Initialising meter")

	otel.SetErrorHandler(&otelErrorHandler{logger: logger})

	protocol := getOTLPProtocol()
	logger.WithField("protocol", protocol).Debug("OTEL Metrics: Using protocol")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var exporter sdkmetric.Exporter
	var err error

	switch protocol {
	case "grpc":
		exporter, err = otlpmetricgrpc.New(ctx)
	case "http/protobuf", "http":
		exporter, err = otlpmetrichttp.New(ctx)
	default:
		logger.WithField("protocol", protocol).Warn("OTEL Metrics: Unknown protocol, defaulting to http")
		exporter, err = otlpmetrichttp.New(ctx)
	}

	if err != nil {
		logger.WithError(err).Warn("OTEL Metrics: Failed to create exporter, falling back to noop meter")
		metricsEnabled = false
		globalMeter = otel.GetMeterProvider().Meter(meterName)
		return func() error { return nil }, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(getServiceName()),
			semconv.ServiceVersionKey.String(getServiceVersion()),
			attribute.String("deployment.environment", getDeploymentEnvironment()),
		),
		resource.WithFromEnv(), // Allow additional attributes from OTEL_RESOURCE_ATTRIBUTES
	)
	if err != nil {
		logger.WithError(err).Warn("OTEL Metrics: Failed to create resource, using default")
		res = resource.Default()
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(getMetricExportInterval(logger)),
		)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(meterProvider)
	globalMeterProvider = meterProvider
	globalMeter = meterProvider.Meter(meterName)

	if err := initMetricInstruments(logger); err != nil {
		logger.WithError(err).Error("OTEL Metrics: Failed to initialise instruments")
		return func() error { return nil }, err
	}

	logger.Info("OTEL Metrics: Meter initialised successfully")

	return func() error {
		metricsMutex.Lock()
		defer metricsMutex.Unlock()

		if globalMeterProvider != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := globalMeterProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("OTEL Metrics: Failed to shutdown meter provider")
				return err
			}
			logger.Debug("OTEL Metrics: Meter provider shutdown successfully")
		}
		return nil
	}, nil
}

// initMetricInstruments creates the edit engine's instruments. Caller holds
// metricsMutex.
func initMetricInstruments(logger *logrus.Logger) error {
	var err error
	meter := globalMeter

	editsAppliedCounter, err = meter.Int64Counter(
		"textedit.edits.applied",
		metric.WithDescription("Edits applied to files"),
		metric.WithUnit("{edit}"),
	)
	if err != nil {
		return err
	}

	matchDurationHistogram, err = meter.Float64Histogram(
		"textedit.match.duration",
		metric.WithDescription("Target matching duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000),
	)
	if err != nil {
		return err
	}

	batchRollbacksCounter, err = meter.Int64Counter(
		"textedit.batch.rollbacks",
		metric.WithDescription("Batch operations rolled back"),
		metric.WithUnit("{rollback}"),
	)
	if err != nil {
		return err
	}

	restoreMismatchCounter, err = meter.Int64Counter(
		"textedit.restore.mismatches",
		metric.WithDescription("Hash mismatches detected after snapshot restore"),
		metric.WithUnit("{mismatch}"),
	)
	if err != nil {
		return err
	}

	budgetExceededCounter, err = meter.Int64Counter(
		"textedit.budget.exceeded",
		metric.WithDescription("Fuzzy searches aborted for exceeding a compute budget"),
		metric.WithUnit("{search}"),
	)
	if err != nil {
		return err
	}

	logger.Debug("OTEL Metrics: Edit engine instruments initialised")
	return nil
}

// IsMetricsEnabled returns true if metrics collection is enabled
func IsMetricsEnabled() bool {
	metricsMutex.RLock()
	defer metricsMutex.RUnlock()
	return metricsEnabled
}

// RecordEditApplied records a completed apply, single or batch.
func RecordEditApplied(ctx context.Context, mode string, dryRun bool, editCount int) {
	if !IsMetricsEnabled() || editsAppliedCounter == nil {
		return
	}
	editsAppliedCounter.Add(ctx, int64(editCount),
		metric.WithAttributes(
			attribute.String("mode", mode),
			attribute.Bool("dry_run", dryRun),
		),
	)
}

// RecordMatchDuration records how long target resolution took for one file.
func RecordMatchDuration(ctx context.Context, strategy string, durationMs float64) {
	if !IsMetricsEnabled() || matchDurationHistogram == nil {
		return
	}
	matchDurationHistogram.Record(ctx, durationMs,
		metric.WithAttributes(
			attribute.String("strategy", strategy),
		),
	)
}

// RecordBatchRollback records a batch rollback, atomic or sequential.
func RecordBatchRollback(ctx context.Context, mode string) {
	if !IsMetricsEnabled() || batchRollbacksCounter == nil {
		return
	}
	batchRollbacksCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("mode", mode),
		),
	)
}

// RecordRestoreMismatch records files whose content hash did not verify
// after a snapshot restore.
func RecordRestoreMismatch(ctx context.Context, count int) {
	if !IsMetricsEnabled() || restoreMismatchCounter == nil {
		return
	}
	restoreMismatchCounter.Add(ctx, int64(count))
}

// RecordBudgetExceeded records a fuzzy search aborted over budget.
func RecordBudgetExceeded(ctx context.Context, kind string) {
	if !IsMetricsEnabled() || budgetExceededCounter == nil {
		return
	}
	budgetExceededCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", kind),
		),
	)
}

// Helper functions

func getOTLPProtocol() string {
	protocol := os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL")
	if protocol == "" {
		// Check endpoint to guess protocol
		endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
		if strings.Contains(endpoint, ":4317") {
			return "grpc" // Default gRPC port
		}
		return "http/protobuf" // Default to HTTP
	}
	return protocol
}

func getServiceName() string {
	if name := os.Getenv("OTEL_SERVICE_NAME"); name != "" {
		return name
	}
	return meterName
}

func getServiceVersion() string {
	if version := os.Getenv("MCP_VERSION"); version != "" {
		return version
	}
	return "dev"
}

func getDeploymentEnvironment() string {
	for _, envVar := range []string{"ENVIRONMENT", "ENV", "DEPLOYMENT_ENV"} {
		if env := os.Getenv(envVar); env != "" {
			return env
		}
	}
	if attrs := os.Getenv("OTEL_RESOURCE_ATTRIBUTES"); attrs != "" {
		pairs := strings.SplitSeq(attrs, ",")
		for pair := range pairs {
			kv := strings.SplitN(pair, "=", 2)
			if len(kv) == 2 && kv[0] == "deployment.environment" {
				return kv[1]
			}
		}
	}
	return "development"
}

func getMetricExportInterval(logger *logrus.Logger) time.Duration {
	intervalStr := os.Getenv("OTEL_METRIC_EXPORT_INTERVAL")
	if intervalStr == "" {
		return defaultMetricExportInterval
	}

	// Accept a duration string ("60s", "1m") or a bare number of seconds.
	duration, err := time.ParseDuration(intervalStr)
	if err != nil {
		duration, err = time.ParseDuration(intervalStr + "s")
		if err != nil {
			logger.WithField("interval", intervalStr).Warn("OTEL Metrics: Invalid export interval, using default")
			return defaultMetricExportInterval
		}
	}
	return duration
}
