package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopstack/ecommerce-api/pkg/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// AppMetrics holds all application metrics
type AppMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestsErrors  metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// Database metrics
	DBQueriesTotal  metric.Int64Counter
	DBQueryDuration metric.Float64Histogram

	// Business metrics
	OrdersCreated        metric.Int64Counter
	RevenueTotal         metric.Float64Counter
	ProductsViewed       metric.Int64Counter
	CartItemsCount       metric.Int64Gauge
	LowStockEvents       metric.Int64Counter
	PaymentIntentsTotal  metric.Int64Counter
	NotificationFailures metric.Int64Counter

	serviceName string
}

// InitMetrics initializes the OTLP exporter and returns the application
// metric set together with the provider so main can shut it down.
func InitMetrics(ctx context.Context, cfg *config.Config) (*AppMetrics, *sdkmetric.MeterProvider, error) {
	envRes, err := resource.New(ctx, resource.WithFromEnv())
	if err != nil {
		envRes = resource.Empty()
	}

	explicitRes, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.OTELServiceName),
			semconv.ServiceVersion(cfg.OTELServiceVersion),
			attribute.String("deployment.environment", cfg.OTELDeploymentEnvironment),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	// Explicit attributes take precedence over env
	res, err := resource.Merge(envRes, explicitRes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to merge resources: %w", err)
	}

	exporterOpts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.OTELExporterOTLPEndpoint),
		otlpmetrichttp.WithURLPath("/v1/metrics"),
	}
	if cfg.OTELExporterOTLPHeaders != "" {
		exporterOpts = append(exporterOpts, otlpmetrichttp.WithHeaders(parseHeaders(cfg.OTELExporterOTLPHeaders)))
	}
	if cfg.OTELExporterOTLPInsecure {
		exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter,
		sdkmetric.WithInterval(10*time.Second),
	)

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(meterProvider)

	appMetrics, err := newAppMetrics(meterProvider.Meter(cfg.OTELServiceName), cfg.OTELServiceName)
	if err != nil {
		return nil, nil, err
	}
	return appMetrics, meterProvider, nil
}

// NewTesting returns an AppMetrics backed by a no-op meter, for tests.
func NewTesting() *AppMetrics {
	m, err := newAppMetrics(noop.NewMeterProvider().Meter("test"), "test")
	if err != nil {
		panic(err)
	}
	return m
}

func newAppMetrics(meter metric.Meter, serviceName string) (*AppMetrics, error) {
	// Histogram buckets in milliseconds, up to 60s
	buckets := []float64{2, 4, 6, 8, 10, 50, 100, 200, 400, 800, 1000, 1400, 2000, 5000, 10000, 15000, 20000, 30000, 45000, 60000}

	httpRequestsTotal, err := meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http requests counter: %w", err)
	}

	httpRequestsErrors, err := meter.Int64Counter(
		"http.server.request.error.count",
		metric.WithDescription("Total number of HTTP error requests"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http errors counter: %w", err)
	}

	httpRequestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(buckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}

	dbQueriesTotal, err := meter.Int64Counter(
		"db.client.queries.count",
		metric.WithDescription("Total number of database queries"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create db queries counter: %w", err)
	}

	dbQueryDuration, err := meter.Float64Histogram(
		"db.client.queries.duration",
		metric.WithDescription("Database query duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(buckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create db duration histogram: %w", err)
	}

	ordersCreated, err := meter.Int64Counter(
		"orders_created_total",
		metric.WithDescription("Total number of orders created"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create orders counter: %w", err)
	}

	revenueTotal, err := meter.Float64Counter(
		"revenue_total",
		metric.WithDescription("Total revenue from completed orders"),
		metric.WithUnit("USD"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create revenue counter: %w", err)
	}

	productsViewed, err := meter.Int64Counter(
		"products_viewed_total",
		metric.WithDescription("Total number of product views"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create products viewed counter: %w", err)
	}

	cartItemsCount, err := meter.Int64Gauge(
		"cart_items_count",
		metric.WithDescription("Current number of items in user carts"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cart items gauge: %w", err)
	}

	lowStockEvents, err := meter.Int64Counter(
		"low_stock_events_total",
		metric.WithDescription("Times a product dropped below the low-stock threshold"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create low stock counter: %w", err)
	}

	paymentIntents, err := meter.Int64Counter(
		"payment_intents_total",
		metric.WithDescription("Payment intents created against the processor"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intents counter: %w", err)
	}

	notificationFailures, err := meter.Int64Counter(
		"notification_failures_total",
		metric.WithDescription("Best-effort notification dispatches that failed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification failures counter: %w", err)
	}

	return &AppMetrics{
		HTTPRequestsTotal:    httpRequestsTotal,
		HTTPRequestsErrors:   httpRequestsErrors,
		HTTPRequestDuration:  httpRequestDuration,
		DBQueriesTotal:       dbQueriesTotal,
		DBQueryDuration:      dbQueryDuration,
		OrdersCreated:        ordersCreated,
		RevenueTotal:         revenueTotal,
		ProductsViewed:       productsViewed,
		CartItemsCount:       cartItemsCount,
		LowStockEvents:       lowStockEvents,
		PaymentIntentsTotal:  paymentIntents,
		NotificationFailures: notificationFailures,
		serviceName:          serviceName,
	}, nil
}

// WithServiceName adds service.name to attributes
func (m *AppMetrics) WithServiceName(attrs []attribute.KeyValue) []attribute.KeyValue {
	return append(attrs, attribute.String("service.name", m.serviceName))
}

// RecordDBQuery records database query metrics
func (m *AppMetrics) RecordDBQuery(ctx context.Context, operation, table string, start time.Time, success bool) {
	duration := time.Since(start).Milliseconds()

	status := "success"
	if !success {
		status = "error"
	}

	attrs := []attribute.KeyValue{
		attribute.String("db.operation", operation),
		attribute.String("db.sql.table", table),
		attribute.String("status", status),
	}

	m.DBQueriesTotal.Add(ctx, 1, metric.WithAttributes(m.WithServiceName(attrs)...))
	m.DBQueryDuration.Record(ctx, float64(duration), metric.WithAttributes(m.WithServiceName(attrs)...))
}

// parseHeaders parses a header string in "key1=value1,key2=value2" format
func parseHeaders(headerStr string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range strings.Split(headerStr, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) == 2 {
			headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return headers
}
