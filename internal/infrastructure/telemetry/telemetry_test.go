package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestProviders_Disabled(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	tp, err := NewTracerProvider(ctx, Config{ServiceName: "test"}, logger)
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("x"))
	tp.EnableSpanProfiles()
	assert.NoError(t, tp.Shutdown(ctx))

	mp, err := NewMeterProvider(ctx, MetricsConfig{ServiceName: "test"}, logger)
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("x"))
	assert.NoError(t, mp.Shutdown(ctx))

	lp, err := NewLoggerProvider(ctx, LogsConfig{ServiceName: "test"})
	require.NoError(t, err)
	assert.Empty(t, lp.ZapCores(zapcore.InfoLevel))
	assert.NoError(t, lp.Shutdown(ctx, logger))

	p, err := NewProfiler(ProfilerConfig{}, logger)
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_RequiresServer(t *testing.T) {
	_, err := NewProfiler(ProfilerConfig{Enabled: true}, zap.NewNop())
	assert.Error(t, err)
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1.0).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(0).Description())
	assert.Contains(t, sampler(0.5).Description(), "TraceIDRatioBased")
}

func TestFulfillmentMetrics(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := NewFulfillmentMetrics(provider.Meter("test"))
	require.NoError(t, err)

	m.RecordCheckout(ctx, "whcc", true, 120*time.Millisecond)
	m.RecordCheckout(ctx, "mpix", false, time.Second)
	m.RecordBreakerTransition("mpix", "open")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			names[md.Name] = true
			if md.Name == "checkout_submissions_total" {
				sum, ok := md.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				assert.Len(t, sum.DataPoints, 2)
			}
		}
	}
	assert.True(t, names["checkout_submissions_total"])
	assert.True(t, names["checkout_submit_duration_seconds"])
	assert.True(t, names["provider_breaker_transitions_total"])

	var nilMetrics *FulfillmentMetrics
	nilMetrics.RecordCheckout(ctx, "whcc", true, time.Second)
}

type tracedRow struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func TestRegisterDBTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedRow{}))

	require.NoError(t, RegisterDBTracing(db, DBTracingConfig{Enabled: true, DBSystem: "sqlite", SlowQueryThresh: time.Nanosecond}, zap.NewNop()))

	ctx, span := tp.Tracer("test").Start(context.Background(), "parent")
	require.NoError(t, db.WithContext(ctx).Create(&tracedRow{Name: "a"}).Error)
	var row tracedRow
	err = db.WithContext(ctx).First(&row, 999).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	span.End()

	spans := recorder.Ended()
	assert.GreaterOrEqual(t, len(spans), 3)
	for _, s := range spans {
		if s.Name() == "parent" {
			continue
		}
		assert.NotEqual(t, codes.Error, s.Status().Code, s.Name())
	}
}

func TestRegisterDBTracing_Disabled(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	assert.NoError(t, RegisterDBTracing(db, DBTracingConfig{}, zap.NewNop()))
}

func TestRecordError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	SetAttributes(span, SpanAttrProvider, "whcc", SpanAttrItemCount, 2, "ignored")
	RecordError(span, errors.New("boom"))
	RecordError(span, nil)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Len(t, ended[0].Attributes(), 2)
}
