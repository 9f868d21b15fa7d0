package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool // include query variables in spans
	SlowQueryThresh time.Duration
	DBSystem        string
}

type dbContextKey string

const queryStartTimeKey dbContextKey = "otel_query_start_time"

// RegisterDBTracing installs the otelgorm plugin plus slow query marking.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	before := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, queryStartTimeKey, time.Now())
		}
	}
	after := func(tx *gorm.DB) { markSpan(tx, cfg.SlowQueryThresh) }

	cb := db.Callback()
	hooks := []struct {
		op       string
		register func(name string, before bool, fn func(*gorm.DB)) error
	}{
		{"create", func(n string, b bool, fn func(*gorm.DB)) error {
			if b {
				return cb.Create().Before("gorm:create").Register(n, fn)
			}
			return cb.Create().After("gorm:create").Register(n, fn)
		}},
		{"query", func(n string, b bool, fn func(*gorm.DB)) error {
			if b {
				return cb.Query().Before("gorm:query").Register(n, fn)
			}
			return cb.Query().After("gorm:query").Register(n, fn)
		}},
		{"update", func(n string, b bool, fn func(*gorm.DB)) error {
			if b {
				return cb.Update().Before("gorm:update").Register(n, fn)
			}
			return cb.Update().After("gorm:update").Register(n, fn)
		}},
		{"delete", func(n string, b bool, fn func(*gorm.DB)) error {
			if b {
				return cb.Delete().Before("gorm:delete").Register(n, fn)
			}
			return cb.Delete().After("gorm:delete").Register(n, fn)
		}},
	}
	for _, h := range hooks {
		if err := h.register("otel_timing:before_"+h.op, true, before); err != nil {
			return err
		}
		if err := h.register("otel_timing:after_"+h.op, false, after); err != nil {
			return err
		}
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return nil
}

func markSpan(tx *gorm.DB, slowThresh time.Duration) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", tx.Statement.RowsAffected))
	if tx.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", tx.Statement.Table))
	}
	if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, tx.Error.Error())
		span.RecordError(tx.Error)
	}
	if start, ok := ctx.Value(queryStartTimeKey).(time.Time); ok && slowThresh > 0 {
		if elapsed := time.Since(start); elapsed > slowThresh {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
		}
	}
}
