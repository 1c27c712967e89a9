package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// The staging upserts land whole sync pages in one statement, so the slow
// bound sits well above a point-read round trip.
const defaultSlowQueryThreshold = 200 * time.Millisecond

// GormLogger routes GORM's query logging through zap. Queries log at debug,
// slow queries at warn, failures at error; the request id is picked up from
// the context when one is there.
type GormLogger struct {
	zl            *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
	logNotFound   bool
}

var _ gormlogger.Interface = (*GormLogger)(nil)

// NewGormLogger builds the query logger from the application log level, so
// the database carries no logging configuration of its own.
func NewGormLogger(zl *zap.Logger, appLevel string) *GormLogger {
	return &GormLogger{
		zl:            zl.Named("gorm"),
		level:         gormLevel(appLevel),
		slowThreshold: defaultSlowQueryThreshold,
	}
}

// SlowThreshold overrides the slow-query warning bound. Zero disables it.
func (l *GormLogger) SlowThreshold(d time.Duration) *GormLogger {
	l.slowThreshold = d
	return l
}

// LogRecordNotFound re-enables logging of gorm.ErrRecordNotFound, which is
// suppressed by default because a missing row is a normal lookup outcome.
func (l *GormLogger) LogRecordNotFound() *GormLogger {
	l.logNotFound = true
	return l
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

// Info implements gormlogger.Interface
func (l *GormLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		l.zl.Sugar().Infof(msg, args...)
	}
}

// Warn implements gormlogger.Interface
func (l *GormLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		l.zl.Sugar().Warnf(msg, args...)
	}
}

// Error implements gormlogger.Interface
func (l *GormLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		l.zl.Sugar().Errorf(msg, args...)
	}
}

// Trace implements gormlogger.Interface. Statement text is safe to log:
// token material only ever appears in queries as ciphertext parameters,
// and parameters are not part of the statement GORM hands us.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	fields := make([]zap.Field, 0, 5)
	fields = append(fields,
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	)
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}

	if err != nil && l.level >= gormlogger.Error {
		if errors.Is(err, gormlogger.ErrRecordNotFound) && !l.logNotFound {
			return
		}
		l.zl.Error("query failed", append(fields, zap.Error(err))...)
		return
	}

	if l.slowThreshold > 0 && elapsed >= l.slowThreshold && l.level >= gormlogger.Warn {
		l.zl.Warn("slow query", append(fields, zap.Duration("threshold", l.slowThreshold))...)
		return
	}

	if l.level >= gormlogger.Info {
		l.zl.Debug("query", fields...)
	}
}

// gormLevel maps the application log level onto GORM's coarser scale.
// Anything unrecognized degrades to warn rather than silent.
func gormLevel(appLevel string) gormlogger.LogLevel {
	switch appLevel {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "warn", "warning":
		return gormlogger.Warn
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
