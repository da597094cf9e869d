package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/smith3v/sprachninja/pkg/logger"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	defaultSlowThreshold = 200 * time.Millisecond
	defaultGormLogLevel  = gormlogger.Warn
)

// queryLogger routes gorm output into the application slog logger so store
// traffic shares the same sink and level filter as everything else.
type queryLogger struct {
	slowThreshold  time.Duration
	ignoreNotFound bool
	level          gormlogger.LogLevel
}

func newGormLogger(levelValue string) (gormlogger.Interface, error) {
	level := defaultGormLogLevel
	var levelErr error
	if strings.TrimSpace(levelValue) != "" {
		level, levelErr = parseGormLogLevel(levelValue)
	}
	return &queryLogger{
		slowThreshold:  defaultSlowThreshold,
		ignoreNotFound: true,
		level:          level,
	}, levelErr
}

func (l *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *queryLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.emit(ctx, gormlogger.Info, fmt.Sprintf(msg, data...))
}

func (l *queryLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.emit(ctx, gormlogger.Warn, fmt.Sprintf(msg, data...))
}

func (l *queryLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.emit(ctx, gormlogger.Error, fmt.Sprintf(msg, data...))
}

func (l *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level == gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	attrs := []any{"elapsed", elapsed, "rows", rows, "sql", sql}

	switch {
	case err != nil:
		if l.ignoreNotFound && errors.Is(err, gorm.ErrRecordNotFound) {
			return
		}
		l.emit(ctx, gormlogger.Error, "gorm query error", append(attrs, "error", err)...)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold:
		l.emit(ctx, gormlogger.Warn, "gorm slow query", append(attrs, "threshold", l.slowThreshold)...)
	default:
		l.emit(ctx, gormlogger.Info, "gorm query", attrs...)
	}
}

func (l *queryLogger) emit(ctx context.Context, level gormlogger.LogLevel, msg string, attrs ...any) {
	if !l.enabled(level) {
		return
	}
	logger.Logger.Log(ctx, slogLevelFor(level), msg, attrs...)
}

func (l *queryLogger) enabled(level gormlogger.LogLevel) bool {
	if l.level == gormlogger.Silent || l.level < level {
		return false
	}
	switch level {
	case gormlogger.Info:
		return logger.Enabled(logger.INFO)
	case gormlogger.Warn:
		return logger.Enabled(logger.WARN)
	case gormlogger.Error:
		return logger.Enabled(logger.ERROR)
	default:
		return false
	}
}

func slogLevelFor(level gormlogger.LogLevel) slog.Level {
	switch level {
	case gormlogger.Error:
		return slog.LevelError
	case gormlogger.Warn:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func parseGormLogLevel(value string) (gormlogger.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "silent":
		return gormlogger.Silent, nil
	case "error":
		return gormlogger.Error, nil
	case "warn":
		return gormlogger.Warn, nil
	case "info":
		return gormlogger.Info, nil
	default:
		return defaultGormLogLevel, fmt.Errorf("invalid gorm log level %q", value)
	}
}
