package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/tracelog"
	"go.uber.org/zap"
)

// ZapTraceLogger adapts zap.Logger to the pgx tracelog.Logger interface
type ZapTraceLogger struct {
	logger *zap.Logger
}

// NewZapTraceLogger creates a new ZapTraceLogger adapter
func NewZapTraceLogger(logger *zap.Logger) tracelog.Logger {
	return &ZapTraceLogger{logger: logger}
}

// Log writes a pgx trace event
func (z *ZapTraceLogger) Log(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]interface{}) {
	fields := make([]zap.Field, 0, len(data))
	for key, value := range data {
		fields = append(fields, zap.Any(key, value))
	}

	switch level {
	case tracelog.LogLevelTrace, tracelog.LogLevelDebug:
		z.logger.Debug(msg, fields...)
	case tracelog.LogLevelInfo:
		z.logger.Info(msg, fields...)
	case tracelog.LogLevelWarn:
		z.logger.Warn(msg, fields...)
	default:
		z.logger.Error(msg, fields...)
	}
}

// newQueryTracer returns a pgx tracer logging at levelName, or nil when levelName is empty or "none"
func newQueryTracer(levelName string, logger *zap.Logger) (pgx.QueryTracer, error) {
	if levelName == "" || levelName == "none" {
		return nil, nil
	}
	level, err := tracelog.LogLevelFromString(levelName)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres log level: %w", err)
	}
	return &tracelog.TraceLog{Logger: NewZapTraceLogger(logger), LogLevel: level}, nil
}
