// Package logger provides the process-wide structured logger. Every
// collaborator logs through this package rather than holding its own
// *zap.Logger, so log level and sink configuration stay centralized.
package logger

import (
	"context"
	"os"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"predictive-analysis-engine/pkg/common"
	"predictive-analysis-engine/pkg/config"
)

var base = zap.NewNop()

// Init builds the process logger from config. Must be called once at
// startup before any other package logs; until then, calls are no-ops.
func Init(cfg *config.Config) {
	level := zapcore.InfoLevel
	_ = level.UnmarshalText([]byte(cfg.Logging.Level))

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var sink zapcore.WriteSyncer
	if cfg.Logging.FilePath != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Logging.FilePath,
			MaxSize:    cfg.Logging.MaxSizeMB,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		})
	} else {
		sink = zapcore.Lock(os.Stdout)
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), sink, level)
	base = zap.New(core)
}

// Info logs a structured info-level event with optional key/value
// fields, matching the teacher's (msg, fields) call shape.
func Info(msg string, fields map[string]interface{}) {
	base.Info(msg, toZapFields(fields)...)
}

// Error logs a structured error-level event. err may be nil.
func Error(msg string, err error) {
	if err != nil {
		base.Error(msg, zap.Error(err))
		return
	}
	base.Error(msg)
}

// WithCorrelation returns a child logger stamped with the request's
// correlation ID, if one is present in ctx.
func WithCorrelation(ctx context.Context) *zap.Logger {
	if cid := common.GetCorrelationID(ctx); cid != "" {
		return base.With(zap.String("correlationId", cid))
	}
	return base
}

func toZapFields(fields map[string]interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}
