package global

import (
	"context"
	"os"
	"sync"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	Sub *zap.Logger
}

func (log *Logger) Info(ctx context.Context, msg string, fields ...zap.Field) {
	log.Sub.Info(msg, decaps(ctx, fields...)...)
}

func (log *Logger) Error(ctx context.Context, msg string, fields ...zap.Field) {
	log.Sub.Error(msg, decaps(ctx, fields...)...)
}

func (log *Logger) Debug(ctx context.Context, msg string, fields ...zap.Field) {
	log.Sub.Debug(msg, decaps(ctx, fields...)...)
}

func (log *Logger) Warn(ctx context.Context, msg string, fields ...zap.Field) {
	log.Sub.Warn(msg, decaps(ctx, fields...)...)
}

// decaps extracts the benchmark info carried by the context and appends it to
// the log fields, so every line can be related to the challenge, model and
// epoch it was produced for.
func decaps(ctx context.Context, fields ...zap.Field) []zap.Field {
	if id := ctx.Value(challengeKey{}); id != nil {
		fields = append(fields, zap.String("challenge_id", id.(string)))
	}
	if mdl := ctx.Value(modelKey{}); mdl != nil {
		fields = append(fields, zap.String("model", mdl.(string)))
	}
	if epoch := ctx.Value(epochKey{}); epoch != nil {
		fields = append(fields, zap.Int("epoch", epoch.(int)))
	}
	if id := ctx.Value(identityKey{}); id != nil {
		fields = append(fields, zap.String("identity", id.(string)))
	}
	return fields
}

var (
	logger  *Logger
	logOnce sync.Once
)

func Log() *Logger {
	logOnce.Do(func() {
		lvl := zapcore.InfoLevel
		if l, err := zapcore.ParseLevel(Conf.LogLevel); err == nil {
			lvl = l
		}

		sub := zap.New(zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(os.Stdout),
			lvl,
		))
		if Conf.Otel.Tracing {
			core := zapcore.NewTee(
				zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(os.Stdout), lvl),
				otelzap.NewCore("mlcocdav/ctfbench", otelzap.WithLoggerProvider(loggerProvider)),
			)
			sub = zap.New(core)
		}

		logger = &Logger{
			Sub: sub,
		}
	})
	return logger
}
