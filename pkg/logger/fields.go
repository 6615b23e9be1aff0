package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func WithSource(path string) zap.Field {
	return zap.String("source.path", path)
}

func WithRange(begin, end int64) zap.Field {
	return zap.Object("range", zapcore.ObjectMarshalerFunc(func(enc zapcore.ObjectEncoder) error {
		enc.AddInt64("begin", begin)
		enc.AddInt64("end", end)

		return nil
	}))
}
