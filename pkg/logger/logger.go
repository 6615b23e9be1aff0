package logger

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LoggerConfig struct {
	ServiceName string
	// IsInternal additionally exports every entry through the global otel log provider.
	IsInternal bool
	IsDebug    bool

	// OutputPaths defaults to stdout.
	OutputPaths []string
}

func NewLogger(_ context.Context, loggerConfig LoggerConfig) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if loggerConfig.IsDebug {
		level.SetLevel(zap.DebugLevel)
	}

	outputPaths := loggerConfig.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = []string{"stdout"}
	}

	config := zap.Config{
		Level:            level,
		Encoding:         "json",
		EncoderConfig:    GetEncoderConfig(zapcore.DefaultLineEnding),
		OutputPaths:      outputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}

	opts := []zap.Option{
		zap.Fields(
			zap.String("service", loggerConfig.ServiceName),
			zap.Int("pid", os.Getpid()),
		),
	}

	if loggerConfig.IsInternal {
		exported := otelzap.NewCore(loggerConfig.ServiceName, otelzap.WithLoggerProvider(global.GetLoggerProvider()))

		opts = append(opts, zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, exported)
		}))
	}

	logger, err := config.Build(opts...)
	if err != nil {
		return nil, fmt.Errorf("error building logger: %w", err)
	}

	return logger, nil
}

func GetEncoderConfig(lineEnding string) zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:       "timestamp",
		MessageKey:    "message",
		LevelKey:      "level",
		EncodeLevel:   zapcore.LowercaseLevelEncoder,
		NameKey:       "logger",
		StacktraceKey: "stacktrace",
		EncodeTime:    zapcore.RFC3339TimeEncoder,
		LineEnding:    lineEnding,
	}
}
