package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LoggerConfig struct {
	Name    string
	IsDebug bool
	// TraceOutputPath receives debug entries: "stdout", "stderr" or a file path
	TraceOutputPath string
	// OutputPath receives info entries and above
	OutputPath string

	InitialFields []zap.Field
}

// NewLogger builds a console logger. Debug entries are only written when
// IsDebug is set, and go to TraceOutputPath; everything else goes to OutputPath.
func NewLogger(loggerConfig LoggerConfig) (*zap.Logger, error) {
	traceOutput := orDefault(loggerConfig.TraceOutputPath, "stdout")
	output := orDefault(loggerConfig.OutputPath, "stderr")

	trace, closeTrace, err := zap.Open(traceOutput)
	if err != nil {
		return nil, fmt.Errorf("error opening trace output %s: %w", traceOutput, err)
	}

	sink, _, err := zap.Open(output)
	if err != nil {
		closeTrace()
		return nil, fmt.Errorf("error opening output %s: %w", output, err)
	}

	errSink, _, err := zap.Open("stderr")
	if err != nil {
		closeTrace()
		return nil, fmt.Errorf("error opening error output: %w", err)
	}

	encoder := zapcore.NewConsoleEncoder(GetEncoderConfig(zapcore.DefaultLineEnding))

	debugOnly := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return loggerConfig.IsDebug && l == zapcore.DebugLevel
	})
	infoAndAbove := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= zapcore.InfoLevel
	})

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, trace, debugOnly),
		zapcore.NewCore(encoder.Clone(), sink, infoAndAbove),
	)

	logger := zap.New(core,
		zap.ErrorOutput(errSink),
		zap.Fields(loggerConfig.InitialFields...),
	)

	return logger.Named(loggerConfig.Name), nil
}

func GetEncoderConfig(lineEnding string) zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:     "message",
		LevelKey:       "level",
		NameKey:        "logger",
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeName:     zapcore.FullNameEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		LineEnding:     lineEnding,
	}
}

func orDefault(path, fallback string) string {
	if path == "" {
		return fallback
	}
	return path
}
