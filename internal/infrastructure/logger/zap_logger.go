package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a production zap logger writing to stderr.
func NewLogger(level string) (*zap.Logger, error) {
	return build(level, nil)
}

// NewFileLogger builds a production zap logger writing to the given file.
func NewFileLogger(path, level string) (*zap.Logger, error) {
	return build(level, []string{path})
}

func build(level string, outputPaths []string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()

	l, err := zapcore.ParseLevel(level)
	if err != nil {
		l = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(l)

	if len(outputPaths) > 0 {
		config.OutputPaths = outputPaths
	}

	return config.Build()
}
