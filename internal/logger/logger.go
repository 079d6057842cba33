package logger

import (
	"github.com/google/uuid"
	"github.com/newthinker/archivist/internal/core"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a new zap logger. Logs go to stderr so stdout stays free for
// phase output such as printed verification results.
func New(development bool) (*zap.Logger, error) {
	var cfg zap.Config

	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	return cfg.Build()
}

// NewRunID returns a fresh identifier for one phase invocation
func NewRunID() string {
	return uuid.NewString()
}

// ForRun tags every entry with the phase and run id
func ForRun(log *zap.Logger, phase core.Phase, runID string) *zap.Logger {
	return log.With(
		zap.String("phase", string(phase)),
		zap.String("run_id", runID),
	)
}
