package config

import (
	"fmt"

	"go.uber.org/zap"
)

// BuildLogger creates the application logger. Production uses the JSON
// production preset; everything else uses the development preset.
func (l LoggingConfig) BuildLogger(env string) (*zap.Logger, error) {
	var zapConfig zap.Config
	if env == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	if l.Level != "" {
		level, err := zap.ParseAtomicLevel(l.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", l.Level, err)
		}
		zapConfig.Level = level
	}
	if l.Format != "" {
		zapConfig.Encoding = l.Format
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
