package app

import (
	"os"

	"service-delivery/internal/config"
	"service-delivery/internal/logx"
)

// NewLogger builds the JSON logger at the configured level.
func NewLogger(cfg *config.Config) (logx.Logger, error) {
	level, err := logx.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logx.NewJSON(os.Stdout, level).With(logx.String("service", "service-delivery")), nil
}
