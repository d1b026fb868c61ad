package utils

import "go.uber.org/zap"

// NewLogger returns the process logger. Debug mode uses the development
// config (console encoder, debug level). Production mode is JSON at info
// level with sampling disabled, so stale-index and slow-query warnings are
// never dropped.
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Sampling = nil
	return cfg.Build()
}
