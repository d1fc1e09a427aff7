package main

import (
	"github.com/RounakBanerji/Twinenergy-Demo/internal/config"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/logging"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(cfg.ServiceName, cfg.LogLevel)
}

// bootLogger logs before configuration is available
func bootLogger() *zap.Logger {
	logger, err := logging.NewLogger(config.Default().ServiceName, "info")
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
