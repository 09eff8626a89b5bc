package app

import (
	"github.com/yungbote/optocase-backend/internal/platform/envutil"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
)

type Config struct {
	HTTPAddr    string
	MetricsAddr string
	Environment string
	Version     string
	RedisAddr   string
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		HTTPAddr:    ":" + envutil.Str("PORT", "8080"),
		MetricsAddr: ":" + envutil.Str("METRICS_PORT", "9090"),
		Environment: envutil.Str("APP_ENV", "development"),
		Version:     envutil.Str("APP_VERSION", "dev"),
		RedisAddr:   envutil.Str("REDIS_ADDR", ""),
	}
	log.Info("config loaded", "env", cfg.Environment, "http_addr", cfg.HTTPAddr)
	return cfg
}
