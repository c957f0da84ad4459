package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`

	EMPGatewayURL string `env:"EMP_GATEWAY_URL,required=true"`
	EMPAPIKey     string `env:"EMP_API_KEY,required=true"`
	EMPAPISecret  string `env:"EMP_API_SECRET,required=true"`

	// Chargeback reason codes that trigger auto-blacklisting. The gateway
	// taxonomy evolves, so this is configuration, not a compiled-in list.
	// Defaults to "04,14" (invalid account number, account closed).
	ChargebackTriggerCodes string `env:"CHARGEBACK_TRIGGER_CODES"`

	GatewayTimeoutSeconds int    `env:"GATEWAY_TIMEOUT_SECONDS,default=30"`
	APIPort               int    `env:"API_PORT,default=8080"`
	LogLevel              string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

const defaultTriggerCodes = "04,14"

// TriggerCodes returns the configured chargeback trigger codes as a set.
func (c *Config) TriggerCodes() map[string]bool {
	raw := c.ChargebackTriggerCodes
	if strings.TrimSpace(raw) == "" {
		raw = defaultTriggerCodes
	}
	codes := make(map[string]bool)
	for _, code := range strings.Split(raw, ",") {
		code = strings.TrimSpace(code)
		if code != "" {
			codes[code] = true
		}
	}
	return codes
}

func (c *Config) GatewayTimeout() time.Duration {
	return time.Duration(c.GatewayTimeoutSeconds) * time.Second
}
