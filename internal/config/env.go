package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// envOverrides holds secrets and deployment knobs that may come from the
// environment instead of the config file. Set values win over the file.
type envOverrides struct {
	PassengerToken string `envconfig:"PASSENGER_BOT_TOKEN"`
	DriverToken    string `envconfig:"DRIVER_BOT_TOKEN"`
	// ADMIN_USERNAME is a comma separated list.
	AdminUsernames []string `envconfig:"ADMIN_USERNAME"`
	OperatorChatID int64    `envconfig:"RIDEBOT_OPERATOR_CHAT_ID"`
	LogLevel       string   `envconfig:"RIDEBOT_LOG_LEVEL"`
}

// ApplyEnv overlays environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	if cfg == nil {
		return nil
	}
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("env: %w", err)
	}
	if s := strings.TrimSpace(env.PassengerToken); s != "" {
		cfg.Telegram.Token = s
	}
	if s := strings.TrimSpace(env.DriverToken); s != "" {
		cfg.Telegram.FulfillerToken = s
	}
	if len(env.AdminUsernames) > 0 {
		names := make([]string, 0, len(env.AdminUsernames))
		for _, n := range env.AdminUsernames {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
		if len(names) > 0 {
			cfg.Telegram.OperatorUsernames = names
		}
	}
	if env.OperatorChatID != 0 {
		cfg.Telegram.OperatorChatID = env.OperatorChatID
	}
	if s := strings.TrimSpace(env.LogLevel); s != "" {
		cfg.Logging.Level = s
	}
	return nil
}
