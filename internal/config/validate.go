package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var ErrNoToken = errors.New("telegram.token is required (or PASSENGER_BOT_TOKEN)")

// SweepParser parses dialogue.sweep_spec. Seconds are optional, so both
// "*/10 * * * *" and "0 */10 * * * *" are accepted, as are descriptors.
var SweepParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks values that would otherwise fail deep inside a component.
// It does not mutate cfg.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return ErrNoToken
	}
	if strings.TrimSpace(cfg.Telegram.FulfillerToken) != "" &&
		strings.TrimSpace(cfg.Telegram.FulfillerToken) == strings.TrimSpace(cfg.Telegram.Token) {
		return errors.New("telegram.fulfiller_token must differ from telegram.token")
	}
	if s := cfg.Storage; s != nil {
		switch strings.ToLower(strings.TrimSpace(s.Driver)) {
		case "", "file", "json", "sqlite", "sqlite3":
		default:
			return fmt.Errorf("storage.driver: unknown driver %q", s.Driver)
		}
	}
	for _, f := range durationFields(cfg) {
		if _, err := ParseDurationField(f.path, f.raw); err != nil {
			return err
		}
	}
	if spec := strings.TrimSpace(cfg.Dialogue.SweepSpec); spec != "" {
		if _, err := SweepParser.Parse(spec); err != nil {
			return fmt.Errorf("dialogue.sweep_spec: %w", err)
		}
	}
	if cfg.Dispatch.Concurrency < 0 || cfg.Dispatch.RatePerSec < 0 {
		return errors.New("dispatch: concurrency and rate_per_sec must be >= 0")
	}
	return nil
}

type durationField struct {
	path string
	raw  string
}

// durationFields lists every duration-valued knob, keyed by its config path.
func durationFields(cfg *Config) []durationField {
	out := []durationField{
		{"telegram.poll_timeout", cfg.Telegram.PollTimeout},
		{"dialogue.session_ttl", cfg.Dialogue.SessionTTL},
		{"dispatch.send_timeout", cfg.Dispatch.SendTimeout},
	}
	if s := cfg.Storage; s != nil {
		out = append(out, durationField{"storage.busy_timeout", s.BusyTimeout})
	}
	if n := cfg.Notifier; n != nil {
		out = append(out,
			durationField{"notifier.retry_base", n.RetryBase},
			durationField{"notifier.retry_max_delay", n.RetryMaxDelay},
			durationField{"notifier.send_timeout", n.SendTimeout},
			durationField{"notifier.dedup_window", n.DedupWindow},
		)
	}
	return out
}

// ParseDurationField parses a Go duration string. Blank means zero;
// negative values are rejected.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a duration (want e.g. 5s, 10m, 24h)", path, raw)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: %q is negative", path, raw)
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with def for blank or zero.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil || d > 0 {
		return d, err
	}
	return def, nil
}
