package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ridebot/internal/config"
	"ridebot/internal/dispatch"
	"ridebot/internal/notifier"
	"ridebot/internal/operator"
	"ridebot/internal/storage"
	logx "ridebot/pkg/logx"
)

const (
	defaultStorePath  = "./drivers.json"
	defaultSessionTTL = 24 * time.Hour
	defaultSweepSpec  = "@every 10m"
)

// mapStorageConfig never disables storage: the registry always persists,
// to ./drivers.json when nothing is configured.
func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{Driver: "file", Path: defaultStorePath}, nil
	}
	sc := cfg.Storage
	path := strings.TrimSpace(sc.Path)
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	switch driver {
	case "", "file", "json":
		if path == "" {
			path = defaultStorePath
		}
		return storage.Config{Driver: "file", Path: path}, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, err
		}
		return storage.Config{Driver: "sqlite", Path: path, BusyTimeout: busy}, nil
	default:
		return storage.Config{}, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

// mapNotifierConfig fills defaults. An omitted section means enabled.
// Retries stay off unless configured.
func mapNotifierConfig(cfg *config.Config) (notifier.Config, error) {
	nc := &config.NotifierConfig{Enabled: true}
	if cfg != nil && cfg.Notifier != nil {
		nc = cfg.Notifier
	}
	out := notifier.Config{
		Enabled:         nc.Enabled,
		Workers:         nc.Workers,
		QueueSize:       nc.QueueSize,
		RatePerSec:      nc.RatePerSec,
		RetryMax:        nc.RetryMax,
		DedupMaxEntries: nc.DedupMaxEntries,
	}
	if out.Workers <= 0 {
		out.Workers = 2
	}
	if out.QueueSize <= 0 {
		out.QueueSize = 256
	}
	if out.RatePerSec <= 0 {
		out.RatePerSec = 3
	}
	if out.RetryMax < 0 {
		out.RetryMax = 0
	}
	if out.DedupMaxEntries <= 0 {
		out.DedupMaxEntries = 1000
	}
	var err error
	if out.RetryBase, err = config.ParseDurationOrDefault("notifier.retry_base", nc.RetryBase, 500*time.Millisecond); err != nil {
		return notifier.Config{}, err
	}
	if out.RetryMaxDelay, err = config.ParseDurationOrDefault("notifier.retry_max_delay", nc.RetryMaxDelay, 10*time.Second); err != nil {
		return notifier.Config{}, err
	}
	if out.SendTimeout, err = config.ParseDurationOrDefault("notifier.send_timeout", nc.SendTimeout, 10*time.Second); err != nil {
		return notifier.Config{}, err
	}
	if out.DedupWindow, err = config.ParseDurationField("notifier.dedup_window", nc.DedupWindow); err != nil {
		return notifier.Config{}, err
	}
	return out, nil
}

func mapDispatchConfig(cfg *config.Config) (dispatch.Config, error) {
	dc := cfg.Dispatch
	timeout, err := config.ParseDurationField("dispatch.send_timeout", dc.SendTimeout)
	if err != nil {
		return dispatch.Config{}, err
	}
	// Zero values fall back to the dispatcher defaults.
	return dispatch.Config{
		SendTimeout:     timeout,
		Concurrency:     dc.Concurrency,
		RatePerSec:      dc.RatePerSec,
		FulfillerLocale: strings.TrimSpace(dc.FulfillerLocale),
	}, nil
}

type dialogueSettings struct {
	ttl       time.Duration
	sweepSpec string
}

func mapDialogueConfig(cfg *config.Config) (dialogueSettings, error) {
	ds := dialogueSettings{ttl: defaultSessionTTL, sweepSpec: defaultSweepSpec}
	if raw := strings.TrimSpace(cfg.Dialogue.SessionTTL); raw != "" {
		d, err := config.ParseDurationField("dialogue.session_ttl", raw)
		if err != nil {
			return ds, err
		}
		ds.ttl = d // "0s" disables eviction
	}
	if s := strings.TrimSpace(cfg.Dialogue.SweepSpec); s != "" {
		ds.sweepSpec = s
	}
	return ds, nil
}

func mapGateConfig(cfg *config.Config) operator.GateConfig {
	return operator.GateConfig{
		Usernames: cfg.Telegram.OperatorUsernames,
		UserIDs:   cfg.Telegram.OperatorUserIDs,
	}
}

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			ThreadID:   cfg.Logging.Telegram.ThreadID,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

// groupLogChat parses telegram.group_log. Empty or invalid yields 0.
func groupLogChat(cfg *config.Config) int64 {
	raw := strings.TrimSpace(cfg.Telegram.GroupLog)
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
