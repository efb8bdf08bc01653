package config

import (
	"reflect"
	"sort"
	"strings"

	logx "ridebot/pkg/logx"
)

// SummarizeConfigChange returns a compact list of changed sections and
// safe structured attrs for logging. Tokens are never included.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 20)

	ot, nt := oldCfg.Telegram, newCfg.Telegram
	if ot.Token != nt.Token || ot.FulfillerToken != nt.FulfillerToken {
		// Tokens only apply on restart; report that they moved, nothing more.
		changed = append(changed, "telegram.tokens")
	}
	if strings.TrimSpace(ot.PollTimeout) != strings.TrimSpace(nt.PollTimeout) ||
		!reflect.DeepEqual(ot.OperatorUsernames, nt.OperatorUsernames) ||
		!reflect.DeepEqual(ot.OperatorUserIDs, nt.OperatorUserIDs) ||
		ot.OperatorChatID != nt.OperatorChatID ||
		ot.Workers != nt.Workers ||
		strings.TrimSpace(ot.GroupLog) != strings.TrimSpace(nt.GroupLog) {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.String("telegram.poll_timeout", strings.TrimSpace(nt.PollTimeout)),
			logx.Int("telegram.operator_count", len(nt.OperatorUsernames)+len(nt.OperatorUserIDs)),
			logx.Bool("telegram.operator_chat_set", nt.OperatorChatID != 0),
			logx.Bool("telegram.group_log_set", strings.TrimSpace(nt.GroupLog) != ""),
		)
	}

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logx.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}

	if !reflect.DeepEqual(oldCfg.Dialogue, newCfg.Dialogue) {
		changed = append(changed, "dialogue")
		attrs = append(attrs,
			logx.String("dialogue.default_locale", newCfg.Dialogue.DefaultLocale),
			logx.Strings("dialogue.locales", newCfg.Dialogue.Locales),
			logx.String("dialogue.session_ttl", newCfg.Dialogue.SessionTTL),
			logx.String("dialogue.sweep_spec", newCfg.Dialogue.SweepSpec),
		)
	}

	if oldCfg.Dispatch != newCfg.Dispatch {
		changed = append(changed, "dispatch")
		attrs = append(attrs,
			logx.String("dispatch.send_timeout", newCfg.Dispatch.SendTimeout),
			logx.Int("dispatch.concurrency", newCfg.Dispatch.Concurrency),
			logx.Int("dispatch.rate_per_sec", newCfg.Dispatch.RatePerSec),
		)
	}

	// A nil section means runtime defaults.
	defN := &NotifierConfig{Enabled: true}
	oldN, newN := oldCfg.Notifier, newCfg.Notifier
	if oldN == nil {
		oldN = defN
	}
	if newN == nil {
		newN = defN
	}
	if *oldN != *newN {
		changed = append(changed, "notifier")
		attrs = append(attrs,
			logx.Bool("notifier.enabled", newN.Enabled),
			logx.Int("notifier.workers", newN.Workers),
			logx.Int("notifier.queue_size", newN.QueueSize),
			logx.Int("notifier.rate_per_sec", newN.RatePerSec),
			logx.Int("notifier.retry_max", newN.RetryMax),
		)
	}

	var oDriver, nDriver, oPath, nPath string
	if s := oldCfg.Storage; s != nil {
		oDriver, oPath = strings.TrimSpace(s.Driver), strings.TrimSpace(s.Path)
	}
	if s := newCfg.Storage; s != nil {
		nDriver, nPath = strings.TrimSpace(s.Driver), strings.TrimSpace(s.Path)
	}
	if oDriver != nDriver || oPath != nPath {
		// Storage is opened once at startup.
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", nDriver),
			logx.Bool("storage.path_set", nPath != ""),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}

// RestartRequired reports sections in changed that only take effect after
// a restart.
func RestartRequired(changed []string) []string {
	var out []string
	for _, c := range changed {
		if c == "storage" || c == "telegram.tokens" {
			out = append(out, c)
		}
	}
	return out
}
