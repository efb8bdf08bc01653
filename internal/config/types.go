package config

type Config struct {
	Telegram TelegramConfig  `json:"telegram"`
	Logging  LoggingConfig   `json:"logging"`
	Storage  *StorageConfig  `json:"storage,omitempty"`
	Dialogue DialogueConfig  `json:"dialogue"`
	Dispatch DispatchConfig  `json:"dispatch"`
	Notifier *NotifierConfig `json:"notifier,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// FulfillerToken runs a second bot that drivers talk to. Empty means
	// orders go out through the requester bot.
	FulfillerToken string `json:"fulfiller_token,omitempty"`

	OperatorUsernames []string `json:"operator_usernames"`
	OperatorUserIDs   []int64  `json:"operator_user_ids"`
	// OperatorChatID receives failure reports. When 0 the first chat an
	// operator command arrives from is used.
	OperatorChatID int64  `json:"operator_chat_id,omitempty"`
	GroupLog       string `json:"group_log"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout"`
	Workers     int    `json:"workers,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ThreadID   int    `json:"thread_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// StorageConfig selects where the driver registry lives.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./drivers.json" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// DialogueConfig controls the requester conversation.
//
// Defaults (when fields are omitted/zero):
//   - default_locale: "en"
//   - locales: all built-in
//   - session_ttl: "24h" ("0s" keeps sessions forever)
//   - sweep_spec: "@every 10m"
type DialogueConfig struct {
	DefaultLocale string   `json:"default_locale"`
	Locales       []string `json:"locales,omitempty"`
	SessionTTL    string   `json:"session_ttl,omitempty"`
	SweepSpec     string   `json:"sweep_spec,omitempty"`
}

// DispatchConfig controls order fan-out to drivers.
type DispatchConfig struct {
	SendTimeout     string `json:"send_timeout,omitempty"`
	Concurrency     int    `json:"concurrency,omitempty"`
	RatePerSec      int    `json:"rate_per_sec,omitempty"`
	FulfillerLocale string `json:"fulfiller_locale,omitempty"`
}

// NotifierConfig controls the async operator notification pipeline.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
// If the whole section is omitted, the notifier defaults to enabled=true.
type NotifierConfig struct {
	Enabled         bool   `json:"enabled"`
	Workers         int    `json:"workers"`
	QueueSize       int    `json:"queue_size"`
	RatePerSec      int    `json:"rate_per_sec"`
	RetryMax        int    `json:"retry_max"`
	RetryBase       string `json:"retry_base"`
	RetryMaxDelay   string `json:"retry_max_delay"`
	SendTimeout     string `json:"send_timeout,omitempty"`
	DedupWindow     string `json:"dedup_window"`
	DedupMaxEntries int    `json:"dedup_max_entries"`
}
