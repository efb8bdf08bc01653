package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
telegram:
  token: "file-token"
  operator_usernames: ["dispatch_boss"]
  operator_user_ids: [500]
  poll_timeout: "10s"
logging:
  level: info
  console: true
storage:
  driver: sqlite
  path: ./ridebot.db
dialogue:
  default_locale: ru
  locales: [en, ru, he]
  session_ttl: 12h
  sweep_spec: "@every 5m"
dispatch:
  send_timeout: 3s
  concurrency: 4
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseYAML(t *testing.T) {
	m := NewConfigManager(writeFile(t, "config.yaml", sampleYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "file-token" || cfg.Dialogue.DefaultLocale != "ru" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Telegram.OperatorUserIDs, []int64{500}) {
		t.Fatalf("operator ids = %v", cfg.Telegram.OperatorUserIDs)
	}
	if cfg.Storage == nil || cfg.Storage.Driver != "sqlite" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if m.Get() != cfg {
		t.Fatal("Load did not commit")
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	m := NewConfigManager(writeFile(t, "config.json", `{"telegram":{"token":"x","owner_user_ids":[1]}}`))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	m := NewConfigManager(writeFile(t, "config.json", `{"telegram":{"token":"x"}}{}`))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected trailing data error")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("PASSENGER_BOT_TOKEN", "env-token")
	t.Setenv("DRIVER_BOT_TOKEN", "driver-token")
	t.Setenv("ADMIN_USERNAME", "alice, bob")
	t.Setenv("RIDEBOT_OPERATOR_CHAT_ID", "-100123")

	cfg, err := NewConfigManager(writeFile(t, "config.yaml", sampleYAML)).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Telegram.Token != "env-token" || cfg.Telegram.FulfillerToken != "driver-token" {
		t.Fatalf("tokens not overridden: %+v", cfg.Telegram)
	}
	if !reflect.DeepEqual(cfg.Telegram.OperatorUsernames, []string{"alice", "bob"}) {
		t.Fatalf("usernames = %q", cfg.Telegram.OperatorUsernames)
	}
	if cfg.Telegram.OperatorChatID != -100123 {
		t.Fatalf("operator chat = %d", cfg.Telegram.OperatorChatID)
	}
}

func TestParseWithoutFileUsesEnv(t *testing.T) {
	t.Setenv("PASSENGER_BOT_TOKEN", "env-only")
	t.Setenv("ADMIN_USERNAME", "boss")

	cfg, err := NewConfigManager(filepath.Join(t.TempDir(), "missing.yaml")).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Telegram.Token != "env-only" || !reflect.DeepEqual(cfg.Telegram.OperatorUsernames, []string{"boss"}) {
		t.Fatalf("env not applied: %+v", cfg.Telegram)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestParseBlankFile(t *testing.T) {
	t.Setenv("PASSENGER_BOT_TOKEN", "")
	cfg, err := NewConfigManager(writeFile(t, "config.yaml", "\n  \n")).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !errors.Is(Validate(cfg), ErrNoToken) {
		t.Fatal("blank config without env should lack a token")
	}
}

func TestValidateAcceptsWhatComponentsAccept(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"six-field spec":  func(c *Config) { c.Dialogue.SweepSpec = "0 */10 * * * *" },
		"five-field spec": func(c *Config) { c.Dialogue.SweepSpec = "*/10 * * * *" },
		"descriptor":      func(c *Config) { c.Dialogue.SweepSpec = "@every 10m" },
		"sqlite3 driver":  func(c *Config) { c.Storage = &StorageConfig{Driver: "sqlite3", Path: "x.db"} },
	} {
		c := &Config{Telegram: TelegramConfig{Token: "t"}}
		mutate(c)
		if err := Validate(c); err != nil {
			t.Fatalf("%s rejected: %v", name, err)
		}
	}
}

func TestDurationErrorNamesField(t *testing.T) {
	c := &Config{Telegram: TelegramConfig{Token: "t"}, Notifier: &NotifierConfig{DedupWindow: "1 hour"}}
	err := Validate(c)
	if err == nil || !strings.Contains(err.Error(), "notifier.dedup_window") {
		t.Fatalf("err = %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{Telegram: TelegramConfig{Token: "t"}}
	}
	if err := Validate(base()); err != nil {
		t.Fatalf("minimal config rejected: %v", err)
	}

	noToken := base()
	noToken.Telegram.Token = " "
	if err := Validate(noToken); !errors.Is(err, ErrNoToken) {
		t.Fatalf("err = %v, want ErrNoToken", err)
	}

	cases := map[string]func(*Config){
		"same tokens":  func(c *Config) { c.Telegram.FulfillerToken = "t" },
		"bad driver":   func(c *Config) { c.Storage = &StorageConfig{Driver: "redis"} },
		"bad ttl":      func(c *Config) { c.Dialogue.SessionTTL = "soon" },
		"bad spec":     func(c *Config) { c.Dialogue.SweepSpec = "every now and then" },
		"neg timeout":  func(c *Config) { c.Dispatch.SendTimeout = "-1s" },
		"neg workers":  func(c *Config) { c.Dispatch.Concurrency = -1 },
		"bad notifier": func(c *Config) { c.Notifier = &NotifierConfig{RetryBase: "x"} },
	}
	for name, mutate := range cases {
		c := base()
		mutate(c)
		if err := Validate(c); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	d, err := ParseDurationOrDefault("x", "", 5*time.Second)
	if err != nil || d != 5*time.Second {
		t.Fatalf("d=%v err=%v", d, err)
	}
	d, err = ParseDurationOrDefault("x", "0s", 24*time.Hour)
	if err != nil || d != 24*time.Hour {
		t.Fatalf("d=%v err=%v", d, err)
	}
	if _, err := ParseDurationField("x", "-3s"); err == nil {
		t.Fatal("negative duration accepted")
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	a := &Config{Telegram: TelegramConfig{Token: "a"}}
	b := &Config{Telegram: TelegramConfig{Token: "b"}, Dialogue: DialogueConfig{SessionTTL: "1h"}}
	changed, attrs := SummarizeConfigChange(a, b)
	if !reflect.DeepEqual(changed, []string{"dialogue", "telegram.tokens"}) {
		t.Fatalf("changed = %v", changed)
	}
	if len(attrs) == 0 {
		t.Fatal("no attrs for dialogue change")
	}
	if got := RestartRequired(changed); !reflect.DeepEqual(got, []string{"telegram.tokens"}) {
		t.Fatalf("restart = %v", got)
	}
	if changed, _ := SummarizeConfigChange(a, a); len(changed) != 0 {
		t.Fatalf("identical configs reported %v", changed)
	}
}

func TestReloadPublishesOnlyValidChanges(t *testing.T) {
	path := writeFile(t, "config.json", `{"telegram":{"token":"a"}}`)
	m := NewConfigManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatal(err)
	}
	m.SetValidator(func(_ context.Context, c *Config) error { return Validate(c) })
	sub := m.Subscribe(1)
	defer m.Unsubscribe(sub)
	ctx := context.Background()

	if m.reload(ctx) {
		t.Fatal("unchanged file republished")
	}

	if err := os.WriteFile(path, []byte(`{"telegram":{"token":""}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if m.reload(ctx) {
		t.Fatal("invalid config published")
	}
	if m.Get().Telegram.Token != "a" {
		t.Fatal("invalid config committed")
	}

	if err := os.WriteFile(path, []byte(`{"telegram":{"token":"b"}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if !m.reload(ctx) {
		t.Fatal("valid change not published")
	}
	select {
	case got := <-sub:
		if got.Telegram.Token != "b" {
			t.Fatalf("published token %q", got.Telegram.Token)
		}
	default:
		t.Fatal("subscriber got nothing")
	}
}

func TestReloadKeepsConfigWhenFileRemoved(t *testing.T) {
	path := writeFile(t, "config.json", `{"telegram":{"token":"a"},"dialogue":{"session_ttl":"1h"}}`)
	m := NewConfigManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if m.reload(context.Background()) {
		t.Fatal("removed file published a config")
	}
	if m.Get().Dialogue.SessionTTL != "1h" {
		t.Fatal("current config replaced")
	}
}

func TestPublishKeepsNewestForSlowSubscriber(t *testing.T) {
	m := NewConfigManager("unused.json")
	sub := m.Subscribe(1)
	first, second := &Config{}, &Config{}
	m.publish(first)
	m.publish(second)
	if got := <-sub; got != second {
		t.Fatal("slow subscriber did not receive the newest config")
	}
}
