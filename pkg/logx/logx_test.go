package logx

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ridebot/internal/transport/fake"
)

func TestZeroAndNop(t *testing.T) {
	var zero Logger
	if !zero.IsZero() {
		t.Fatal("zero logger not reported as zero")
	}
	zero.Info("dropped")
	if Nop().IsZero() {
		t.Fatal("Nop reported as zero")
	}
	if zero.With(String("k", "v")).IsZero() {
		t.Fatal("logger with fields reported as zero")
	}
}

func TestFileSinkWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ridebot.log")
	svc, log := New(Config{Level: "debug", File: FileConfig{Enabled: true, Path: path}}, nil)
	log.With(String("comp", "test")).Info("hello", Int64("chat_id", 42), Err(errors.New("boom")))
	log.Debug("visible at debug")
	if err := svc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	out := string(raw)
	for _, want := range []string{`"message":"hello"`, `"comp":"test"`, `"chat_id":42`, `"err":"boom"`, `"message":"visible at debug"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log file missing %s:\n%s", want, out)
		}
	}
}

func TestApplyRaisesLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ridebot.log")
	svc, log := New(Config{Level: "info", File: FileConfig{Enabled: true, Path: path}}, nil)
	defer svc.Close()
	if !log.Enabled(LevelInfo) {
		t.Fatal("info disabled at level info")
	}
	svc.Apply(Config{Level: "error", File: FileConfig{Enabled: true, Path: path}})
	if log.Enabled(LevelWarn) {
		t.Fatal("existing logger did not follow Apply")
	}
}

func TestTelegramSinkForwardsWarnings(t *testing.T) {
	ad := fake.New()
	svc, log := New(Config{Level: "debug", Telegram: TelegramConfig{MinLevel: "warn", RatePerSec: 10}}, ad)
	defer svc.Close()
	svc.SetTelegramTarget(-100, 0)
	svc.Apply(Config{Level: "debug", Telegram: TelegramConfig{Enabled: true, MinLevel: "warn", RatePerSec: 10}})

	log.Info("routine")
	log.Warn("driver unreachable", Int64("chat_id", 8))
	if !ad.WaitSent(1, 2*time.Second) {
		t.Fatal("warning not forwarded")
	}
	time.Sleep(50 * time.Millisecond)
	got := ad.SentTo(-100)
	if len(got) != 1 {
		t.Fatalf("forwarded %d records, want 1: %q", len(got), got)
	}
	if !strings.HasPrefix(got[0], "[WARN] driver unreachable") || !strings.Contains(got[0], "- chat_id=8") {
		t.Fatalf("forwarded text = %q", got[0])
	}
}

func TestFormatTelegramJSON(t *testing.T) {
	got := formatTelegramJSON([]byte(`{"level":"error","time":"x","message":"send failed","b":2,"a":"x"}`))
	if want := "[ERROR] send failed\n- a=x\n- b=2"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got := formatTelegramJSON([]byte("not json")); got != "not json" {
		t.Fatalf("raw fallback = %q", got)
	}
	if got := truncate(strings.Repeat("x", 50), 20); len(got) != 20 || !strings.HasSuffix(got, "...") {
		t.Fatalf("truncate = %q", got)
	}
}
