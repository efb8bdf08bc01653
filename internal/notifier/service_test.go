package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ridebot/internal/eventbus"
	"ridebot/internal/transport/fake"
	logx "ridebot/pkg/logx"
)

func startService(t *testing.T, cfg Config, ad *fake.Adapter, bus eventbus.Bus) *Service {
	t.Helper()
	s := New(cfg, ad, logx.Nop(), bus)
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	t.Cleanup(func() {
		sctx, scancel := context.WithTimeout(context.Background(), time.Second)
		s.Stop(sctx)
		scancel()
		cancel()
	})
	return s
}

func TestNotifyOperatorWithoutChat(t *testing.T) {
	s := startService(t, Config{Enabled: true}, fake.New(), nil)
	if err := s.NotifyOperator(context.Background(), "hi", PriorityInfo); !errors.Is(err, ErrNoOperator) {
		t.Fatalf("err = %v", err)
	}
}

func TestNotifyOperatorDelivers(t *testing.T) {
	ad := fake.New()
	bus := eventbus.New()
	events, unsub := bus.Subscribe(4)
	defer unsub()

	s := startService(t, Config{Enabled: true, RatePerSec: 100}, ad, bus)
	s.SetOperatorChat(77, 0)
	if err := s.NotifyOperator(context.Background(), "ORDER DELIVERY FAILED", PriorityWarn); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if !ad.WaitSent(1, time.Second) {
		t.Fatal("nothing sent")
	}
	got := ad.SentTo(77)
	if len(got) != 1 || !strings.HasPrefix(got[0], "⚠️ ") || !strings.HasSuffix(got[0], "ORDER DELIVERY FAILED") {
		t.Fatalf("sent = %q", got)
	}
	select {
	case ev := <-events:
		if ev.Type != eventbus.TypeNotifySent {
			t.Fatalf("event = %s", ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("no bus event")
	}
}

func TestSetOperatorChatIfUnset(t *testing.T) {
	s := New(Config{}, fake.New(), logx.Nop(), nil)
	if !s.SetOperatorChatIfUnset(5) {
		t.Fatal("first set rejected")
	}
	if s.SetOperatorChatIfUnset(6) {
		t.Fatal("second set accepted")
	}
	if s.OperatorChat().ChatID != 5 {
		t.Fatalf("chat = %d", s.OperatorChat().ChatID)
	}
}

func TestDedupWindow(t *testing.T) {
	ad := fake.New()
	s := startService(t, Config{Enabled: true, RatePerSec: 100, DedupWindow: time.Minute}, ad, nil)
	s.SetOperatorChat(1, 0)
	for i := 0; i < 3; i++ {
		_ = s.NotifyOperator(context.Background(), "same", PriorityLow)
	}
	_ = s.NotifyOperator(context.Background(), "other", PriorityLow)
	if !ad.WaitSent(2, time.Second) {
		t.Fatal("expected two sends")
	}
	time.Sleep(50 * time.Millisecond)
	if got := ad.SentTo(1); len(got) != 2 {
		t.Fatalf("sent = %q", got)
	}
}

func TestDisabledAndStopped(t *testing.T) {
	s := New(Config{Enabled: false}, fake.New(), logx.Nop(), nil)
	s.SetOperatorChat(1, 0)
	if err := s.NotifyOperator(context.Background(), "x", 0); !errors.Is(err, ErrDisabled) {
		t.Fatalf("disabled err = %v", err)
	}

	s = New(Config{Enabled: true}, fake.New(), logx.Nop(), nil)
	s.SetOperatorChat(1, 0)
	if err := s.NotifyOperator(context.Background(), "x", 0); !errors.Is(err, ErrStopped) {
		t.Fatalf("not started err = %v", err)
	}
}

func TestRetryDelayBounds(t *testing.T) {
	cfg := Config{RetryBase: 100 * time.Millisecond, RetryMaxDelay: time.Second}
	for attempt := 1; attempt <= 6; attempt++ {
		d := retryDelay(cfg, attempt)
		if d <= 0 || d > time.Second {
			t.Fatalf("attempt %d: delay %v out of bounds", attempt, d)
		}
	}
}
