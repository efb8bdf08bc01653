package adapter

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	rtsup "ridebot/internal/runtime/supervisor"
	kit "ridebot/internal/transport"
	logx "ridebot/pkg/logx"
)

// Config configures one bot connection.
type Config struct {
	Token       string
	PollTimeout time.Duration
	// RequestTimeout bounds one Bot API call on top of the long-poll wait.
	RequestTimeout time.Duration
	// Offline skips the getMe call at construction (tests, dry runs).
	Offline bool
}

const (
	defaultPollTimeout    = 10 * time.Second
	defaultRequestTimeout = 10 * time.Second
	dropReportEvery       = 5 * time.Second
	stopGrace             = 2 * time.Second
)

// Adapter connects one Telegram bot (requester or fulfiller side) to the
// router through long polling.
type Adapter struct {
	log  logx.Logger
	bot  *tele.Bot
	http *http.Client // shared with telebot

	out     atomic.Pointer[chan<- kit.Update]
	dropped atomic.Uint64

	runMu sync.Mutex
	sup   *rtsup.Supervisor // set while running

	menuMu   sync.Mutex
	menuHash uint64
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	// getUpdates shares this client, so it must outlive the poll wait.
	client := &http.Client{Timeout: cfg.PollTimeout + cfg.RequestTimeout}
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Poller:  &tele.LongPoller{Timeout: cfg.PollTimeout},
		Client:  client,
		Offline: cfg.Offline,
	})
	if err != nil {
		return nil, err
	}
	a := &Adapter{log: log, bot: b, http: client}
	a.registerHandlers()
	return a, nil
}

func (a *Adapter) registerHandlers() {
	forward := func(c tele.Context) error {
		if up, ok := messageUpdate(c.Message()); ok {
			a.deliver(up)
		}
		return nil
	}
	a.bot.Handle(tele.OnText, forward)
	a.bot.Handle(tele.OnContact, forward)
	a.bot.Handle(tele.OnLocation, forward)
	a.bot.Handle(tele.OnCallback, func(c tele.Context) error {
		if up, ok := callbackUpdate(c.Callback()); ok {
			a.deliver(up)
		}
		return nil
	})
}

// deliver hands an update to the router without blocking the poll loop.
func (a *Adapter) deliver(up kit.Update) {
	p := a.out.Load()
	if p == nil || *p == nil {
		return
	}
	select {
	case *p <- up:
	default:
		a.dropped.Add(1)
	}
}

func (a *Adapter) reportDropped(capacity int) {
	if n := a.dropped.Swap(0); n > 0 {
		a.log.Warn("incoming updates dropped (router busy)", logx.Uint64("count", n), logx.Int("chan_cap", capacity))
	}
}

// Start begins long polling and forwards updates to out. A second call
// while running is a no-op.
func (a *Adapter) Start(ctx context.Context, out chan<- kit.Update) error {
	a.runMu.Lock()
	if a.sup != nil {
		a.runMu.Unlock()
		return nil
	}
	a.out.Store(&out)
	sup := rtsup.NewSupervisor(ctx, rtsup.WithLogger(a.log.With(logx.String("comp", "telegram.adapter"))))
	a.sup = sup
	a.runMu.Unlock()

	sup.Go0("updates.drop_report", func(c context.Context) {
		t := time.NewTicker(dropReportEvery)
		defer t.Stop()
		for {
			select {
			case <-c.Done():
				a.reportDropped(cap(out))
				return
			case <-t.C:
				a.reportDropped(cap(out))
			}
		}
	})
	sup.Go0("telebot.stop_on_cancel", func(c context.Context) {
		<-c.Done()
		a.bot.Stop()
	})
	// bot.Start blocks until bot.Stop. If it returns early the poll loop is
	// restarted.
	sup.GoRestart0("telebot.poll", func(context.Context) {
		a.log.Info("polling started")
		a.bot.Start()
		a.log.Info("polling stopped")
	},
		rtsup.WithRestartBackoff(500*time.Millisecond, 10*time.Second),
		rtsup.WithStopOnCleanExit(false),
	)
	return nil
}

// Stop ends polling. It waits at most stopGrace (or the ctx deadline) for
// the poll loop, since getUpdates may be mid-wait.
func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	sup := a.sup
	a.sup = nil
	a.out.Store(nil)
	a.runMu.Unlock()
	if sup == nil {
		return nil
	}

	a.log.Info("stopping", logx.Uint64("dropped_pending", a.dropped.Load()))
	sup.Cancel()

	wctx, cancel := context.WithTimeout(ctx, stopGrace)
	defer cancel()
	if err := sup.Wait(wctx); err != nil {
		a.log.Warn("telegram stop incomplete", logx.Err(err))
	}
	return nil
}
