package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"ridebot/internal/config"
	"ridebot/internal/dialogue"
	"ridebot/internal/eventbus"
	logx "ridebot/pkg/logx"
)

// sweeper evicts idle dialogue sessions on a cron schedule.
type sweeper struct {
	mu     sync.Mutex
	c      *cron.Cron
	entry  cron.EntryID
	spec   string
	parser cron.Parser

	sessions *dialogue.Sessions
	bus      eventbus.Bus
	log      logx.Logger
	now      func() time.Time
}

func newSweeper(sessions *dialogue.Sessions, bus eventbus.Bus, log logx.Logger) *sweeper {
	return &sweeper{
		sessions: sessions,
		bus:      bus,
		log:      log,
		now:      time.Now,
		parser:   config.SweepParser,
	}
}

// Start begins triggering on spec. Calling it again is a no-op.
func (s *sweeper) Start(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}
	s.c = cron.New(cron.WithParser(s.parser), cron.WithChain(cron.Recover(cronLogger{s.log})))
	if err := s.scheduleLocked(spec); err != nil {
		s.c = nil
		return err
	}
	s.c.Start()
	s.log.Info("session sweeper started", logx.String("spec", s.spec))
	return nil
}

// Apply swaps the schedule of a running sweeper.
func (s *sweeper) Apply(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	spec = strings.TrimSpace(spec)
	if s.c == nil || spec == s.spec {
		return nil
	}
	prev := s.entry
	if err := s.scheduleLocked(spec); err != nil {
		return err
	}
	s.c.Remove(prev)
	s.log.Info("session sweep rescheduled", logx.String("spec", spec))
	return nil
}

func (s *sweeper) scheduleLocked(spec string) error {
	spec = strings.TrimSpace(spec)
	sched, err := s.parser.Parse(spec)
	if err != nil {
		return err
	}
	s.entry = s.c.Schedule(sched, cron.FuncJob(s.RunOnce))
	s.spec = spec
	return nil
}

// RunOnce evicts idle sessions now.
func (s *sweeper) RunOnce() {
	evicted := s.sessions.Sweep(s.now())
	for _, id := range evicted {
		eventbus.Publish(s.bus, eventbus.TypeSessionEvicted, id)
	}
	if len(evicted) > 0 {
		s.log.Info("idle sessions evicted", logx.Int("count", len(evicted)), logx.Int("remaining", s.sessions.Len()))
	}
}

func (s *sweeper) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
}

// cronLogger adapts logx to cron.Logger.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.Debug("cron: "+msg, logx.Any("kv", kv))
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Error("cron: "+msg, logx.Err(err), logx.Any("kv", kv))
}
