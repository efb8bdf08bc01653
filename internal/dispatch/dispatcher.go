// Package dispatch delivers confirmed orders to every registered fulfiller.
//
// Delivery is scatter/gather: one attempt per fulfiller, all attempts run
// to completion, failures are collected into a Report. The requester always
// gets exactly one acknowledgment; fulfiller-side failures only reach the
// operator.
package dispatch

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"ridebot/internal/eventbus"
	"ridebot/internal/i18n"
	"ridebot/internal/notifier"
	"ridebot/internal/storage"
	kit "ridebot/internal/transport"
	logx "ridebot/pkg/logx"
)

type Deps struct {
	Catalog    *i18n.Catalog
	Registry   Snapshotter
	Fulfillers Sender    // bot that writes to fulfillers
	Requesters Messenger // bot that talks to requesters
	Operator   OperatorNotifier
	Store      storage.Store // audit; may be nil
	Bus        eventbus.Bus  // may be nil
	Log        logx.Logger
}

type Dispatcher struct {
	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter

	d Deps
}

func New(cfg Config, d Deps) *Dispatcher {
	if d.Log.IsZero() {
		d.Log = logx.Nop()
	}
	if d.Catalog == nil {
		d.Catalog = i18n.New(i18n.Fallback)
	}
	x := &Dispatcher{d: d}
	x.Apply(cfg)
	return x
}

func (x *Dispatcher) Apply(cfg Config) {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = defaultRatePerSec
	}
	x.mu.Lock()
	x.cfg = cfg
	x.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	x.mu.Unlock()
}

// SetFulfillerSender swaps the bot used to reach fulfillers.
func (x *Dispatcher) SetFulfillerSender(s Sender) {
	x.mu.Lock()
	x.d.Fulfillers = s
	x.mu.Unlock()
}

// Dispatch delivers o and acknowledges the requester. It never returns an
// error: every failure is logged and reflected in the report.
func (x *Dispatcher) Dispatch(ctx context.Context, o Order) Report {
	start := time.Now()
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}

	x.mu.Lock()
	cfg := x.cfg
	lim := x.limiter
	fulfillers := x.d.Fulfillers
	x.mu.Unlock()

	log := x.d.Log.With(
		logx.String("order", o.ID.String()),
		logx.Int64("requester", o.Requester.ChatID),
	)

	locale := cfg.FulfillerLocale
	if locale == "" {
		locale = x.d.Catalog.Default()
	}
	body := FormatOrder(x.d.Catalog, locale, o.Draft, o.Requester.Username)

	var ids []int64
	if x.d.Registry != nil {
		ids = x.d.Registry.List()
	}
	rep := Report{OrderID: o.ID, Recipients: len(ids), Body: body}

	who := customerLabel(o.Requester.Username, o.Draft.Name)
	ackKey := i18n.KeyAccepted
	if len(ids) == 0 {
		ackKey = i18n.KeyNoFulfillers
		log.Warn("order has no fulfillers")
		x.notifyOperator(ctx, cfg.SendTimeout, log, fmt.Sprintf(
			"New order from %s but no drivers are registered. Please add drivers using /add_driver CHAT_ID.", who))
	} else {
		rep.Failed = x.fanOut(ctx, log, cfg, lim, fulfillers, ids, body)
		if len(rep.Failed) > 0 {
			x.notifyOperator(ctx, cfg.SendTimeout, log, failureText(who, o.ID, rep.Failed))
		}
	}

	x.acknowledge(ctx, cfg.SendTimeout, log, o.Requester, ackKey)

	rep.Duration = time.Since(start)
	fields := []logx.Field{
		logx.Int("recipients", rep.Recipients),
		logx.Int("failed", len(rep.Failed)),
		logx.Duration("dur", rep.Duration),
	}
	if len(rep.Failed) > 0 {
		log.Warn("order dispatched with failures", append(fields, logx.Int64s("failed_ids", rep.Failed))...)
	} else {
		log.Info("order dispatched", fields...)
	}

	x.audit(ctx, cfg.SendTimeout, log, o, rep)
	eventbus.Publish(x.d.Bus, eventbus.TypeDispatchReport, rep)
	return rep
}

// fanOut sends body to every id concurrently and returns the failed ids in
// input order. It waits for every attempt.
func (x *Dispatcher) fanOut(ctx context.Context, log logx.Logger, cfg Config, lim *rate.Limiter, s Sender, ids []int64, body string) []int64 {
	errs := make([]error, len(ids))
	sem := make(chan struct{}, cfg.Concurrency)
	var wg sync.WaitGroup

	for i, id := range ids {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("panic: %v", r)
				}
			}()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				errs[i] = ctx.Err()
				return
			}
			defer func() { <-sem }()
			errs[i] = sendOne(ctx, cfg.SendTimeout, lim, s, id, body)
		}(i, id)
	}
	wg.Wait()

	var failed []int64
	for i, err := range errs {
		if err != nil {
			log.Warn("fulfiller delivery failed", logx.Int64("chat_id", ids[i]), logx.Err(err))
			failed = append(failed, ids[i])
		}
	}
	return failed
}

func sendOne(ctx context.Context, timeout time.Duration, lim *rate.Limiter, s Sender, id int64, body string) error {
	if s == nil {
		return fmt.Errorf("no fulfiller sender")
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if lim != nil {
		if err := lim.Wait(cctx); err != nil {
			return err
		}
	}
	// Bot API calls may ignore ctx; the attempt fails at the deadline
	// whether or not the call returns.
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic: %v", r)
			}
		}()
		_, err := s.SendText(cctx, kit.ChatTarget{ChatID: id}, body, &kit.SendOptions{DisablePreview: true})
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-cctx.Done():
		return fmt.Errorf("send to %d: %w", id, cctx.Err())
	}
}

// followUp returns a context for the work that must happen after the
// fan-out even if ctx was cancelled or used up by slow sends.
func followUp(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

// acknowledge sends the single requester-facing confirmation. It edits the
// summary message when known and falls back to a new message if the edit
// fails.
func (x *Dispatcher) acknowledge(ctx context.Context, timeout time.Duration, log logx.Logger, r Requester, key string) {
	if x.d.Requesters == nil || r.ChatID == 0 {
		return
	}
	ctx, cancel := followUp(ctx, timeout)
	defer cancel()
	text := x.d.Catalog.T(r.Locale, key)
	if r.Source != nil {
		err := x.d.Requesters.EditText(ctx, *r.Source, text, nil)
		if err == nil {
			return
		}
		log.Debug("ack edit failed, sending instead", logx.Err(err))
	}
	if _, err := x.d.Requesters.SendText(ctx, kit.ChatTarget{ChatID: r.ChatID}, text, nil); err != nil {
		log.Warn("requester ack failed", logx.Err(err))
	}
}

func (x *Dispatcher) notifyOperator(ctx context.Context, timeout time.Duration, log logx.Logger, text string) {
	if x.d.Operator == nil {
		log.Warn("operator notification dropped: no notifier")
		return
	}
	ctx, cancel := followUp(ctx, timeout)
	defer cancel()
	if err := x.d.Operator.NotifyOperator(ctx, text, notifier.PriorityWarn); err != nil {
		log.Warn("operator notification failed", logx.Err(err))
	}
}

func (x *Dispatcher) audit(ctx context.Context, timeout time.Duration, log logx.Logger, o Order, rep Report) {
	if x.d.Store == nil {
		return
	}
	ctx, cancel := followUp(ctx, timeout)
	defer cancel()
	e := storage.AuditEntry{
		At:            time.Now(),
		ActorID:       o.Requester.ChatID,
		ActorUsername: o.Requester.Username,
		ChatID:        o.Requester.ChatID,
		Action:        "order.dispatch",
		Target:        o.ID.String(),
		OK:            rep.Delivered(),
		Fail:          len(rep.Failed),
		TookMS:        rep.Duration.Milliseconds(),
	}
	if rep.Recipients == 0 {
		e.Error = "no fulfillers"
	}
	if err := x.d.Store.AppendAudit(ctx, e); err != nil {
		log.Warn("audit append failed", logx.Err(err))
	}
}

func failureText(who string, id uuid.UUID, failed []int64) string {
	parts := make([]string, len(failed))
	for i, f := range failed {
		parts[i] = strconv.FormatInt(f, 10)
	}
	return fmt.Sprintf("ORDER DELIVERY FAILED\n\nCustomer: %s\nOrder: %s\nFailed to deliver to %d driver(s): %s",
		who, id, len(failed), strings.Join(parts, ", "))
}
