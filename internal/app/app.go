package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"ridebot/internal/config"
	"ridebot/internal/dialogue"
	"ridebot/internal/dispatch"
	"ridebot/internal/eventbus"
	"ridebot/internal/i18n"
	"ridebot/internal/notifier"
	"ridebot/internal/operator"
	"ridebot/internal/registry"
	rtsup "ridebot/internal/runtime/supervisor"
	"ridebot/internal/storage"
	kit "ridebot/internal/transport"
	telegram "ridebot/internal/transport/telegram/adapter"
	"ridebot/internal/transport/telegram/router"
	logx "ridebot/pkg/logx"
)

// Adapters are the messenger connections the app runs on. A nil Fulfiller
// means orders are delivered through the requester bot.
type Adapters struct {
	Requester kit.Adapter
	Fulfiller kit.Adapter
}

type App struct {
	cfgm *config.ConfigManager
	sup  *rtsup.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	catalog    *i18n.Catalog
	sessions   *dialogue.Sessions
	registry   *registry.Registry
	dispatcher *dispatch.Dispatcher
	notif      *notifier.Service
	gate       *operator.Gate
	sweeper    *sweeper

	requester kit.Adapter
	fulfiller kit.Adapter
	reqRouter *router.Router
	fulRouter *router.Router

	mu           sync.RWMutex
	driverLocale string
	sweepSpec    string

	now func() time.Time
}

// NewApp loads cfgPath and connects to Telegram.
func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	dcfg, err := mapDispatchConfig(cfg)
	if err != nil {
		return nil, err
	}
	bootLog := logx.NewConsole(cfg.Logging.Level)

	var ads Adapters
	req, err := telegram.New(telegram.Config{Token: cfg.Telegram.Token, PollTimeout: pollTimeout, RequestTimeout: dcfg.SendTimeout},
		bootLog.With(logx.String("comp", "telegram.requester")))
	if err != nil {
		return nil, fmt.Errorf("requester bot: %w", err)
	}
	ads.Requester = req
	if tok := strings.TrimSpace(cfg.Telegram.FulfillerToken); tok != "" {
		ful, err := telegram.New(telegram.Config{Token: tok, PollTimeout: pollTimeout, RequestTimeout: dcfg.SendTimeout},
			bootLog.With(logx.String("comp", "telegram.fulfiller")))
		if err != nil {
			return nil, fmt.Errorf("fulfiller bot: %w", err)
		}
		ads.Fulfiller = ful
	}
	return New(cfgm, cfg, ads)
}

// New wires every component on top of ads. cfgm may be nil, which
// disables hot reload.
func New(cfgm *config.ConfigManager, cfg *config.Config, ads Adapters) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if ads.Requester == nil {
		return nil, fmt.Errorf("requester adapter is required")
	}

	// Telegram logging starts disabled so Apply does not warn before the
	// target chat is set.
	logCfg := mapLogConfig(cfg)
	bootCfg := logCfg
	bootCfg.Telegram.Enabled = false
	logSvc, root := logx.New(bootCfg, ads.Requester)
	logSvc.SetTelegramTarget(groupLogChat(cfg), cfg.Logging.Telegram.ThreadID)
	logSvc.Apply(logCfg)
	log := root.With(logx.String("comp", "app"))

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return nil, err
	}
	dcfg, err := mapDispatchConfig(cfg)
	if err != nil {
		return nil, err
	}
	ds, err := mapDialogueConfig(cfg)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(sc, root.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}
	log.Info("storage opened", logx.String("driver", sc.Driver), logx.String("path", sc.Path))

	bus := eventbus.New()
	catalog := i18n.New(cfg.Dialogue.DefaultLocale, cfg.Dialogue.Locales...)

	reg := registry.New(store, root.With(logx.String("comp", "registry")), bus)
	loaded := reg.Load(context.Background())
	log.Info("drivers loaded", logx.Int("count", len(loaded)))

	notif := notifier.New(ncfg, ads.Requester, root.With(logx.String("comp", "notifier")), bus)
	if cfg.Telegram.OperatorChatID != 0 {
		notif.SetOperatorChat(cfg.Telegram.OperatorChatID, 0)
	}

	fulfillerSender := dispatch.Sender(ads.Requester)
	if ads.Fulfiller != nil {
		fulfillerSender = ads.Fulfiller
	}
	disp := dispatch.New(dcfg, dispatch.Deps{
		Catalog:    catalog,
		Registry:   reg,
		Fulfillers: fulfillerSender,
		Requesters: ads.Requester,
		Operator:   notif,
		Store:      store,
		Bus:        bus,
		Log:        root.With(logx.String("comp", "dispatch")),
	})

	sessions := dialogue.NewSessions(catalog.Default(), dialogue.WithTTL(ds.ttl))
	gate := operator.NewGate(mapGateConfig(cfg))
	if gate.Size() == 0 {
		log.Warn("no operators configured; driver management commands are disabled")
	}

	a := &App{
		cfgm:         cfgm,
		log:          log,
		logs:         logSvc,
		bus:          bus,
		store:        store,
		catalog:      catalog,
		sessions:     sessions,
		registry:     reg,
		dispatcher:   disp,
		notif:        notif,
		gate:         gate,
		requester:    ads.Requester,
		fulfiller:    ads.Fulfiller,
		driverLocale: dcfg.FulfillerLocale,
		sweepSpec:    ds.sweepSpec,
		now:          time.Now,
	}
	a.sweeper = newSweeper(sessions, bus, root.With(logx.String("comp", "sweeper")))

	a.reqRouter = router.New(root.With(logx.String("comp", "router.requester")), ads.Requester, router.Options{
		Workers:         cfg.Telegram.Workers,
		DeniedText:      operator.DeniedText,
		FallbackTimeout: 30 * time.Second,
	})
	a.reqRouter.SetAuthorizer(gate)
	a.reqRouter.SetFallback(a.onRequester)

	if ads.Fulfiller != nil {
		a.fulRouter = router.New(root.With(logx.String("comp", "router.fulfiller")), ads.Fulfiller, router.Options{Workers: 2})
	}
	return a, nil
}

// Done is closed when the app supervisor context is canceled.
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.NewSupervisor(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))
	run := a.sup.Context()

	handler := operator.NewHandler(a.registry, a.notif, a.store, a.log.With(logx.String("comp", "operator")))
	a.reqRouter.SetMenuSupervisor(a.sup)
	a.reqRouter.SetCommands(handler.Commands())
	if err := a.startBot(run, "requester", a.requester, a.reqRouter); err != nil {
		return err
	}
	if a.fulRouter != nil {
		a.fulRouter.SetMenuSupervisor(a.sup)
		a.fulRouter.SetCommands(a.fulfillerCommands())
		if err := a.startBot(run, "fulfiller", a.fulfiller, a.fulRouter); err != nil {
			return err
		}
	}

	if a.notif.Enabled() {
		a.notif.Start(run)
	}

	a.mu.RLock()
	spec := a.sweepSpec
	a.mu.RUnlock()
	if err := a.sweeper.Start(spec); err != nil {
		return fmt.Errorf("dialogue.sweep_spec: %w", err)
	}

	a.startEventLog()
	if a.cfgm != nil {
		a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
		a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error { return validateRuntime(cfg) })
		a.startConfigReload(run)
		a.sup.Go("config.watch", a.cfgm.Watch)
	}

	sdReady(a.log)
	a.log.Info("app started",
		logx.Bool("fulfiller_bot", a.fulfiller != nil),
		logx.Strings("locales", a.catalog.Locales()),
		logx.Int("drivers", a.registry.Len()),
	)
	return nil
}

func (a *App) startBot(ctx context.Context, name string, ad kit.Adapter, r *router.Router) error {
	updates := make(chan kit.Update, 256)
	if err := ad.Start(ctx, updates); err != nil {
		return fmt.Errorf("%s bot: %w", name, err)
	}
	a.sup.Go("router."+name, func(c context.Context) error {
		return r.Run(c, updates)
	})
	return nil
}

// validateRuntime is the reload gate: everything New would reject.
func validateRuntime(cfg *config.Config) error {
	if err := config.Validate(cfg); err != nil {
		return err
	}
	if _, err := mapStorageConfig(cfg); err != nil {
		return err
	}
	if _, err := mapNotifierConfig(cfg); err != nil {
		return err
	}
	if _, err := mapDispatchConfig(cfg); err != nil {
		return err
	}
	_, err := mapDialogueConfig(cfg)
	return err
}

// applyDefaultLocale switches the locale of sessions created from now on.
// Only locales the catalog was built with can be chosen live.
func (a *App) applyDefaultLocale(raw string) {
	loc := i18n.Normalize(raw)
	if loc == "" {
		loc = a.catalog.Default()
	}
	if !a.catalog.Has(loc) {
		a.log.Warn("default locale not loaded; restart to enable it", logx.String("locale", raw))
		return
	}
	a.sessions.SetDefaultLocale(loc)
	a.log.Info("default locale changed", logx.String("locale", loc))
}

func (a *App) startEventLog() {
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		var reported uint64
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time), logx.Any("data", e.Data))
				if n := a.bus.Dropped(); n != reported {
					a.log.Warn("event deliveries dropped", logx.Uint64("total", n), logx.Uint64("new", n-reported))
					reported = n
				}
			}
		}
	})
}

func (a *App) startConfigReload(ctx context.Context) {
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		last := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case next, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts.
				for drained := false; !drained; {
					select {
					case newer := <-sub:
						if newer != nil {
							next = newer
						}
					default:
						drained = true
					}
				}
				a.applyConfig(c, last, next)
				last = next
			}
		}
	})
}

// applyConfig pushes a reloaded config into the running components.
func (a *App) applyConfig(ctx context.Context, prev, next *config.Config) {
	sections, attrs := config.SummarizeConfigChange(prev, next)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	if rr := config.RestartRequired(sections); len(rr) > 0 {
		a.log.Warn("config changes need a restart to take effect", logx.Strings("sections", rr))
	}

	a.logs.SetTelegramTarget(groupLogChat(next), next.Logging.Telegram.ThreadID)
	a.logs.Apply(mapLogConfig(next))

	a.gate.Apply(mapGateConfig(next))
	if next.Telegram.OperatorChatID != 0 {
		a.notif.SetOperatorChat(next.Telegram.OperatorChatID, 0)
	}

	if dcfg, err := mapDispatchConfig(next); err != nil {
		a.log.Warn("invalid dispatch config; keeping previous", logx.Err(err))
	} else {
		a.dispatcher.Apply(dcfg)
		a.mu.Lock()
		a.driverLocale = dcfg.FulfillerLocale
		a.mu.Unlock()
	}

	if ds, err := mapDialogueConfig(next); err != nil {
		a.log.Warn("invalid dialogue config; keeping previous", logx.Err(err))
	} else {
		a.sessions.SetTTL(ds.ttl)
		if err := a.sweeper.Apply(ds.sweepSpec); err != nil {
			a.log.Warn("invalid sweep spec; keeping previous", logx.Err(err))
		} else {
			a.mu.Lock()
			a.sweepSpec = ds.sweepSpec
			a.mu.Unlock()
		}
	}
	if prev != nil && strings.Join(prev.Dialogue.Locales, ",") != strings.Join(next.Dialogue.Locales, ",") {
		a.log.Warn("dialogue.locales changes need a restart to take effect")
	}
	if prev != nil && prev.Dialogue.DefaultLocale != next.Dialogue.DefaultLocale {
		a.applyDefaultLocale(next.Dialogue.DefaultLocale)
	}

	if ncfg, err := mapNotifierConfig(next); err != nil {
		a.log.Warn("invalid notifier config; keeping previous", logx.Err(err))
	} else {
		wasEnabled := a.notif.Enabled()
		a.notif.Apply(ncfg)
		switch {
		case wasEnabled && !ncfg.Enabled:
			a.log.Info("notifier disabled via config")
			stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			a.notif.Stop(stopCtx)
			cancel()
		case !wasEnabled && ncfg.Enabled:
			a.log.Info("notifier enabled via config")
			a.notif.Start(ctx)
		}
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	sdStopping(a.log, reason)

	a.sup.Cancel()

	a.step(ctx, "sweeper", time.Second, func(c context.Context) error { a.sweeper.Stop(c); return nil })
	a.step(ctx, "notifier", 2*time.Second, func(c context.Context) error { a.notif.Stop(c); return nil })
	if a.fulfiller != nil {
		a.step(ctx, "adapter.fulfiller", 2*time.Second, a.fulfiller.Stop)
	}
	a.step(ctx, "adapter.requester", 2*time.Second, a.requester.Stop)
	a.step(ctx, "supervisor", 3*time.Second, a.sup.Wait)
	a.step(ctx, "storage", time.Second, func(context.Context) error { return a.store.Close() })

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}

// step runs one shutdown step bounded by limit and the caller's deadline.
// A step that overruns is logged and left behind.
func (a *App) step(ctx context.Context, name string, limit time.Duration, fn func(context.Context) error) {
	start := time.Now()
	stepCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	case <-stepCtx.Done():
		a.log.Warn("stop step deadline reached (continuing)",
			logx.String("name", name),
			logx.Duration("elapsed", time.Since(start)),
		)
	}
}
