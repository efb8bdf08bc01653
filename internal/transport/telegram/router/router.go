package router

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	rtsup "ridebot/internal/runtime/supervisor"
	kit "ridebot/internal/transport"
	logx "ridebot/pkg/logx"
)

type Access int

const (
	AccessEveryone Access = iota
	AccessOperator
)

type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Access      Access
	// Hidden keeps the command out of the Telegram /menu list.
	Hidden  bool
	Timeout time.Duration
	Handle  HandlerFunc
}

// Authorizer decides whether a user may run AccessOperator commands.
type Authorizer interface {
	Allowed(userID int64, username string) bool
}

type Request struct {
	Update       kit.Update
	Chat         kit.ChatTarget
	FromID       int64
	FromUsername string
	Command      string // command name, or "message" / "callback" for fallback
	Args         []string
	ReqID        string

	Adapter kit.Adapter
	Logger  logx.Logger
}

// Reply sends text to the request's chat, logging failures.
func (r *Request) Reply(ctx context.Context, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	ref, err := r.Adapter.SendText(ctx, r.Chat, text, opt)
	if err != nil && !r.Logger.IsZero() {
		r.Logger.Warn("reply failed", logx.Err(err))
	}
	return ref, err
}

type Options struct {
	Workers    int
	QueueSize  int
	DeniedText string
	BusyText   string
	// FallbackTimeout bounds non-command handlers. 0 means none.
	FallbackTimeout time.Duration
}

// Router routes updates to command handlers or a fallback handler.
//
// Updates are sharded by chat id onto ordered worker queues: updates from
// one chat are handled one at a time, in arrival order.
type Router struct {
	mu       sync.RWMutex
	cmds     map[string]Command
	list     []Command
	fallback HandlerFunc
	auth     Authorizer

	opts    Options
	log     logx.Logger
	adapter kit.Adapter
	// menuSup runs the async /menu update when set.
	menuSup *rtsup.Supervisor
}

func New(log logx.Logger, adapter kit.Adapter, opts Options) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.DeniedText == "" {
		opts.DeniedText = "unauthorized"
	}
	if opts.BusyText == "" {
		opts.BusyText = "busy, try again"
	}
	return &Router{cmds: map[string]Command{}, opts: opts, log: log, adapter: adapter}
}

func (r *Router) SetAuthorizer(a Authorizer) {
	r.mu.Lock()
	r.auth = a
	r.mu.Unlock()
}

// SetFallback handles every update that is not a registered command,
// including unknown commands and callbacks.
func (r *Router) SetFallback(h HandlerFunc) {
	r.mu.Lock()
	r.fallback = h
	r.mu.Unlock()
}

// SetMenuSupervisor makes /menu updates run under sup.
func (r *Router) SetMenuSupervisor(sup *rtsup.Supervisor) {
	r.mu.Lock()
	r.menuSup = sup
	r.mu.Unlock()
}

func (r *Router) SetCommands(cmds []Command) {
	table := map[string]Command{}
	list := make([]Command, 0, len(cmds))
	for _, c := range cmds {
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if name == "" || c.Handle == nil {
			continue
		}
		c.Name = name
		table[name] = c
		list = append(list, c)
		for _, a := range c.Aliases {
			if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
				if _, taken := table[a]; !taken {
					table[a] = c
				}
			}
		}
	}

	r.mu.Lock()
	r.cmds = table
	r.list = list
	sup := r.menuSup
	r.mu.Unlock()

	up, ok := r.adapter.(kit.CommandMenuUpdater)
	if !ok {
		return
	}
	menu := buildMenu(list)
	run := func(parent context.Context) {
		ctx, cancel := context.WithTimeout(parent, 5*time.Second)
		defer cancel()
		if err := up.UpdateMenuCommands(ctx, menu); err != nil {
			r.log.Warn("menu update failed", logx.Err(err))
		}
	}
	if sup != nil {
		sup.Go0("telegram.menu.update", run)
	} else {
		go run(context.Background())
	}
}

// Commands returns the registered commands in registration order.
func (r *Router) Commands() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Command(nil), r.list...)
}

// Run consumes updates until ctx is done or the channel closes.
func (r *Router) Run(ctx context.Context, updates <-chan kit.Update) error {
	workers := r.opts.Workers
	sup := rtsup.NewSupervisor(ctx,
		rtsup.WithLogger(r.log.With(logx.String("comp", "telegram.router"))),
		rtsup.WithCancelOnError(false),
	)

	queues := make([]chan func(), workers)
	for i := range queues {
		q := make(chan func(), r.opts.QueueSize)
		queues[i] = q
		idx := i
		sup.GoRestart("router.worker."+strconv.Itoa(idx), func(c context.Context) error {
			for {
				select {
				case <-c.Done():
					return nil
				case job, ok := <-q:
					if !ok {
						return nil
					}
					func() {
						defer func() {
							if rec := recover(); rec != nil {
								r.log.Error("panic in router job", logx.Int("worker", idx), logx.Any("panic", rec), logx.String("stack", string(debug.Stack())))
							}
						}()
						job()
					}()
				}
			}
		},
			rtsup.WithRestartBackoff(200*time.Millisecond, 5*time.Second),
			rtsup.WithPublishFirstError(true),
		)
	}
	r.log.Info("router started", logx.Int("workers", workers), logx.Int("queue_cap", r.opts.QueueSize))

	defer func() {
		for _, q := range queues {
			close(q)
		}
		wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = sup.Wait(wctx)
		cancel()
		r.log.Info("router stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			q := queues[shard(up.ChatID(), workers)]
			job := func() { r.Handle(ctx, up) }
			select {
			case q <- job:
			default:
				r.log.Warn("router queue full; dropping update", logx.Int64("chat_id", up.ChatID()))
				r.busy(ctx, up)
			}
		}
	}
}

func shard(chatID int64, n int) int {
	if chatID < 0 {
		chatID = -chatID
	}
	return int(chatID % int64(n))
}

// Handle routes one update synchronously.
func (r *Router) Handle(ctx context.Context, up kit.Update) {
	switch {
	case up.Message != nil:
		r.handleMessage(ctx, up)
	case up.Callback != nil:
		r.handleCallback(ctx, up)
	}
}

func (r *Router) handleMessage(ctx context.Context, up kit.Update) {
	msg := up.Message
	req := r.newRequest(up, kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}, msg.FromID, msg.FromUsername)

	name, args, isCmd := parseCommand(msg.Text)
	r.mu.RLock()
	cmd, found := r.cmds[name]
	auth := r.auth
	fallback := r.fallback
	r.mu.RUnlock()

	if isCmd && found {
		req.Command = cmd.Name
		req.Args = args
		req.Logger = req.Logger.With(logx.String("cmd", cmd.Name))
		if cmd.Access == AccessOperator && (auth == nil || !auth.Allowed(msg.FromID, msg.FromUsername)) {
			req.Logger.Info("operator command denied")
			_, _ = req.Reply(ctx, r.opts.DeniedText, nil)
			return
		}
		r.run(ctx, req, cmd.Handle, cmd.Timeout)
		return
	}

	if fallback == nil {
		return
	}
	req.Command = "message"
	if isCmd {
		req.Command = "/" + name
		req.Args = args
	}
	r.run(ctx, req, fallback, r.opts.FallbackTimeout)
}

func (r *Router) handleCallback(ctx context.Context, up kit.Update) {
	cb := up.Callback
	req := r.newRequest(up, kit.ChatTarget{ChatID: cb.ChatID, ThreadID: cb.ThreadID}, cb.FromID, cb.FromUsername)
	req.Command = "callback"

	r.mu.RLock()
	fallback := r.fallback
	r.mu.RUnlock()
	if fallback != nil {
		r.run(ctx, req, fallback, r.opts.FallbackTimeout)
	}
	// Stop the client's loading spinner.
	_ = r.adapter.AnswerCallback(ctx, cb.ID, "")
}

func (r *Router) newRequest(up kit.Update, chat kit.ChatTarget, fromID int64, username string) *Request {
	rid := newReqID()
	return &Request{
		Update:       up,
		Chat:         chat,
		FromID:       fromID,
		FromUsername: username,
		ReqID:        rid,
		Adapter:      r.adapter,
		Logger: r.log.With(
			logx.String("rid", rid),
			logx.Int64("chat_id", chat.ChatID),
			logx.Int64("from_id", fromID),
		),
	}
}

func (r *Router) run(ctx context.Context, req *Request, h HandlerFunc, timeout time.Duration) {
	final := Chain(h,
		MWPanicRecover(r.log),
		MWRequestLog(r.log),
		MWTimeout(timeout),
	)
	_ = final(ctx, req)
}

func (r *Router) busy(ctx context.Context, up kit.Update) {
	switch {
	case up.Callback != nil:
		_ = r.adapter.AnswerCallback(ctx, up.Callback.ID, r.opts.BusyText)
	case up.Message != nil:
		_, _ = r.adapter.SendText(ctx, kit.ChatTarget{ChatID: up.Message.ChatID, ThreadID: up.Message.ThreadID}, r.opts.BusyText, nil)
	}
}

// parseCommand splits "/name@bot a b" into ("name", ["a","b"], true).
func parseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}
	parts := strings.Fields(text)
	word := strings.TrimPrefix(parts[0], "/")
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word = word[:i]
	}
	if word == "" {
		return "", nil, false
	}
	return strings.ToLower(word), parts[1:], true
}

func newReqID() string {
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(b[:])
}
