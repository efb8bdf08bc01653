package operator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ridebot/internal/registry"
	"ridebot/internal/storage"
	"ridebot/internal/transport/telegram/router"
	logx "ridebot/pkg/logx"
)

// DeniedText is the reply to an operator command from anyone outside the
// allow-list.
const DeniedText = "⛔ You are not authorized to use this command."

const (
	textInvalidID = "❌ Invalid chat ID. Please provide a numeric chat ID."
	textAdded     = "✅ Driver %d added successfully!\nTotal drivers: %d"
	textExists    = "⚠️ Driver %d already exists!"
	textRemoved   = "✅ Driver %d removed successfully!\nTotal drivers: %d"
	textNotFound  = "⚠️ Driver %d not found!"
	textEmpty     = "📋 No drivers registered yet."
	textListHead  = "📋 Registered Drivers (%d):\n\n"
)

// Fleet is the registry surface the commands need.
type Fleet interface {
	Add(ctx context.Context, id int64) registry.AddResult
	Remove(ctx context.Context, id int64) registry.RemoveResult
	List() []int64
	Len() int
}

// ChatLearner records the first operator chat as the notification target.
type ChatLearner interface {
	SetOperatorChatIfUnset(chatID int64) bool
}

type Handler struct {
	fleet   Fleet
	learner ChatLearner
	audit   storage.Store
	log     logx.Logger
}

// NewHandler wires the commands. learner and audit may be nil.
func NewHandler(fleet Fleet, learner ChatLearner, audit storage.Store, log logx.Logger) *Handler {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Handler{fleet: fleet, learner: learner, audit: audit, log: log}
}

func (h *Handler) Commands() []router.Command {
	return []router.Command{
		{
			Name:        "add_driver",
			Description: "register a driver chat",
			Usage:       "/add_driver CHAT_ID",
			Access:      router.AccessOperator,
			Hidden:      true,
			Timeout:     10 * time.Second,
			Handle:      h.cmdAdd,
		},
		{
			Name:        "remove_driver",
			Description: "unregister a driver chat",
			Usage:       "/remove_driver CHAT_ID",
			Access:      router.AccessOperator,
			Hidden:      true,
			Timeout:     10 * time.Second,
			Handle:      h.cmdRemove,
		},
		{
			Name:        "list_drivers",
			Description: "list registered drivers",
			Usage:       "/list_drivers",
			Access:      router.AccessOperator,
			Hidden:      true,
			Handle:      h.cmdList,
		},
	}
}

func (h *Handler) cmdAdd(ctx context.Context, req *router.Request) error {
	h.learn(req)
	id, ok := h.parseID(ctx, req, "/add_driver CHAT_ID")
	if !ok {
		return nil
	}
	start := time.Now()
	var text string
	switch h.fleet.Add(ctx, id) {
	case registry.Added:
		text = fmt.Sprintf(textAdded, id, h.fleet.Len())
		h.record(ctx, req, "fulfiller.add", id, true, start)
	default:
		text = fmt.Sprintf(textExists, id)
		h.record(ctx, req, "fulfiller.add", id, false, start)
	}
	_, err := req.Reply(ctx, text, nil)
	return err
}

func (h *Handler) cmdRemove(ctx context.Context, req *router.Request) error {
	h.learn(req)
	id, ok := h.parseID(ctx, req, "/remove_driver CHAT_ID")
	if !ok {
		return nil
	}
	start := time.Now()
	var text string
	switch h.fleet.Remove(ctx, id) {
	case registry.Removed:
		text = fmt.Sprintf(textRemoved, id, h.fleet.Len())
		h.record(ctx, req, "fulfiller.remove", id, true, start)
	default:
		text = fmt.Sprintf(textNotFound, id)
		h.record(ctx, req, "fulfiller.remove", id, false, start)
	}
	_, err := req.Reply(ctx, text, nil)
	return err
}

func (h *Handler) cmdList(ctx context.Context, req *router.Request) error {
	h.learn(req)
	_, err := req.Reply(ctx, FormatList(h.fleet.List()), nil)
	return err
}

// FormatList renders the registry listing reply.
func FormatList(ids []int64) string {
	if len(ids) == 0 {
		return textEmpty
	}
	var b strings.Builder
	fmt.Fprintf(&b, textListHead, len(ids))
	for i, id := range ids {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("• ")
		b.WriteString(strconv.FormatInt(id, 10))
	}
	return b.String()
}

// parseID expects exactly one integer argument and replies with usage or
// the invalid-id text otherwise.
func (h *Handler) parseID(ctx context.Context, req *router.Request, usage string) (int64, bool) {
	if len(req.Args) != 1 {
		_, _ = req.Reply(ctx, "Usage: "+usage, nil)
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(req.Args[0]), 10, 64)
	if err != nil {
		_, _ = req.Reply(ctx, textInvalidID, nil)
		return 0, false
	}
	return id, true
}

func (h *Handler) learn(req *router.Request) {
	if h.learner == nil || req.Chat.ChatID == 0 {
		return
	}
	if h.learner.SetOperatorChatIfUnset(req.Chat.ChatID) {
		h.log.Info("operator chat learned", logx.Int64("chat_id", req.Chat.ChatID))
	}
}

func (h *Handler) record(ctx context.Context, req *router.Request, action string, id int64, changed bool, start time.Time) {
	if h.audit == nil {
		return
	}
	e := storage.AuditEntry{
		At:            time.Now(),
		ActorID:       req.FromID,
		ActorUsername: req.FromUsername,
		ChatID:        req.Chat.ChatID,
		Action:        action,
		Target:        strconv.FormatInt(id, 10),
		TookMS:        time.Since(start).Milliseconds(),
	}
	if changed {
		e.OK = 1
	} else {
		e.Fail = 1
	}
	if err := h.audit.AppendAudit(ctx, e); err != nil {
		h.log.Warn("audit append failed", logx.String("action", action), logx.Err(err))
	}
}
