package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ridebot/internal/dialogue"
	"ridebot/internal/dispatch"
	"ridebot/internal/eventbus"
	kit "ridebot/internal/transport"
	"ridebot/internal/transport/telegram/router"
	logx "ridebot/pkg/logx"
)

const promptTimeout = 10 * time.Second

// onRequester is the router fallback of the requester bot: every update
// that is not an operator command drives the chat's dialogue.
func (a *App) onRequester(ctx context.Context, req *router.Request) error {
	up := req.Update
	chat := up.ChatID()
	if chat == 0 {
		return nil
	}

	var (
		ev  dialogue.Event
		out dialogue.Outcome
	)
	sess := a.sessions.Apply(chat, func(s dialogue.Session) dialogue.Session {
		var ok bool
		ev, ok = dialogue.Classify(up, s.Stage, a.catalog)
		if !ok {
			return s
		}
		next, o := dialogue.Transition(s, ev, a.now())
		out = o
		return next
	})
	if !out.Handled {
		req.Logger.Debug("update ignored", logx.String("stage", sess.Stage.String()))
		return nil
	}

	switch out.Terminal {
	case dialogue.StageCancelled:
		eventbus.Publish(a.bus, eventbus.TypeOrderCancelled, chat)
	case dialogue.StageSubmitted:
		a.submit(ctx, req, out.Submit)
		// A slow fan-out may have used up the request deadline.
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), promptTimeout)
		defer cancel()
	}

	for _, p := range out.Prompts {
		a.show(ctx, req, sess.Locale, p)
	}
	return nil
}

func (a *App) submit(ctx context.Context, req *router.Request, sub *dialogue.Submission) {
	if sub == nil {
		return
	}
	o := dispatch.Order{
		ID:    uuid.New(),
		Draft: sub.Draft,
		Requester: dispatch.Requester{
			ChatID:   sub.Endpoint,
			Username: req.FromUsername,
			Locale:   sub.Locale,
			Source:   sourceRef(req.Update),
		},
	}
	eventbus.Publish(a.bus, eventbus.TypeOrderSubmitted, o.ID)
	req.Logger.Info("order submitted", logx.String("order", o.ID.String()))
	a.dispatcher.Dispatch(ctx, o)
}

// show renders p. Edit prompts replace the message the callback came from
// and fall back to a fresh message.
func (a *App) show(ctx context.Context, req *router.Request, locale string, p dialogue.Prompt) {
	text, kb := dialogue.Render(a.catalog, locale, p)
	opt := &kit.SendOptions{Keyboard: kb}
	if p.Edit {
		if ref := sourceRef(req.Update); ref != nil {
			err := req.Adapter.EditText(ctx, *ref, text, opt)
			if err == nil {
				return
			}
			req.Logger.Debug("prompt edit failed, sending instead", logx.Err(err))
		}
	}
	_, _ = req.Reply(ctx, text, opt)
}

// sourceRef is the message a callback button was pressed on.
func sourceRef(up kit.Update) *kit.MessageRef {
	cb := up.Callback
	if cb == nil || cb.MessageID == 0 {
		return nil
	}
	return &kit.MessageRef{ChatID: cb.ChatID, ThreadID: cb.ThreadID, MessageID: cb.MessageID}
}
