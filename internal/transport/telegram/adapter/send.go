package adapter

import (
	"context"
	"hash/fnv"
	"strings"

	tele "gopkg.in/telebot.v4"

	kit "ridebot/internal/transport"
	logx "ridebot/pkg/logx"
)

// telegramTextLimit stays under the 4096 rune Bot API limit.
const telegramTextLimit = 4000

// SendText sends text, split into several messages when it is too long.
// The keyboard goes on the last part. ctx is checked before each Bot API
// call; a call already in flight runs until the HTTP client timeout.
func (a *Adapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if opt == nil {
		opt = &kit.SendOptions{}
	}
	chat := &tele.Chat{ID: to.ChatID}
	parts := splitText(text, telegramTextLimit)

	var first kit.MessageRef
	for i, part := range parts {
		if err := ctx.Err(); err != nil {
			return first, err
		}
		so := sendOptions(opt, to.ThreadID)
		if i == len(parts)-1 {
			so.ReplyMarkup = replyMarkup(opt.Keyboard)
		}
		msg, err := a.bot.Send(chat, part, so)
		if err != nil {
			return first, err
		}
		if i == 0 {
			first = kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: msg.ID}
		}
	}
	return first, nil
}

// EditText replaces the text of ref. Only inline keyboards survive an edit;
// overflow beyond one message is sent as follow-up messages.
func (a *Adapter) EditText(ctx context.Context, ref kit.MessageRef, text string, opt *kit.SendOptions) error {
	if opt == nil {
		opt = &kit.SendOptions{}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	parts := splitText(text, telegramTextLimit)

	so := sendOptions(opt, 0)
	if opt.Keyboard != nil && opt.Keyboard.Inline {
		so.ReplyMarkup = replyMarkup(opt.Keyboard)
	}
	msg := &tele.Message{ID: ref.MessageID, Chat: &tele.Chat{ID: ref.ChatID}}
	if _, err := a.bot.Edit(msg, parts[0], so); err != nil {
		return err
	}
	if len(parts) == 1 {
		return nil
	}
	rest := strings.Join(parts[1:], "\n")
	plain := &kit.SendOptions{ParseMode: opt.ParseMode, DisablePreview: opt.DisablePreview}
	_, err := a.SendText(ctx, kit.ChatTarget{ChatID: ref.ChatID, ThreadID: ref.ThreadID}, rest, plain)
	return err
}

// AnswerCallback stops the client's spinner, optionally with a toast.
func (a *Adapter) AnswerCallback(ctx context.Context, callbackID string, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.bot.Respond(&tele.Callback{ID: callbackID}, &tele.CallbackResponse{Text: text})
}

// UpdateMenuCommands publishes the /menu list. Unchanged lists are not
// re-sent.
func (a *Adapter) UpdateMenuCommands(ctx context.Context, cmds []kit.BotCommand) error {
	a.menuMu.Lock()
	defer a.menuMu.Unlock()

	sum := menuHash(cmds)
	if sum == a.menuHash {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	list := make([]tele.Command, 0, len(cmds))
	for _, c := range cmds {
		list = append(list, tele.Command{Text: c.Command, Description: c.Description})
	}
	if err := a.bot.SetCommands(list); err != nil {
		return err
	}
	a.menuHash = sum
	a.log.Debug("menu commands updated", logx.Int("count", len(list)))
	return nil
}

func menuHash(cmds []kit.BotCommand) uint64 {
	h := fnv.New64a()
	for _, c := range cmds {
		h.Write([]byte(c.Command))
		h.Write([]byte{0})
		h.Write([]byte(c.Description))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

func sendOptions(opt *kit.SendOptions, threadID int) *tele.SendOptions {
	return &tele.SendOptions{
		ParseMode:             opt.ParseMode,
		DisableWebPagePreview: opt.DisablePreview,
		ThreadID:              threadID,
	}
}

// splitText cuts s into parts of at most limit runes, preferring a newline
// in the last two thirds of each window. It always returns at least one part.
func splitText(s string, limit int) []string {
	if limit <= 0 {
		limit = telegramTextLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}

	var out []string
	for start := 0; start < len(rs); {
		end := min(start+limit, len(rs))
		if end < len(rs) {
			for i := end - 1; i-start >= limit/3; i-- {
				if rs[i] == '\n' {
					end = i + 1
					break
				}
			}
		}
		out = append(out, strings.TrimRight(string(rs[start:end]), "\n"))
		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}
