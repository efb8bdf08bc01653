package adapter

import (
	"strings"

	tele "gopkg.in/telebot.v4"

	kit "ridebot/internal/transport"
)

// messageUpdate converts a text, contact or location message.
func messageUpdate(m *tele.Message) (kit.Update, bool) {
	if m == nil || m.Chat == nil {
		return kit.Update{}, false
	}
	msg := &kit.Message{
		ID:       m.ID,
		ChatID:   m.Chat.ID,
		ThreadID: m.ThreadID,
		Text:     m.Text,
		IsGroup:  m.Chat.Type == tele.ChatGroup || m.Chat.Type == tele.ChatSuperGroup,
	}
	if m.Sender != nil {
		msg.FromID = m.Sender.ID
		msg.FromUsername = m.Sender.Username
	}
	if c := m.Contact; c != nil {
		msg.Contact = &kit.Contact{Phone: c.PhoneNumber, FirstName: c.FirstName, UserID: c.UserID}
	}
	if l := m.Location; l != nil {
		msg.Location = &kit.Location{Lat: float64(l.Lat), Lon: float64(l.Lng)}
	}
	return kit.Update{Kind: kit.UpdateMessage, Message: msg}, true
}

// callbackUpdate converts an inline button press. Presses on messages the
// bot can no longer see are dropped.
func callbackUpdate(cb *tele.Callback) (kit.Update, bool) {
	if cb == nil || cb.Message == nil || cb.Message.Chat == nil {
		return kit.Update{}, false
	}
	out := &kit.Callback{
		ID:        cb.ID,
		ChatID:    cb.Message.Chat.ID,
		ThreadID:  cb.Message.ThreadID,
		MessageID: cb.Message.ID,
		Data:      strings.TrimSpace(cb.Data),
	}
	if cb.Sender != nil {
		out.FromID = cb.Sender.ID
		out.FromUsername = cb.Sender.Username
	}
	return kit.Update{Kind: kit.UpdateCallback, Callback: out}, true
}

// replyMarkup translates a transport keyboard into telebot markup.
func replyMarkup(k *kit.Keyboard) *tele.ReplyMarkup {
	switch {
	case k.Empty():
		return nil
	case k.Remove:
		return &tele.ReplyMarkup{RemoveKeyboard: true}
	case k.Inline:
		rows := make([][]tele.InlineButton, len(k.Rows))
		for i, r := range k.Rows {
			rows[i] = make([]tele.InlineButton, len(r))
			for j, b := range r {
				rows[i][j] = tele.InlineButton{Text: b.Text, Data: b.Data}
			}
		}
		return &tele.ReplyMarkup{InlineKeyboard: rows}
	}

	rows := make([][]tele.ReplyButton, len(k.Rows))
	for i, r := range k.Rows {
		rows[i] = make([]tele.ReplyButton, len(r))
		for j, b := range r {
			rows[i][j] = tele.ReplyButton{
				Text:     b.Text,
				Contact:  b.Kind == kit.ButtonContact,
				Location: b.Kind == kit.ButtonLocation,
			}
		}
	}
	return &tele.ReplyMarkup{
		ReplyKeyboard:   rows,
		ResizeKeyboard:  true,
		OneTimeKeyboard: k.OneTime,
	}
}
