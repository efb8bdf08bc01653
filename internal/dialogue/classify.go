package dialogue

import (
	"strings"

	"ridebot/internal/i18n"
	kit "ridebot/internal/transport"
)

// Callback data carried by the summary buttons.
const (
	CallbackConfirm = "order:confirm"
	CallbackComment = "order:comment"
)

// Classify maps an inbound update to an Event. Structured contact and
// location payloads win over text. Reply-keyboard labels are only
// recognised in LANG_SELECT, elsewhere they are plain text.
func Classify(up kit.Update, stage Stage, cat *i18n.Catalog) (Event, bool) {
	switch {
	case up.Callback != nil:
		switch strings.TrimSpace(up.Callback.Data) {
		case CallbackConfirm:
			return Event{Kind: EventButton, Tag: ButtonConfirm}, true
		case CallbackComment:
			return Event{Kind: EventButton, Tag: ButtonComment}, true
		}
		return Event{}, false

	case up.Message != nil:
		m := up.Message
		if m.Contact != nil {
			return Event{Kind: EventContact, Phone: m.Contact.Phone}, true
		}
		if m.Location != nil {
			return Event{Kind: EventLocation, Lat: m.Location.Lat, Lon: m.Location.Lon}, true
		}
		text := strings.TrimSpace(m.Text)
		if text == "" {
			return Event{}, false
		}
		if name, ok := CommandName(text); ok {
			return Event{Kind: EventCommand, Command: name}, true
		}
		if (stage == StageLangSelect || stage == StageNone) && cat != nil {
			if _, ok := cat.Match(i18n.KeyBtnOrder, text); ok {
				return Event{Kind: EventBeginOrder}, true
			}
			if l, ok := cat.Match(i18n.KeyLangLabel, text); ok {
				return Event{Kind: EventLocaleSelected, Locale: l}, true
			}
		}
		return Event{Kind: EventText, Text: text}, true
	}
	return Event{}, false
}

// CommandName extracts "name" from "/name@bot args". ok is false when text
// is not a command.
func CommandName(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	word := strings.TrimPrefix(strings.Fields(text)[0], "/")
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word = word[:i]
	}
	if word == "" {
		return "", false
	}
	return strings.ToLower(word), true
}
