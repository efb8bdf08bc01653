package dialogue

import (
	"strings"
	"time"

	"ridebot/internal/i18n"
)

// Transition applies ev to s. It never mutates its input; an event the
// current stage does not accept yields Handled=false and s unchanged.
func Transition(s Session, ev Event, now time.Time) (Session, Outcome) {
	orig := s
	if s.Stage == StageNone {
		s.Stage = StageLangSelect
	}

	if ev.Kind == EventCommand && ev.Command == CmdCancel {
		next := s.reset()
		next.UpdatedAt = now
		return next, Outcome{
			Handled:  true,
			Terminal: StageCancelled,
			Prompts:  []Prompt{{Key: i18n.KeyCancelled, Keyboard: KeyboardOrder}},
		}
	}

	next, out := step(s, ev)
	if !out.Handled {
		return orig, Outcome{}
	}
	next.UpdatedAt = now
	return next, out
}

func step(s Session, ev Event) (Session, Outcome) {
	text := strings.TrimSpace(ev.Text)

	switch s.Stage {
	case StageLangSelect:
		switch {
		case ev.Kind == EventLocaleSelected && ev.Locale != "":
			s.Locale = ev.Locale
			return s, handled(entryPrompt())
		case ev.Kind == EventCommand && ev.Command == CmdStart:
			return s, handled(entryPrompt())
		case ev.Kind == EventBeginOrder, ev.Kind == EventCommand && ev.Command == CmdOrder:
			s.Draft = Draft{}
			s.AwaitingComment = false
			s.Stage = StageName
			return s, handled(Prompt{Key: i18n.KeyAskName, Keyboard: KeyboardRemove})
		}

	case StageName:
		if ev.Kind == EventText && text != "" {
			s.Draft.Name = text
			s.Stage = StagePhone
			return s, handled(Prompt{Key: i18n.KeyAskPhone, Keyboard: KeyboardContact})
		}

	case StagePhone:
		phone := ""
		switch ev.Kind {
		case EventContact:
			phone = strings.TrimSpace(ev.Phone)
		case EventText:
			phone = text
		}
		if phone != "" {
			s.Draft.Contact = phone
			s.Stage = StagePickup
			return s, handled(Prompt{Key: i18n.KeyAskPickup, Keyboard: KeyboardLocation})
		}

	case StagePickup:
		switch {
		case ev.Kind == EventLocation:
			s.Draft.Pickup = Pickup{Lat: ev.Lat, Lon: ev.Lon, HasCoords: true}
		case ev.Kind == EventText && text != "":
			s.Draft.Pickup = Pickup{Address: text}
		default:
			return s, Outcome{}
		}
		s.Stage = StageDropoff
		return s, handled(Prompt{Key: i18n.KeyAskDropoff, Keyboard: KeyboardRemove})

	case StageDropoff:
		if ev.Kind == EventText && text != "" {
			s.Draft.Dropoff = text
			s.Draft.Comment = ""
			s.AwaitingComment = false
			s.Stage = StageConfirm
			return s, handled(summaryPrompt(s.Draft, KeyboardConfirmComment))
		}

	case StageConfirm:
		switch {
		case ev.Kind == EventButton && ev.Tag == ButtonComment:
			s.AwaitingComment = true
			return s, handled(Prompt{Key: i18n.KeyAskComment, Edit: true})
		case ev.Kind == EventText && s.AwaitingComment && text != "":
			s.Draft.Comment = text
			s.AwaitingComment = false
			return s, handled(summaryPrompt(s.Draft, KeyboardConfirm))
		case ev.Kind == EventButton && ev.Tag == ButtonConfirm && s.Draft.Submittable():
			sub := &Submission{Endpoint: s.Endpoint, Locale: s.Locale, Draft: s.Draft}
			return s.reset(), Outcome{
				Handled:  true,
				Submit:   sub,
				Terminal: StageSubmitted,
				Prompts:  []Prompt{{Key: i18n.KeyThanks, Keyboard: KeyboardOrder}},
			}
		}
	}
	return s, Outcome{}
}

func handled(p Prompt) Outcome { return Outcome{Handled: true, Prompts: []Prompt{p}} }

func entryPrompt() Prompt { return Prompt{Key: i18n.KeyWelcome, Keyboard: KeyboardEntry} }

func summaryPrompt(d Draft, kb KeyboardKind) Prompt {
	snap := d
	return Prompt{Key: i18n.KeySummaryTitle, Draft: &snap, Keyboard: kb}
}
