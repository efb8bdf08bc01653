package dialogue

import (
	"strconv"
	"strings"
	"time"
)

type Stage int

const (
	StageNone Stage = iota
	StageLangSelect
	StageName
	StagePhone
	StagePickup
	StageDropoff
	StageConfirm
	// Terminal outcomes. A session never rests in these; it is reset to
	// StageLangSelect and the outcome reports which terminal was reached.
	StageSubmitted
	StageCancelled
)

func (s Stage) String() string {
	switch s {
	case StageLangSelect:
		return "LANG_SELECT"
	case StageName:
		return "NAME"
	case StagePhone:
		return "PHONE"
	case StagePickup:
		return "PICKUP"
	case StageDropoff:
		return "DROPOFF"
	case StageConfirm:
		return "CONFIRM"
	case StageSubmitted:
		return "SUBMITTED"
	case StageCancelled:
		return "CANCELLED"
	default:
		return "NONE"
	}
}

type EventKind int

const (
	EventLocaleSelected EventKind = iota + 1
	EventBeginOrder
	EventText
	EventContact
	EventLocation
	EventButton
	EventCommand
)

func (k EventKind) String() string {
	switch k {
	case EventLocaleSelected:
		return "locale"
	case EventBeginOrder:
		return "begin"
	case EventText:
		return "text"
	case EventContact:
		return "contact"
	case EventLocation:
		return "location"
	case EventButton:
		return "button"
	case EventCommand:
		return "command"
	default:
		return "unknown"
	}
}

type ButtonTag string

const (
	ButtonConfirm ButtonTag = "confirm"
	ButtonComment ButtonTag = "comment"
)

// Commands understood by the engine.
const (
	CmdStart  = "start"
	CmdOrder  = "order"
	CmdCancel = "cancel"
)

// Event is one inbound user action. Only the fields relevant to Kind are set.
type Event struct {
	Kind EventKind

	Text    string    // EventText
	Locale  string    // EventLocaleSelected
	Phone   string    // EventContact
	Lat     float64   // EventLocation
	Lon     float64   // EventLocation
	Tag     ButtonTag // EventButton
	Command string    // EventCommand, lower-case without slash
}

// Pickup is either a free-text address or a coordinate pair.
type Pickup struct {
	Address   string
	Lat       float64
	Lon       float64
	HasCoords bool
}

func (p Pickup) Empty() bool { return !p.HasCoords && strings.TrimSpace(p.Address) == "" }

const wazeBase = "https://waze.com/ul"

// NavLink returns the Waze navigation link for the pickup. Addresses only
// have their spaces escaped; coordinates are used as is.
func (p Pickup) NavLink() string {
	if p.HasCoords {
		return wazeBase + "?ll=" + FormatCoord(p.Lat) + "," + FormatCoord(p.Lon) + "&navigate=yes"
	}
	return wazeBase + "?q=" + strings.ReplaceAll(p.Address, " ", "%20") + "&navigate=yes"
}

// FormatCoord renders a coordinate with the shortest exact decimal form.
func FormatCoord(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// Draft is the request being assembled.
type Draft struct {
	Name    string
	Contact string
	Pickup  Pickup
	Dropoff string
	Comment string
}

// Submittable reports whether every required field is filled.
func (d Draft) Submittable() bool {
	return strings.TrimSpace(d.Name) != "" &&
		strings.TrimSpace(d.Contact) != "" &&
		!d.Pickup.Empty() &&
		strings.TrimSpace(d.Dropoff) != ""
}

type Session struct {
	Endpoint        int64
	Locale          string
	Stage           Stage
	Draft           Draft
	AwaitingComment bool
	UpdatedAt       time.Time
}

func NewSession(endpoint int64, locale string, now time.Time) Session {
	return Session{Endpoint: endpoint, Locale: locale, Stage: StageLangSelect, UpdatedAt: now}
}

// reset clears the draft and returns to the initial stage. Locale survives.
func (s Session) reset() Session {
	return Session{Endpoint: s.Endpoint, Locale: s.Locale, Stage: StageLangSelect, UpdatedAt: s.UpdatedAt}
}

type KeyboardKind int

const (
	KeyboardNone KeyboardKind = iota
	// KeyboardEntry is the order button plus one button per locale.
	KeyboardEntry
	// KeyboardOrder is the order button alone.
	KeyboardOrder
	KeyboardContact
	KeyboardLocation
	KeyboardRemove
	// KeyboardConfirmComment is the inline {Confirm, Add comment} pair.
	KeyboardConfirmComment
	KeyboardConfirm
)

// Prompt is a message the engine wants shown. Key names a catalog entry;
// summary prompts carry a snapshot of the draft. Edit asks for the message
// that triggered the event to be edited instead of sending a new one.
type Prompt struct {
	Key      string
	Draft    *Draft
	Keyboard KeyboardKind
	Edit     bool
}

// Submission is a confirmed request.
type Submission struct {
	Endpoint int64
	Locale   string
	Draft    Draft
}

type Outcome struct {
	Handled  bool
	Prompts  []Prompt
	Submit   *Submission
	Terminal Stage // StageSubmitted, StageCancelled or StageNone
}
