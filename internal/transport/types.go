package transport

import "context"

type UpdateKind string

const (
	UpdateMessage  UpdateKind = "message"
	UpdateCallback UpdateKind = "callback"
)

type Update struct {
	Kind     UpdateKind
	Message  *Message
	Callback *Callback
}

// ChatID returns the conversation endpoint the update belongs to (0 if unknown).
func (u Update) ChatID() int64 {
	switch {
	case u.Message != nil:
		return u.Message.ChatID
	case u.Callback != nil:
		return u.Callback.ChatID
	}
	return 0
}

type Message struct {
	ID           int
	ChatID       int64
	ThreadID     int // telegram forum topic thread id (0 if none)
	FromID       int64
	FromUsername string
	Text         string
	IsGroup      bool

	// Structured payloads. When present they take precedence over Text.
	Contact  *Contact
	Location *Location
}

type Contact struct {
	Phone     string
	FirstName string
	UserID    int64
}

type Location struct {
	Lat float64
	Lon float64
}

type Callback struct {
	ID           string
	FromID       int64
	FromUsername string
	ChatID       int64
	ThreadID     int
	MessageID    int
	Data         string
}

type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

// ButtonKind selects what a keyboard button does when pressed.
type ButtonKind int

const (
	// ButtonText sends its label back as a plain text message (reply keyboards).
	ButtonText ButtonKind = iota
	// ButtonContact asks the client to share the user's phone contact.
	ButtonContact
	// ButtonLocation asks the client to share the current location.
	ButtonLocation
	// ButtonCallback carries Data back as a callback (inline keyboards).
	ButtonCallback
)

type Button struct {
	Text string
	Kind ButtonKind
	Data string
}

// Keyboard is a transport-neutral keyboard description.
//
// Inline keyboards are attached to the message; reply keyboards replace the
// client's input keyboard. Remove hides a previously shown reply keyboard.
type Keyboard struct {
	Inline  bool
	Rows    [][]Button
	Remove  bool
	OneTime bool
}

// Empty reports whether the keyboard carries nothing to render.
func (k *Keyboard) Empty() bool {
	return k == nil || (!k.Remove && len(k.Rows) == 0)
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
	Keyboard       *Keyboard
}

type Notification struct {
	Channel  string // "telegram" now
	Priority int    // 0 low.. 10 high
	Target   ChatTarget
	Text     string
	Options  *SendOptions
}

// Adapter is the messenger capability consumed by the core.
type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, text string, opt *SendOptions) error
	AnswerCallback(ctx context.Context, callbackID string, text string) error
}

// BotCommand represents a single bot command menu entry.
type BotCommand struct {
	Command     string
	Description string
}

// CommandMenuUpdater is an optional interface that adapters can implement
// to update platform-specific bot command menus (e.g. Telegram /menu list).
type CommandMenuUpdater interface {
	UpdateMenuCommands(ctx context.Context, cmds []BotCommand) error
}
