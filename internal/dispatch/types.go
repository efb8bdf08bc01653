package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ridebot/internal/dialogue"
	kit "ridebot/internal/transport"
)

type Config struct {
	SendTimeout     time.Duration
	Concurrency     int
	RatePerSec      int
	FulfillerLocale string
}

const (
	defaultSendTimeout = 5 * time.Second
	defaultConcurrency = 8
	defaultRatePerSec  = 25
)

// Requester identifies who placed the order. Source is the summary message
// the confirm button was pressed on; when set the acknowledgment edits it.
type Requester struct {
	ChatID   int64
	Username string
	Locale   string
	Source   *kit.MessageRef
}

type Order struct {
	ID        uuid.UUID
	Draft     dialogue.Draft
	Requester Requester
}

// Report is the outcome of one dispatch. Failed keeps snapshot order.
type Report struct {
	OrderID    uuid.UUID     `json:"order_id"`
	Recipients int           `json:"recipients"`
	Failed     []int64       `json:"failed,omitempty"`
	Body       string        `json:"-"`
	Duration   time.Duration `json:"duration"`
}

func (r Report) Delivered() int { return r.Recipients - len(r.Failed) }

// Sender is the outbound half of a messenger.
type Sender interface {
	SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error)
}

// Messenger can also edit a message it sent earlier.
type Messenger interface {
	Sender
	EditText(ctx context.Context, ref kit.MessageRef, text string, opt *kit.SendOptions) error
}

// Snapshotter yields the fulfiller endpoints to deliver to.
type Snapshotter interface {
	List() []int64
}

// OperatorNotifier routes advisory messages to the operator.
type OperatorNotifier interface {
	NotifyOperator(ctx context.Context, text string, priority int) error
}
