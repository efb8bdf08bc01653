// Package fake provides an in-memory transport.Adapter for tests.
package fake

import (
	"context"
	"errors"
	"sync"
	"time"

	kit "ridebot/internal/transport"
)

var ErrUnreachable = errors.New("fake: chat unreachable")

type Sent struct {
	To   kit.ChatTarget
	Text string
	Opt  *kit.SendOptions
}

type Edit struct {
	Ref  kit.MessageRef
	Text string
	Opt  *kit.SendOptions
}

// Adapter records every outbound call. Sends to chats listed in Fail return
// ErrUnreachable; sends to chats in Hang block until ctx is done. Sends to
// chats in Stall block for the given duration without watching ctx, like a
// Bot API call in flight. Calls on an already-done ctx fail.
type Adapter struct {
	mu      sync.Mutex
	sent    []Sent
	edits   []Edit
	answers []string
	nextID  int

	Fail     map[int64]bool
	Hang     map[int64]bool
	Stall    map[int64]time.Duration
	EditFail bool
	Delay    time.Duration

	out chan<- kit.Update
}

func New() *Adapter {
	return &Adapter{Fail: map[int64]bool{}, Hang: map[int64]bool{}, Stall: map[int64]time.Duration{}}
}

func (a *Adapter) Start(_ context.Context, out chan<- kit.Update) error {
	a.mu.Lock()
	a.out = out
	a.mu.Unlock()
	return nil
}

func (a *Adapter) Stop(context.Context) error { return nil }

// Push delivers an inbound update as if it came from the network.
func (a *Adapter) Push(up kit.Update) {
	a.mu.Lock()
	out := a.out
	a.mu.Unlock()
	if out != nil {
		out <- up
	}
}

func (a *Adapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return kit.MessageRef{}, err
	}
	a.mu.Lock()
	fail, hang, delay, stall := a.Fail[to.ChatID], a.Hang[to.ChatID], a.Delay, a.Stall[to.ChatID]
	a.mu.Unlock()

	if stall > 0 {
		time.Sleep(stall)
	}
	if hang {
		<-ctx.Done()
		return kit.MessageRef{}, ctx.Err()
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return kit.MessageRef{}, ctx.Err()
		}
	}
	if fail {
		return kit.MessageRef{}, ErrUnreachable
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	a.sent = append(a.sent, Sent{To: to, Text: text, Opt: opt})
	return kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: a.nextID}, nil
}

func (a *Adapter) EditText(ctx context.Context, ref kit.MessageRef, text string, opt *kit.SendOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.EditFail {
		return ErrUnreachable
	}
	a.edits = append(a.edits, Edit{Ref: ref, Text: text, Opt: opt})
	return nil
}

func (a *Adapter) AnswerCallback(_ context.Context, id, _ string) error {
	a.mu.Lock()
	a.answers = append(a.answers, id)
	a.mu.Unlock()
	return nil
}

func (a *Adapter) Sent() []Sent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Sent(nil), a.sent...)
}

// SentTo returns the texts delivered to chatID in order.
func (a *Adapter) SentTo(chatID int64) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, s := range a.sent {
		if s.To.ChatID == chatID {
			out = append(out, s.Text)
		}
	}
	return out
}

func (a *Adapter) Edits() []Edit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Edit(nil), a.edits...)
}

func (a *Adapter) Answers() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.answers...)
}

// WaitSent polls until at least n messages were sent or d elapses.
func (a *Adapter) WaitSent(n int, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		a.mu.Lock()
		got := len(a.sent)
		a.mu.Unlock()
		if got >= n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}
