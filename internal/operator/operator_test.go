package operator

import (
	"context"
	"sync"
	"testing"

	"ridebot/internal/registry"
	"ridebot/internal/storage"
	kit "ridebot/internal/transport"
	"ridebot/internal/transport/fake"
	"ridebot/internal/transport/telegram/router"
	logx "ridebot/pkg/logx"
)

type memStore struct {
	mu    sync.Mutex
	ids   []int64
	audit []storage.AuditEntry
}

func (m *memStore) LoadFulfillers(context.Context) ([]int64, error) { return m.ids, nil }
func (m *memStore) SaveFulfillers(_ context.Context, ids []int64) error {
	m.mu.Lock()
	m.ids = append([]int64(nil), ids...)
	m.mu.Unlock()
	return nil
}
func (m *memStore) AppendAudit(_ context.Context, e storage.AuditEntry) error {
	m.mu.Lock()
	m.audit = append(m.audit, e)
	m.mu.Unlock()
	return nil
}
func (m *memStore) Close() error { return nil }

type learner struct{ chat int64 }

func (l *learner) SetOperatorChatIfUnset(id int64) bool {
	if l.chat != 0 {
		return false
	}
	l.chat = id
	return true
}

type harness struct {
	ad    *fake.Adapter
	r     *router.Router
	reg   *registry.Registry
	store *memStore
	learn *learner
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st := &memStore{}
	reg := registry.New(st, logx.Nop(), nil)
	ad := fake.New()
	l := &learner{}
	r := router.New(logx.Nop(), ad, router.Options{DeniedText: DeniedText})
	r.SetAuthorizer(NewGate(GateConfig{Usernames: []string{"@Dispatch_Boss"}, UserIDs: []int64{500}}))
	r.SetCommands(NewHandler(reg, l, st, logx.Nop()).Commands())
	return &harness{ad: ad, r: r, reg: reg, store: st, learn: l}
}

func (h *harness) send(chat, from int64, user, text string) {
	h.r.Handle(context.Background(), kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{
		ChatID: chat, FromID: from, FromUsername: user, Text: text,
	}})
}

func (h *harness) last(t *testing.T, chat int64) string {
	t.Helper()
	got := h.ad.SentTo(chat)
	if len(got) == 0 {
		t.Fatalf("no reply to chat %d", chat)
	}
	return got[len(got)-1]
}

func TestGateMatchesUsernameCaseInsensitive(t *testing.T) {
	g := NewGate(GateConfig{Usernames: []string{"@Dispatch_Boss", " "}, UserIDs: []int64{500, 0}})
	cases := []struct {
		id   int64
		user string
		want bool
	}{
		{1, "dispatch_boss", true},
		{1, "@DISPATCH_BOSS", true},
		{500, "", true},
		{1, "someone", false},
		{0, "", false},
	}
	for _, tc := range cases {
		if got := g.Allowed(tc.id, tc.user); got != tc.want {
			t.Fatalf("Allowed(%d,%q) = %v", tc.id, tc.user, got)
		}
	}
	if g.Size() != 2 {
		t.Fatalf("size = %d", g.Size())
	}
	g.Apply(GateConfig{})
	if g.Allowed(500, "dispatch_boss") {
		t.Fatal("empty allow-list still admits")
	}
}

func TestUnauthorizedAddIsDenied(t *testing.T) {
	h := newHarness(t)
	h.send(10, 1, "stranger", "/add_driver 42")
	if got := h.last(t, 10); got != DeniedText {
		t.Fatalf("reply = %q", got)
	}
	if h.reg.Len() != 0 {
		t.Fatal("registry mutated by unauthorized user")
	}
	if h.learn.chat != 0 {
		t.Fatal("operator chat learned from unauthorized user")
	}
}

func TestAddRemoveList(t *testing.T) {
	h := newHarness(t)
	h.send(10, 1, "dispatch_boss", "/add_driver 42")
	if got, want := h.last(t, 10), "✅ Driver 42 added successfully!\nTotal drivers: 1"; got != want {
		t.Fatalf("reply = %q, want %q", got, want)
	}
	h.send(10, 1, "dispatch_boss", "/add_driver 42")
	if got, want := h.last(t, 10), "⚠️ Driver 42 already exists!"; got != want {
		t.Fatalf("reply = %q", got)
	}
	h.send(10, 500, "", "/add_driver -100777")
	h.send(10, 500, "", "/list_drivers")
	if got, want := h.last(t, 10), "📋 Registered Drivers (2):\n\n• 42\n• -100777"; got != want {
		t.Fatalf("list = %q, want %q", got, want)
	}
	h.send(10, 500, "", "/remove_driver 7")
	if got, want := h.last(t, 10), "⚠️ Driver 7 not found!"; got != want {
		t.Fatalf("reply = %q", got)
	}
	h.send(10, 500, "", "/remove_driver 42")
	if got, want := h.last(t, 10), "✅ Driver 42 removed successfully!\nTotal drivers: 1"; got != want {
		t.Fatalf("reply = %q", got)
	}
	if h.learn.chat != 10 {
		t.Fatalf("operator chat = %d, want 10", h.learn.chat)
	}

	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	if len(h.store.audit) != 5 {
		t.Fatalf("audit entries = %d, want 5", len(h.store.audit))
	}
	if e := h.store.audit[1]; e.Action != "fulfiller.add" || e.Fail != 1 || e.ActorUsername != "dispatch_boss" {
		t.Fatalf("duplicate add audit = %+v", e)
	}
	if e := h.store.audit[4]; e.Action != "fulfiller.remove" || e.OK != 1 || e.Target != "42" {
		t.Fatalf("remove audit = %+v", e)
	}
}

func TestBadArguments(t *testing.T) {
	h := newHarness(t)
	h.send(10, 500, "", "/add_driver")
	if got := h.last(t, 10); got != "Usage: /add_driver CHAT_ID" {
		t.Fatalf("reply = %q", got)
	}
	h.send(10, 500, "", "/remove_driver 1 2")
	if got := h.last(t, 10); got != "Usage: /remove_driver CHAT_ID" {
		t.Fatalf("reply = %q", got)
	}
	h.send(10, 500, "", "/add_driver abc")
	if got := h.last(t, 10); got != textInvalidID {
		t.Fatalf("reply = %q", got)
	}
	if h.reg.Len() != 0 {
		t.Fatal("registry mutated on bad input")
	}
}

func TestFormatListEmpty(t *testing.T) {
	if got := FormatList(nil); got != textEmpty {
		t.Fatalf("got %q", got)
	}
}
