package dispatch

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"ridebot/internal/dialogue"
	"ridebot/internal/eventbus"
	"ridebot/internal/i18n"
	"ridebot/internal/storage"
	kit "ridebot/internal/transport"
	"ridebot/internal/transport/fake"
	logx "ridebot/pkg/logx"
)

type staticRegistry []int64

func (r staticRegistry) List() []int64 { return append([]int64(nil), r...) }

type opRecorder struct {
	mu    sync.Mutex
	texts []string
}

func (o *opRecorder) NotifyOperator(_ context.Context, text string, _ int) error {
	o.mu.Lock()
	o.texts = append(o.texts, text)
	o.mu.Unlock()
	return nil
}

type auditRecorder struct {
	mu      sync.Mutex
	entries []storage.AuditEntry
}

func (a *auditRecorder) LoadFulfillers(context.Context) ([]int64, error) { return nil, nil }
func (a *auditRecorder) SaveFulfillers(context.Context, []int64) error   { return nil }
func (a *auditRecorder) Close() error                                     { return nil }
func (a *auditRecorder) AppendAudit(_ context.Context, e storage.AuditEntry) error {
	a.mu.Lock()
	a.entries = append(a.entries, e)
	a.mu.Unlock()
	return nil
}

var draft = dialogue.Draft{
	Name:    "Alex",
	Contact: "+1555",
	Pickup:  dialogue.Pickup{Address: "Main St"},
	Dropoff: "2nd Ave",
}

type rig struct {
	drivers   *fake.Adapter
	requester *fake.Adapter
	op        *opRecorder
	audit     *auditRecorder
	x         *Dispatcher
}

func newRig(reg staticRegistry, cfg Config) *rig {
	r := &rig{drivers: fake.New(), requester: fake.New(), op: &opRecorder{}, audit: &auditRecorder{}}
	r.x = New(cfg, Deps{
		Catalog:    i18n.New("en"),
		Registry:   reg,
		Fulfillers: r.drivers,
		Requesters: r.requester,
		Operator:   r.op,
		Store:      r.audit,
		Log:        logx.Nop(),
	})
	return r
}

func TestEmptyRegistrySendsNothing(t *testing.T) {
	r := newRig(nil, Config{})
	src := &kit.MessageRef{ChatID: 10, MessageID: 3}
	rep := r.x.Dispatch(context.Background(), Order{Draft: draft, Requester: Requester{ChatID: 10, Locale: "en", Source: src}})

	if rep.Recipients != 0 || len(rep.Failed) != 0 {
		t.Fatalf("report = %+v", rep)
	}
	if rep.OrderID == uuid.Nil {
		t.Fatal("order id not assigned")
	}
	if n := len(r.drivers.Sent()); n != 0 {
		t.Fatalf("%d fulfiller sends on empty registry", n)
	}
	if len(r.op.texts) != 1 || !strings.Contains(r.op.texts[0], "no drivers are registered") || !strings.Contains(r.op.texts[0], "Alex") {
		t.Fatalf("operator texts = %q", r.op.texts)
	}
	edits := r.requester.Edits()
	if len(edits) != 1 || edits[0].Text != "⚠️ No drivers are currently registered. The admin has been notified." || edits[0].Ref != *src {
		t.Fatalf("requester edits = %+v", edits)
	}
	if len(r.requester.Sent()) != 0 {
		t.Fatal("requester got a second message")
	}
	if len(r.audit.entries) != 1 || r.audit.entries[0].Error != "no fulfillers" {
		t.Fatalf("audit = %+v", r.audit.entries)
	}
}

func TestPartialFailureStillAcknowledges(t *testing.T) {
	const a, b = int64(1001), int64(1002)
	r := newRig(staticRegistry{a, b}, Config{})
	r.drivers.Fail[a] = true

	rep := r.x.Dispatch(context.Background(), Order{Draft: draft, Requester: Requester{ChatID: 10, Username: "alex", Locale: "en"}})

	if rep.Recipients != 2 || !reflect.DeepEqual(rep.Failed, []int64{a}) || rep.Delivered() != 1 {
		t.Fatalf("report = %+v", rep)
	}
	if got := r.drivers.SentTo(b); len(got) != 1 || got[0] != rep.Body {
		t.Fatalf("B got %q", got)
	}
	acks := r.requester.SentTo(10)
	if len(acks) != 1 || acks[0] != "✅ Your order has been accepted, wait for a call from the driver." {
		t.Fatalf("requester acks = %q", acks)
	}
	if len(r.op.texts) != 1 || !strings.Contains(r.op.texts[0], "ORDER DELIVERY FAILED") || !strings.Contains(r.op.texts[0], "@alex") {
		t.Fatalf("operator texts = %q", r.op.texts)
	}
	if e := r.audit.entries[0]; e.OK != 1 || e.Fail != 1 || e.Action != "order.dispatch" {
		t.Fatalf("audit = %+v", e)
	}
}

func TestAllDeliveredNoOperatorNoise(t *testing.T) {
	r := newRig(staticRegistry{1, 2, 3}, Config{})
	rep := r.x.Dispatch(context.Background(), Order{Draft: draft, Requester: Requester{ChatID: 10}})
	if len(rep.Failed) != 0 || len(r.drivers.Sent()) != 3 {
		t.Fatalf("report=%+v sent=%d", rep, len(r.drivers.Sent()))
	}
	if len(r.op.texts) != 0 {
		t.Fatalf("operator notified on clean dispatch: %q", r.op.texts)
	}
}

func TestSlowFulfillerTimesOutWithoutBlockingOthers(t *testing.T) {
	r := newRig(staticRegistry{1, 2, 3}, Config{SendTimeout: 50 * time.Millisecond, Concurrency: 1})
	r.drivers.Hang[2] = true

	start := time.Now()
	rep := r.x.Dispatch(context.Background(), Order{Draft: draft, Requester: Requester{ChatID: 10}})
	if time.Since(start) > 2*time.Second {
		t.Fatal("dispatch did not honour send timeout")
	}
	if !reflect.DeepEqual(rep.Failed, []int64{2}) {
		t.Fatalf("failed = %v", rep.Failed)
	}
	if len(r.drivers.SentTo(1)) != 1 || len(r.drivers.SentTo(3)) != 1 {
		t.Fatal("siblings of the slow fulfiller were not delivered")
	}
}

func TestFailedListKeepsSnapshotOrder(t *testing.T) {
	ids := staticRegistry{9, 3, 7, 5, 1}
	r := newRig(ids, Config{Concurrency: 5})
	for _, id := range []int64{7, 9, 1} {
		r.drivers.Fail[id] = true
	}
	rep := r.x.Dispatch(context.Background(), Order{Draft: draft, Requester: Requester{ChatID: 10}})
	if !reflect.DeepEqual(rep.Failed, []int64{9, 7, 1}) {
		t.Fatalf("failed = %v", rep.Failed)
	}
}

func TestAckFallsBackToSendWhenEditFails(t *testing.T) {
	r := newRig(staticRegistry{1}, Config{})
	r.requester.EditFail = true
	r.x.Dispatch(context.Background(), Order{Draft: draft, Requester: Requester{ChatID: 10, Source: &kit.MessageRef{ChatID: 10, MessageID: 1}}})
	if got := r.requester.SentTo(10); len(got) != 1 {
		t.Fatalf("acks = %q", got)
	}
}

func TestDispatchPublishesReport(t *testing.T) {
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(1)
	defer unsub()

	x := New(Config{}, Deps{Catalog: i18n.New("en"), Registry: staticRegistry{1}, Fulfillers: fake.New(), Requesters: fake.New(), Bus: bus})
	x.Dispatch(context.Background(), Order{Draft: draft, Requester: Requester{ChatID: 10}})
	select {
	case ev := <-ch:
		if ev.Type != eventbus.TypeDispatchReport {
			t.Fatalf("type = %s", ev.Type)
		}
		if rep, ok := ev.Data.(Report); !ok || rep.Recipients != 1 {
			t.Fatalf("data = %#v", ev.Data)
		}
	default:
		t.Fatal("no report published")
	}
}

func TestStalledSendFailsAtTimeout(t *testing.T) {
	r := newRig(staticRegistry{1, 2}, Config{SendTimeout: 50 * time.Millisecond})
	r.drivers.Stall[2] = 400 * time.Millisecond

	start := time.Now()
	rep := r.x.Dispatch(context.Background(), Order{Draft: draft, Requester: Requester{ChatID: 10}})
	if took := time.Since(start); took >= 350*time.Millisecond {
		t.Fatalf("dispatch took %v, send timeout ignored", took)
	}
	if !reflect.DeepEqual(rep.Failed, []int64{2}) {
		t.Fatalf("failed = %v", rep.Failed)
	}
	if len(r.op.texts) != 1 || !strings.Contains(r.op.texts[0], "ORDER DELIVERY FAILED") {
		t.Fatalf("operator texts = %q", r.op.texts)
	}
}

func TestAckSurvivesSpentRequestContext(t *testing.T) {
	r := newRig(staticRegistry{1}, Config{SendTimeout: time.Second})
	r.drivers.Stall[1] = 300 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	r.x.Dispatch(ctx, Order{Draft: draft, Requester: Requester{ChatID: 10, Locale: "en"}})

	if ctx.Err() == nil {
		t.Fatal("request context still live; fan-out did not outlast it")
	}
	if acks := r.requester.SentTo(10); len(acks) != 1 {
		t.Fatalf("requester acks = %q, want exactly one", acks)
	}
	if len(r.audit.entries) != 1 {
		t.Fatalf("audit = %+v", r.audit.entries)
	}
}
