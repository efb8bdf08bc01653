package registry

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"sort"
	"sync"
	"testing"

	"ridebot/internal/storage"
	logx "ridebot/pkg/logx"
)

type memStore struct {
	mu      sync.Mutex
	ids     []int64
	loadErr error
	saveErr error
	saves   int
}

func (m *memStore) LoadFulfillers(context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.ids...), m.loadErr
}

func (m *memStore) SaveFulfillers(_ context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.ids = append([]int64(nil), ids...)
	return nil
}

func (m *memStore) AppendAudit(context.Context, storage.AuditEntry) error { return nil }
func (m *memStore) Close() error                                          { return nil }

func TestAddTwiceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := &memStore{}
	r := New(st, logx.Nop(), nil)

	before := r.Len()
	if got := r.Add(ctx, 42); got != Added {
		t.Fatalf("first add = %v, want Added", got)
	}
	if got := r.Add(ctx, 42); got != AlreadyExists {
		t.Fatalf("second add = %v, want AlreadyExists", got)
	}
	if r.Len() != before+1 {
		t.Fatalf("len = %d, want %d", r.Len(), before+1)
	}
	if st.saves != 1 {
		t.Fatalf("saves = %d, want 1", st.saves)
	}
}

func TestRemoveMissingDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	st := &memStore{ids: []int64{1, 2}}
	r := New(st, logx.Nop(), nil)
	r.Load(ctx)

	if got := r.Remove(ctx, 99); got != NotFound {
		t.Fatalf("remove = %v, want NotFound", got)
	}
	if st.saves != 0 {
		t.Fatalf("store written on a miss (%d saves)", st.saves)
	}
	if !reflect.DeepEqual(st.ids, []int64{1, 2}) {
		t.Fatalf("persisted set changed: %v", st.ids)
	}
}

func TestRemoveKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	st := &memStore{}
	r := New(st, logx.Nop(), nil)
	for _, id := range []int64{5, 3, 8, 1} {
		r.Add(ctx, id)
	}
	snap := r.List()
	if got := r.Remove(ctx, 3); got != Removed {
		t.Fatalf("remove = %v", got)
	}
	if want := []int64{5, 8, 1}; !reflect.DeepEqual(r.List(), want) || !reflect.DeepEqual(st.ids, want) {
		t.Fatalf("list=%v stored=%v, want %v", r.List(), st.ids, want)
	}
	if !reflect.DeepEqual(snap, []int64{5, 3, 8, 1}) {
		t.Fatalf("earlier snapshot mutated: %v", snap)
	}
}

func TestLoadFailsSoft(t *testing.T) {
	st := &memStore{ids: []int64{1}, loadErr: fmt.Errorf("%w: boom", storage.ErrMalformed)}
	r := New(st, logx.Nop(), nil)
	if got := r.Load(context.Background()); len(got) != 0 {
		t.Fatalf("expected empty set on malformed store, got %v", got)
	}
	if r.Len() != 0 {
		t.Fatalf("len = %d", r.Len())
	}
}

func TestLoadCollapsesDuplicates(t *testing.T) {
	st := &memStore{ids: []int64{4, 2, 4, 2, 9}}
	r := New(st, logx.Nop(), nil)
	if got := r.Load(context.Background()); !reflect.DeepEqual(got, []int64{4, 2, 9}) {
		t.Fatalf("got %v", got)
	}
}

func TestSaveFailureKeepsMutation(t *testing.T) {
	st := &memStore{saveErr: errors.New("disk full")}
	r := New(st, logx.Nop(), nil)
	if got := r.Add(context.Background(), 7); got != Added {
		t.Fatalf("add = %v", got)
	}
	if !r.Contains(7) {
		t.Fatal("in-memory mutation rolled back")
	}
}

func TestRoundTripThroughFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "drivers.json")
	st, err := storage.Open(storage.Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	r := New(st, logx.Nop(), nil)
	want := []int64{10, 20, 30}
	for _, id := range want {
		r.Add(ctx, id)
	}

	reloaded := New(st, logx.Nop(), nil).Load(ctx)
	sort.Slice(reloaded, func(i, j int) bool { return reloaded[i] < reloaded[j] })
	if !reflect.DeepEqual(reloaded, want) {
		t.Fatalf("got %v, want %v", reloaded, want)
	}
}

func TestConcurrentAddsAreSerialized(t *testing.T) {
	ctx := context.Background()
	st := &memStore{}
	r := New(st, logx.Nop(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			r.Add(ctx, id)
			r.Add(ctx, id)
		}(int64(i % 25))
	}
	wg.Wait()

	if r.Len() != 25 {
		t.Fatalf("len = %d, want 25", r.Len())
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.ids) != 25 {
		t.Fatalf("persisted %d ids, want 25 (lost update)", len(st.ids))
	}
}
