package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"modelkeeper/internal/backend"
	"modelkeeper/internal/store"
	"modelkeeper/internal/trainingdata"
	"modelkeeper/pkg/types"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// at returns t0 plus n minutes.
func at(n int) time.Time { return t0.Add(time.Duration(n) * time.Minute) }

// fakeBackend is an in-memory remote service. Status sequences let a test
// script what successive status checks of an instance report.
type fakeBackend struct {
	mu        sync.Mutex
	kind      types.Kind
	instances map[string]types.Instance
	sequences map[string][]types.Status

	createErr error
	listErr   error
	statusErr error
	deleteErr error
	queryErr  error
	// keepDeletedInList makes List keep reporting deleted instances.
	keepDeletedInList bool
	// statusOmitsCreated drops the creation time from status responses.
	statusOmitsCreated bool

	listCalls   int
	statusCalls int
	createCalls int
	queryCalls  int
	deleted     []string
	created     []backend.TrainingJob
	nextID      int
}

func newFakeBackend(insts ...types.Instance) *fakeBackend {
	f := &fakeBackend{
		kind:      types.KindClassifier,
		instances: make(map[string]types.Instance),
		sequences: make(map[string][]types.Status),
	}
	for _, in := range insts {
		f.instances[in.ID] = in
	}
	return f
}

func (f *fakeBackend) script(id string, seq ...types.Status) {
	f.mu.Lock()
	f.sequences[id] = seq
	f.mu.Unlock()
}

func (f *fakeBackend) remoteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls + f.statusCalls + f.createCalls
}

func (f *fakeBackend) remaining() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.instances))
	for id := range f.instances {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (f *fakeBackend) Kind() types.Kind { return f.kind }

func (f *fakeBackend) Create(ctx context.Context, job backend.TrainingJob) (types.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return types.Instance{}, f.createErr
	}
	f.nextID++
	f.created = append(f.created, job)
	inst := types.Instance{
		ID:        fmt.Sprintf("new-%d", f.nextID),
		Name:      job.Name,
		Status:    types.StatusTraining,
		CreatedAt: at(100 + f.nextID),
	}
	f.instances[inst.ID] = inst
	return inst, nil
}

func (f *fakeBackend) List(ctx context.Context) ([]types.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]types.Instance, 0, len(f.instances))
	for _, in := range f.instances {
		out = append(out, in)
	}
	if f.keepDeletedInList {
		for _, id := range f.deleted {
			out = append(out, types.Instance{ID: id, Name: "x", CreatedAt: at(-1000)})
		}
	}
	// list order is not meaningful
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeBackend) Status(ctx context.Context, id string) (types.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if f.statusErr != nil {
		return types.Instance{}, f.statusErr
	}
	in, ok := f.instances[id]
	if !ok {
		return types.Instance{}, &backend.HTTPError{Op: "status", StatusCode: 404}
	}
	if seq := f.sequences[id]; len(seq) > 0 {
		in.Status = seq[0]
		if len(seq) > 1 {
			f.sequences[id] = seq[1:]
		}
		f.instances[id] = in
	}
	// status responses carry no name
	in.Name = ""
	if f.statusOmitsCreated {
		in.CreatedAt = time.Time{}
	}
	return in, nil
}

func (f *fakeBackend) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.instances, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeBackend) Query(ctx context.Context, id, text string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return json.RawMessage(fmt.Sprintf(`{"instance":%q,"text":%q}`, id, text)), nil
}

func (f *fakeBackend) EncodeTraining(ctx context.Context, rows [][]string) ([]byte, error) {
	return trainingdata.EncodeCSV(rows)
}

// fakeSleeper records requested sleeps without waiting.
type fakeSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
	err   error
}

func (s *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	if s.err != nil {
		return s.err
	}
	return ctx.Err()
}

func (s *fakeSleeper) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.waits)
}

// failingStore rejects every write.
type failingStore struct{ store.Store }

func (failingStore) Put(ctx context.Context, d store.Document) (int64, error) {
	return 0, errors.New("disk full")
}

type testEnv struct {
	m     *Manager
	fb    *fakeBackend
	store *store.MemoryStore
	sleep *fakeSleeper
	pub   *MemoryPublisher
}

// newTestEnv builds a Manager named "x" over fb with an in-memory store, a
// fake sleeper and a fixed clock. mut may adjust the Config.
func newTestEnv(t *testing.T, fb *fakeBackend, mut func(*Config)) *testEnv {
	t.Helper()
	ms := store.NewMemoryStore()
	env := &testEnv{fb: fb, store: ms, sleep: &fakeSleeper{}, pub: NewMemoryPublisher()}
	cfg := Config{
		Backend:      fb,
		Name:         "x",
		Rows:         trainingdata.StaticRows{{"hello", "greeting"}, {"bye", "farewell"}},
		TrainingData: store.NewTrainingData(ms),
		Clock:        func() time.Time { return at(200) },
		Sleeper:      env.sleep,
		Publisher:    env.pub,
	}
	if mut != nil {
		mut(&cfg)
	}
	env.m = NewWithConfig(cfg)
	return env
}

func inst(id string, status types.Status, created time.Time) types.Instance {
	return types.Instance{ID: id, Name: "x", Status: status, CreatedAt: created}
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}

// staleListBackend answers the first stale List calls with an empty list, as
// an eventually consistent service would right after another process created
// an instance.
type staleListBackend struct {
	*fakeBackend
	stale int
}

func (b *staleListBackend) List(ctx context.Context) ([]types.Instance, error) {
	b.mu.Lock()
	if b.stale > 0 {
		b.stale--
		b.listCalls++
		b.mu.Unlock()
		return []types.Instance{}, nil
	}
	b.mu.Unlock()
	return b.fakeBackend.List(ctx)
}
