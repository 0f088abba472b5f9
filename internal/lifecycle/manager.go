package lifecycle

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"modelkeeper/internal/backend"
	"modelkeeper/internal/store"
	"modelkeeper/internal/trainingdata"
	"modelkeeper/pkg/types"
)

// Manager keeps the current instance of one logical name in sync with a
// remote training service.
type Manager struct {
	b        backend.Backend
	kind     types.Kind
	name     string
	language string
	maxInst  int
	interval time.Duration
	save     bool
	policy   RetentionFailurePolicy
	rows     trainingdata.RowSource
	data     *store.TrainingData
	claims   *store.Claims

	log     zerolog.Logger
	now     func() time.Time
	sleeper Sleeper

	cache InstanceCache

	pubMu sync.RWMutex
	pub   EventPublisher
}

func (m *Manager) Kind() types.Kind { return m.kind }
func (m *Manager) Name() string     { return m.name }

// Ready reports whether a current instance is cached.
func (m *Manager) Ready() bool {
	_, ok := m.cache.Current()
	return ok
}

// SetEventPublisher replaces the event sink; nil restores the no-op sink.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()
	if p == nil {
		p = noopPublisher{}
	}
	m.pub = p
}

func (m *Manager) publish(name, id string, fields map[string]any) {
	m.pubMu.RLock()
	p := m.pub
	m.pubMu.RUnlock()
	p.Publish(Event{Name: name, InstanceID: id, Fields: fields})
}

// poll performs a single status check of id.
func (m *Manager) poll(ctx context.Context, id string) (types.Instance, error) {
	inst, err := m.b.Status(ctx, id)
	if err != nil {
		remoteErrorsTotal.WithLabelValues(string(m.kind), "status").Inc()
		return types.Instance{}, &RemoteServiceError{Op: "status " + id, Err: err}
	}
	if inst.ID == "" {
		inst.ID = id
	}
	inst.Kind = m.kind
	return m.withDuration(inst), nil
}

// withDuration sets TrainingDurationMinutes, which only Training instances
// carry.
func (m *Manager) withDuration(inst types.Instance) types.Instance {
	if inst.Status == types.StatusTraining {
		inst.TrainingDurationMinutes = types.TrainingMinutes(inst.CreatedAt, m.now())
	} else {
		inst.TrainingDurationMinutes = 0
	}
	return inst
}

// listNamed lists every remote instance and keeps the ones under m.name.
func (m *Manager) listNamed(ctx context.Context) ([]types.Instance, error) {
	all, err := m.b.List(ctx)
	if err != nil {
		remoteErrorsTotal.WithLabelValues(string(m.kind), "list").Inc()
		return nil, &RemoteServiceError{Op: "list " + string(m.kind) + "s", Err: err}
	}
	named := make([]types.Instance, 0, len(all))
	for _, inst := range all {
		if inst.Name == m.name {
			named = append(named, inst)
		}
	}
	return named, nil
}

// pollAll status-checks every instance concurrently. The result is aligned
// with the input; any failure aborts the whole call.
func (m *Manager) pollAll(ctx context.Context, insts []types.Instance) ([]types.Instance, error) {
	out := make([]types.Instance, len(insts))
	g, gctx := errgroup.WithContext(ctx)
	for i, inst := range insts {
		g.Go(func() error {
			st, err := m.poll(gctx, inst.ID)
			if err != nil {
				return err
			}
			if st.Name == "" {
				st.Name = inst.Name
			}
			if st.CreatedAt.IsZero() {
				st.CreatedAt = inst.CreatedAt
				st = m.withDuration(st)
			}
			out[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func sortNewestFirst(insts []types.Instance) {
	sort.SliceStable(insts, func(i, j int) bool {
		return insts[i].CreatedAt.After(insts[j].CreatedAt)
	})
}
