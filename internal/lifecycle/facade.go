package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"modelkeeper/internal/store"
	"modelkeeper/internal/trainingdata"
	"modelkeeper/pkg/types"
)

// ProcessResult is the outcome of Process. Pending is set when the resolved
// instance is still training; Result is then empty.
type ProcessResult struct {
	Instance types.Instance
	Pending  bool
	Result   json.RawMessage
}

// Train starts a new training job even if instances already exist under the
// name. A job already started by this Manager, or with claims one another
// process has in flight, is returned instead.
func (m *Manager) Train(ctx context.Context, src TrainingSource) (types.Instance, error) {
	return m.start(ctx, src, false)
}

// TrainIfNeeded returns the current Available or Training instance, starting
// training when there is none.
func (m *Manager) TrainIfNeeded(ctx context.Context) (types.Instance, error) {
	return m.resolve(ctx, false)
}

// MonitorTraining waits for id to finish training. An empty id monitors the
// instance Current would return.
func (m *Manager) MonitorTraining(ctx context.Context, id string) (types.Instance, error) {
	if id == "" {
		cur, err := m.resolve(ctx, true)
		if err != nil {
			return types.Instance{}, err
		}
		id = cur.ID
	}
	return m.monitor(ctx, id)
}

// Status polls id, or the current instance when id is empty.
func (m *Manager) Status(ctx context.Context, id string) (types.Instance, error) {
	if id == "" {
		cur, err := m.resolve(ctx, true)
		if err != nil {
			return types.Instance{}, err
		}
		id = cur.ID
	}
	return m.poll(ctx, id)
}

// List returns every instance under the name, status-checked, Available first
// and newest first within each status.
func (m *Manager) List(ctx context.Context) ([]types.Instance, error) {
	named, err := m.listNamed(ctx)
	if err != nil {
		return nil, err
	}
	checked, err := m.pollAll(ctx, named)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(checked, func(i, j int) bool {
		ai := checked[i].Status == types.StatusAvailable
		aj := checked[j].Status == types.StatusAvailable
		if ai != aj {
			return ai
		}
		return checked[i].CreatedAt.After(checked[j].CreatedAt)
	})
	return checked, nil
}

// Current returns the current instance without ever starting training.
func (m *Manager) Current(ctx context.Context) (types.Instance, error) {
	return m.resolve(ctx, true)
}

// Process classifies or ranks text with the current instance. A failure drops
// the cached instance so the next call re-resolves.
func (m *Manager) Process(ctx context.Context, text string) (ProcessResult, error) {
	inst, err := m.resolve(ctx, false)
	if err != nil {
		m.invalidate("resolve_failed")
		return ProcessResult{}, err
	}
	m.log.Info().Str("event", "process").Str("id", inst.ID).Msg("using instance")
	if inst.Status == types.StatusTraining {
		return ProcessResult{Instance: inst, Pending: true}, nil
	}
	raw, err := m.b.Query(ctx, inst.ID, text)
	if err != nil {
		remoteErrorsTotal.WithLabelValues(string(m.kind), "query").Inc()
		m.invalidate("query_failed")
		return ProcessResult{}, &RemoteServiceError{Op: "query " + inst.ID, Err: err}
	}
	return ProcessResult{Instance: inst, Result: raw}, nil
}

func (m *Manager) invalidate(reason string) {
	if _, ok := m.cache.Current(); !ok {
		return
	}
	m.cache.Invalidate()
	m.publish(EventCacheCleared, "", map[string]any{"reason": reason})
	m.log.Debug().Str("event", "cache_cleared").Str("reason", reason).Msg("dropped cached instance")
}

// InstanceData returns the recorded training data of id grouped by label.
// Ranker records hold extracted feature rows rather than labeled text, so
// they are rejected.
func (m *Manager) InstanceData(ctx context.Context, id string) (map[string][]string, error) {
	if m.kind == types.KindRanker {
		return nil, unsupportedError{op: "grouping training data by label", kind: m.kind}
	}
	if m.data == nil {
		return nil, errNoTrainingData
	}
	blob, err := m.data.Load(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundError{kind: m.kind, name: m.name, id: id}
	}
	if err != nil {
		return nil, err
	}
	rows, err := trainingdata.DecodeCSV(blob)
	if err != nil {
		return nil, fmt.Errorf("decode training data %s: %w", id, err)
	}
	return trainingdata.GroupByLabel(rows), nil
}
