package lifecycle

import (
	"context"

	"modelkeeper/pkg/types"
)

// resolve determines the current instance for m.name: the cached one, else
// the newest Available, else the newest Training. With nothing usable it
// starts training unless doNotTrain is set.
func (m *Manager) resolve(ctx context.Context, doNotTrain bool) (types.Instance, error) {
	if cur, ok := m.cache.Current(); ok {
		cacheHitsTotal.WithLabelValues(string(m.kind)).Inc()
		m.log.Debug().Str("event", "cache_hit").Str("id", cur.ID).Msg("using cached instance")
		return cur, nil
	}
	named, err := m.listNamed(ctx)
	if err != nil {
		return types.Instance{}, err
	}
	if len(named) == 0 {
		if doNotTrain {
			return types.Instance{}, notFoundError{kind: m.kind, name: m.name}
		}
		m.log.Info().Str("event", "resolve_empty").Msg("no instances under name; starting training")
		return m.start(ctx, TrainingSource{}, true)
	}

	sortNewestFirst(named)
	checked, err := m.pollAll(ctx, named)
	if err != nil {
		return types.Instance{}, err
	}

	m.cache.ClearInProgress()
	var training *types.Instance
	for i := range checked {
		switch checked[i].Status {
		case types.StatusAvailable:
			m.cache.SetCurrent(checked[i])
			m.publish(EventResolved, checked[i].ID, map[string]any{"status": string(checked[i].Status)})
			return checked[i], nil
		case types.StatusTraining:
			if training == nil {
				training = &checked[i]
			}
		}
	}
	if training != nil {
		m.cache.SetInProgress(*training)
		m.publish(EventResolved, training.ID, map[string]any{"status": string(training.Status)})
		return *training, nil
	}
	if doNotTrain {
		return types.Instance{}, notAvailableError{kind: m.kind, name: m.name}
	}
	m.log.Info().Str("event", "resolve_unusable").Int("instances", len(checked)).Msg("no instance available or training; starting training")
	return m.start(ctx, TrainingSource{}, true)
}
