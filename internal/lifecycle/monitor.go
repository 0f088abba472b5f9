package lifecycle

import (
	"context"

	"modelkeeper/pkg/types"
)

// monitor polls id until it leaves Training. An Available instance becomes
// current and triggers retention; any other status is a TrainingFailedError.
func (m *Manager) monitor(ctx context.Context, id string) (types.Instance, error) {
	for {
		inst, err := m.poll(ctx, id)
		if err != nil {
			return types.Instance{}, err
		}
		m.log.Info().Str("event", "monitor_poll").Str("id", id).Str("status", string(inst.Status)).Msg("checked training status")

		if !inst.Status.Terminal() {
			if err := m.sleeper.Sleep(ctx, m.interval); err != nil {
				return types.Instance{}, err
			}
			continue
		}
		switch inst.Status {
		case types.StatusAvailable:
			m.cache.Complete(inst)
			trainingOutcomesTotal.WithLabelValues(string(m.kind), string(inst.Status)).Inc()
			m.publish(EventTrainingDone, inst.ID, nil)
			if err := m.prune(ctx); err != nil {
				if m.policy == RetentionIgnore {
					m.log.Warn().Err(err).Str("event", "prune_failed").Str("id", inst.ID).Msg("retention failed; keeping available instance")
					return inst, nil
				}
				m.log.Error().Err(err).Str("event", "prune_failed").Str("id", inst.ID).Msg("retention failed")
				return types.Instance{}, err
			}
			return inst, nil
		default:
			if cur, ok := m.cache.InProgress(); ok && cur.ID == id {
				m.cache.ClearInProgress()
			}
			trainingOutcomesTotal.WithLabelValues(string(m.kind), string(inst.Status)).Inc()
			m.publish(EventTrainingFailed, inst.ID, map[string]any{"status": string(inst.Status)})
			return types.Instance{}, &TrainingFailedError{Instance: inst}
		}
	}
}
