package lifecycle

import "context"

// prune deletes the oldest instances under m.name, one at a time, until at
// most maxInst remain. Ids deleted during this call are not counted again in
// case the remote list lags behind the deletes.
func (m *Manager) prune(ctx context.Context) error {
	deleted := make(map[string]bool)
	for {
		named, err := m.listNamed(ctx)
		if err != nil {
			return err
		}
		live := named[:0]
		for _, inst := range named {
			if !deleted[inst.ID] {
				live = append(live, inst)
			}
		}
		if len(live) <= m.maxInst {
			return nil
		}
		sortNewestFirst(live)
		oldest := live[len(live)-1]

		m.log.Debug().Str("event", "prune").Str("id", oldest.ID).Int("count", len(live)).Int("max", m.maxInst).Msg("deleting oldest instance")
		if err := m.b.Delete(ctx, oldest.ID); err != nil {
			remoteErrorsTotal.WithLabelValues(string(m.kind), "delete").Inc()
			return &RetentionError{ID: oldest.ID, Err: err}
		}
		deleted[oldest.ID] = true
		if cur, ok := m.cache.Current(); ok && cur.ID == oldest.ID {
			m.cache.Invalidate()
		}
		instancesPrunedTotal.WithLabelValues(string(m.kind)).Inc()
		m.publish(EventPruned, oldest.ID, nil)
		m.log.Info().Str("event", "pruned").Str("id", oldest.ID).Msg("deleted instance")

		if m.data != nil {
			if err := m.data.MarkDeleted(ctx, oldest.ID); err != nil {
				m.log.Warn().Err(err).Str("event", "training_data_delete_failed").Str("id", oldest.ID).Msg("deleting training data")
			}
		}
	}
}
