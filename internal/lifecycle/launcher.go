package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"modelkeeper/internal/backend"
	"modelkeeper/internal/store"
	"modelkeeper/pkg/types"
)

// TrainingSource supplies the training payload for a launch. Blob wins over
// Generate; with neither set the configured row source is encoded by the
// backend.
type TrainingSource struct {
	Blob []byte
	// Generate is called exactly once per launch.
	Generate func() ([]byte, error)
}

func (m *Manager) claimKey() string { return string(m.kind) + "/" + m.name }

// start submits a new training job unless one is already in progress in this
// process, and records its training data best-effort. With claims enabled the
// remote service is listed again under the claim, and a job another process
// launched meanwhile is returned instead of creating a second one.
// reuseAvailable also accepts an Available instance found that way; explicit
// training passes false so an existing model never blocks a retrain.
func (m *Manager) start(ctx context.Context, src TrainingSource, reuseAvailable bool) (types.Instance, error) {
	if inst, ok := m.cache.InProgress(); ok {
		m.log.Info().Str("event", "train_in_progress").Str("id", inst.ID).Msg("training already in progress")
		return inst, nil
	}

	if m.claims != nil {
		nonce, err := m.claims.Claim(ctx, m.claimKey())
		if errors.Is(err, store.ErrClaimBusy) {
			return types.Instance{}, trainingClaimedError{err: err}
		}
		if err != nil {
			return types.Instance{}, &TrainingLaunchError{Err: fmt.Errorf("claim: %w", err)}
		}
		defer func() {
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			if err := m.claims.Release(rctx, m.claimKey(), nonce); err != nil {
				m.log.Warn().Err(err).Str("event", "claim_release_failed").Msg("releasing launch claim")
			}
		}()
		if inst, ok, err := m.launchedElsewhere(ctx, reuseAvailable); err != nil || ok {
			return inst, err
		}
	}

	data, err := m.trainingBlob(ctx, src)
	if err != nil {
		return types.Instance{}, &TrainingLaunchError{Err: err}
	}
	inst, err := m.b.Create(ctx, backend.TrainingJob{Name: m.name, Language: m.language, Data: data})
	if err != nil {
		remoteErrorsTotal.WithLabelValues(string(m.kind), "create").Inc()
		m.log.Error().Err(err).Str("event", "train_failed").Msg("creating instance")
		return types.Instance{}, &TrainingLaunchError{Err: err}
	}
	inst.Kind = m.kind
	if inst.Name == "" {
		inst.Name = m.name
	}
	// A freshly created instance is training even when the service omits it.
	if inst.Status == types.StatusUnavailable {
		inst.Status = types.StatusTraining
	}
	m.cache.SetInProgress(inst)
	trainingsStartedTotal.WithLabelValues(string(m.kind)).Inc()
	m.publish(EventTrainingStarted, inst.ID, map[string]any{"bytes": len(data)})
	m.log.Info().Str("event", "train_started").Str("id", inst.ID).Int("bytes", len(data)).Msg("training started")

	if m.save && m.data != nil {
		if err := m.data.Save(ctx, inst.ID, m.kind, data); err != nil {
			m.log.Warn().Err(err).Str("event", "training_data_save_failed").Str("id", inst.ID).Msg("saving training data")
		}
	}
	return inst, nil
}

// launchedElsewhere reports the newest Training instance under the name, or
// with reuseAvailable the newest Available one, as seen while holding the
// launch claim.
func (m *Manager) launchedElsewhere(ctx context.Context, reuseAvailable bool) (types.Instance, bool, error) {
	named, err := m.listNamed(ctx)
	if err != nil || len(named) == 0 {
		return types.Instance{}, false, err
	}
	sortNewestFirst(named)
	checked, err := m.pollAll(ctx, named)
	if err != nil {
		return types.Instance{}, false, err
	}
	if reuseAvailable {
		for _, inst := range checked {
			if inst.Status == types.StatusAvailable {
				m.cache.SetCurrent(inst)
				m.log.Info().Str("event", "claim_recheck_available").Str("id", inst.ID).Msg("instance became available under claim")
				return inst, true, nil
			}
		}
	}
	for _, inst := range checked {
		if inst.Status == types.StatusTraining {
			m.cache.SetInProgress(inst)
			m.log.Info().Str("event", "claim_recheck_training").Str("id", inst.ID).Msg("training launched by another process")
			return inst, true, nil
		}
	}
	return types.Instance{}, false, nil
}

func (m *Manager) trainingBlob(ctx context.Context, src TrainingSource) ([]byte, error) {
	switch {
	case src.Blob != nil:
		return src.Blob, nil
	case src.Generate != nil:
		return src.Generate()
	case m.rows == nil:
		return nil, errors.New("no training data and no row source configured")
	}
	rows, err := m.rows.TrainingRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("training rows: %w", err)
	}
	return m.b.EncodeTraining(ctx, rows)
}
