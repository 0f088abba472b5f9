package store

import (
	"context"
	"errors"
	"fmt"

	"modelkeeper/pkg/types"
)

// TrainingData records the training blob each instance was created from.
// Records are keyed by instance id and soft-deleted when the instance is
// pruned.
type TrainingData struct {
	s Store
}

func NewTrainingData(s Store) *TrainingData { return &TrainingData{s: s} }

// RecordKind is the document kind used for an instance kind's training data.
func RecordKind(k types.Kind) string { return string(k) + "_data" }

// Save creates or replaces the record for id.
func (t *TrainingData) Save(ctx context.Context, id string, kind types.Kind, blob []byte) error {
	if id == "" {
		return errors.New("store: training data needs an instance id")
	}
	_, err := CreateOrUpdate(ctx, t.s, Document{ID: id, Kind: RecordKind(kind), Body: blob})
	if err != nil {
		return fmt.Errorf("save training data %s: %w", id, err)
	}
	return nil
}

// Load returns the blob recorded for id.
func (t *TrainingData) Load(ctx context.Context, id string) ([]byte, error) {
	d, err := t.s.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load training data %s: %w", id, err)
	}
	return d.Body, nil
}

// MarkDeleted soft-deletes the record for id. A missing record is not an
// error.
func (t *TrainingData) MarkDeleted(ctx context.Context, id string) error {
	d, err := t.s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete training data %s: %w", id, err)
	}
	d.Deleted = true
	if _, err := t.s.Put(ctx, d); err != nil {
		return fmt.Errorf("delete training data %s: %w", id, err)
	}
	return nil
}
