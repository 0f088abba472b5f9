// Package backend holds the clients for the remote training services. Both
// service kinds (classifier and ranker) implement the same Backend capability
// set so the lifecycle manager can stay generic over them.
package backend

import (
	"context"
	"encoding/json"

	"modelkeeper/pkg/types"
)

// Backend is the capability set the lifecycle manager needs from a remote
// training service.
type Backend interface {
	// Kind reports which service this backend talks to.
	Kind() types.Kind
	// Create submits a training job and returns the new (Training) instance.
	Create(ctx context.Context, job TrainingJob) (types.Instance, error)
	// List returns every instance known to the service, regardless of name.
	List(ctx context.Context) ([]types.Instance, error)
	// Status performs a single status check of one instance.
	Status(ctx context.Context, id string) (types.Instance, error)
	// Delete removes an instance from the service.
	Delete(ctx context.Context, id string) error
	// Query classifies or ranks text against an instance.
	Query(ctx context.Context, id, text string) (json.RawMessage, error)
	// EncodeTraining turns [text, label] rows into the training payload the
	// service expects.
	EncodeTraining(ctx context.Context, rows [][]string) ([]byte, error)
}

// TrainingJob carries the parameters used to create an instance. It is never
// persisted on its own.
type TrainingJob struct {
	Name     string
	Language string
	Data     []byte
}
