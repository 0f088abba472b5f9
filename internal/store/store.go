// Package store persists small JSON documents keyed by id: the training data
// recorded for each launched instance and the launch claims that keep two
// managers from training the same name at once.
//
// Two implementations are provided: MemoryStore for tests and single-process
// deployments, and PGStore backed by a Postgres table.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a document does not exist or was deleted.
	ErrNotFound = errors.New("store: document not found")
	// ErrConflict is returned when a Put carries a stale revision.
	ErrConflict = errors.New("store: revision conflict")
)

// Document is a stored record. Rev is assigned by the store; a Put succeeds
// only if the caller's Rev matches the stored one (zero for a new document).
type Document struct {
	ID      string
	Rev     int64
	Kind    string
	Deleted bool
	Body    []byte
}

// Store is the document store capability set.
type Store interface {
	// Get returns the live document. Deleted documents read as ErrNotFound.
	Get(ctx context.Context, id string) (Document, error)
	// Put writes doc if doc.Rev matches the stored revision and returns the
	// new revision.
	Put(ctx context.Context, doc Document) (int64, error)
}

// CreateOrUpdate writes doc regardless of the stored revision, retrying once
// on a conflict with the revision it just read.
func CreateOrUpdate(ctx context.Context, s Store, doc Document) (int64, error) {
	for attempt := 0; ; attempt++ {
		rev, err := currentRev(ctx, s, doc.ID)
		if err != nil {
			return 0, err
		}
		doc.Rev = rev
		n, err := s.Put(ctx, doc)
		if errors.Is(err, ErrConflict) && attempt == 0 {
			continue
		}
		return n, err
	}
}

// currentRev reads the stored revision including deleted documents.
func currentRev(ctx context.Context, s Store, id string) (int64, error) {
	if r, ok := s.(revReader); ok {
		return r.rev(ctx, id)
	}
	d, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	return d.Rev, err
}

// revReader is implemented by stores that can report the revision of a
// deleted document.
type revReader interface {
	rev(ctx context.Context, id string) (int64, error)
}
