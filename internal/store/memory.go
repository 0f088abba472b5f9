package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]Document)}
}

func (m *MemoryStore) Get(ctx context.Context, id string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok || d.Deleted {
		return Document{}, ErrNotFound
	}
	return cloneDoc(d), nil
}

func (m *MemoryStore) Put(ctx context.Context, doc Document) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.docs[doc.ID]
	if (ok && cur.Rev != doc.Rev) || (!ok && doc.Rev != 0) {
		return 0, ErrConflict
	}
	doc = cloneDoc(doc)
	doc.Rev++
	m.docs[doc.ID] = doc
	return doc.Rev, nil
}

func (m *MemoryStore) rev(ctx context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[id].Rev, nil
}

// Len reports the number of stored documents, deleted ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

func cloneDoc(d Document) Document {
	if d.Body != nil {
		d.Body = append([]byte(nil), d.Body...)
	}
	return d
}
