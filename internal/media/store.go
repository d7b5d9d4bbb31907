// Package media stages generated images under short-lived public IDs so the
// MMS gateway can fetch them by URL.
package media

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned for unknown or expired objects.
var ErrNotFound = errors.New("media not found")

// Object is a staged blob.
type Object struct {
	Data        []byte
	ContentType string
}

// Store keeps objects for a limited time.
type Store interface {
	Put(ctx context.Context, data []byte, contentType string, ttl time.Duration) (string, error)
	Get(ctx context.Context, id string) (Object, error)
	Delete(ctx context.Context, id string) error
}

// NewID returns an unguessable identifier for a staged object.
func NewID() (string, error) {
	var b [18]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

type entry struct {
	obj     Object
	expires time.Time
}

// MemoryStore is an in-process Store used when no Redis is configured.
// It only works for single-instance deployments.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]entry
	Now   func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]entry), Now: time.Now}
}

// Put stores a copy of data and returns its ID.
func (s *MemoryStore) Put(_ context.Context, data []byte, contentType string, ttl time.Duration) (string, error) {
	id, err := NewID()
	if err != nil {
		return "", err
	}
	cp := make([]byte, len(data))
	copy(cp, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.Now()
	for k, e := range s.items {
		if !now.Before(e.expires) {
			delete(s.items, k)
		}
	}
	s.items[id] = entry{obj: Object{Data: cp, ContentType: contentType}, expires: now.Add(ttl)}
	return id, nil
}

// Get returns the object or ErrNotFound once it expired.
func (s *MemoryStore) Get(_ context.Context, id string) (Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return Object{}, ErrNotFound
	}
	if !s.Now().Before(e.expires) {
		delete(s.items, id)
		return Object{}, ErrNotFound
	}
	return e.obj, nil
}

// Delete drops the object. Unknown IDs are not an error.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

// Len reports how many entries are held, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
