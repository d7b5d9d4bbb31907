package media

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore_PutGetExpire(t *testing.T) {
	s := NewMemoryStore()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return now }
	ctx := context.Background()

	data := []byte{0x89, 'P', 'N', 'G'}
	id, err := s.Put(ctx, data, "image/png", time.Minute)
	if err != nil || len(id) != 36 {
		t.Fatalf("put: id=%q err=%v", id, err)
	}
	data[0] = 0 // caller mutation must not leak in

	obj, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if obj.ContentType != "image/png" || obj.Data[0] != 0x89 {
		t.Fatalf("unexpected object: %+v", obj)
	}

	now = now.Add(time.Minute)
	if _, err := s.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired get: want ErrNotFound, got %v", err)
	}
	if _, err := s.Get(ctx, "unknown"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown get: want ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_PutCollectsExpired(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	s.Now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.Put(ctx, []byte("x"), "image/png", time.Second); err != nil {
			t.Fatal(err)
		}
	}
	now = now.Add(2 * time.Second)
	if _, err := s.Put(ctx, []byte("y"), "image/png", time.Second); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 1 {
		t.Fatalf("expired entries not collected: len=%d", s.Len())
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	id, err := s.Put(ctx, []byte("x"), "image/png", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after delete: %v", err)
	}
	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestNewID_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id, err := NewID()
		if err != nil {
			t.Fatal(err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
