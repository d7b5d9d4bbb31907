package repo

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCreateProfile_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p, err := CreateProfile(ctx, db, "a@x.io", "+48111222333", "hash")
	if err != nil || p.ID == "" {
		t.Fatalf("create: %+v %v", p, err)
	}
	if _, err := CreateProfile(ctx, db, "a@x.io", "+48999", "hash"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}
}

func TestGetProfile_Lookups(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p, _ := CreateProfile(ctx, db, "a@x.io", "+48111222333", "hash")

	if got, err := GetProfile(ctx, db, p.ID); err != nil || got.Email != "a@x.io" {
		t.Fatalf("by id: %+v %v", got, err)
	}
	if got, err := GetProfileByEmail(ctx, db, "a@x.io"); err != nil || got.ID != p.ID {
		t.Fatalf("by email: %+v %v", got, err)
	}
	if got, err := GetProfileByPhone(ctx, db, "+48111222333"); err != nil || got.ID != p.ID {
		t.Fatalf("by phone: %+v %v", got, err)
	}
	if _, err := GetProfile(ctx, db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing id: %v", err)
	}
	if _, err := GetProfileByPhone(ctx, db, "+1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing phone: %v", err)
	}
}

func TestUpdateUsername_TakenAndMissing(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a, _ := CreateProfile(ctx, db, "a@x.io", "+1", "h")
	b, _ := CreateProfile(ctx, db, "b@x.io", "+2", "h")

	if err := UpdateUsername(ctx, db, a.ID, "neo"); err != nil {
		t.Fatalf("update a: %v", err)
	}
	if err := UpdateUsername(ctx, db, b.ID, "neo"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}
	// Re-saving your own name is fine.
	if err := UpdateUsername(ctx, db, a.ID, "neo"); err != nil {
		t.Fatalf("self update: %v", err)
	}
	if err := UpdateUsername(ctx, db, "ghost", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	got, _ := GetProfile(ctx, db, a.ID)
	if got.Username == nil || *got.Username != "neo" {
		t.Fatalf("username not stored: %+v", got)
	}
}

func TestConfirmPhone_OnlyFirstStampKept(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p, _ := CreateProfile(ctx, db, "a@x.io", "+1", "h")

	first := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	if err := ConfirmPhone(ctx, db, p.ID, first); err != nil {
		t.Fatal(err)
	}
	if err := ConfirmPhone(ctx, db, p.ID, first.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	got, _ := GetProfile(ctx, db, p.ID)
	if got.PhoneConfirmedAt == nil || !got.PhoneConfirmedAt.Equal(first) {
		t.Fatalf("confirmed at = %v; want %v", got.PhoneConfirmedAt, first)
	}
}
