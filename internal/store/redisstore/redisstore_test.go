package redisstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/tbourn/go-mms-backend/internal/domain"
	"github.com/tbourn/go-mms-backend/internal/media"
)

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb, err := Connect(context.Background(), "redis://"+mr.Addr())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestConnect_Errors(t *testing.T) {
	if _, err := Connect(context.Background(), "not-a-url"); err == nil {
		t.Fatalf("expected parse error")
	}
	mr, _ := miniredis.Run()
	addr := mr.Addr()
	mr.Close()
	if _, err := Connect(context.Background(), "redis://"+addr); err == nil {
		t.Fatalf("expected ping error against closed server")
	}
}

func TestMediaStore_RoundTripAndTTL(t *testing.T) {
	mr, rdb := setupMiniredis(t)
	s := NewMediaStore(rdb)
	ctx := context.Background()

	png := []byte{0x89, 'P', 'N', 'G', 0x00, 0xff}
	id, err := s.Put(ctx, png, "image/png", time.Minute)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	obj, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(obj.Data) != string(png) || obj.ContentType != "image/png" {
		t.Fatalf("round trip mismatch: %+v", obj)
	}
	if ttl := mr.TTL("mms:media:" + id); ttl != time.Minute {
		t.Fatalf("ttl = %v", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := s.Get(ctx, id); !errors.Is(err, media.ErrNotFound) {
		t.Fatalf("after ttl: want ErrNotFound, got %v", err)
	}
}

func TestMediaStore_Delete(t *testing.T) {
	mr, rdb := setupMiniredis(t)
	s := NewMediaStore(rdb)
	ctx := context.Background()

	id, err := s.Put(ctx, []byte("png"), "image/png", time.Minute)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("mms:media:" + id) {
		t.Fatalf("key survived delete")
	}
	if _, err := s.Get(ctx, id); !errors.Is(err, media.ErrNotFound) {
		t.Fatalf("get after delete: %v", err)
	}
	if err := s.Delete(ctx, "unknown"); err != nil {
		t.Fatalf("unknown delete: %v", err)
	}
}

func TestOTPStore_CheckConsumes(t *testing.T) {
	_, rdb := setupMiniredis(t)
	s := NewOTPStore(rdb, 3)
	ctx := context.Background()

	if err := s.Put(ctx, "+1", domain.OTPLogin, "h1", time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}
	if ok, _ := s.Check(ctx, "+1", domain.OTPSignup, "h1"); ok {
		t.Fatalf("wrong purpose accepted")
	}
	ok, err := s.Check(ctx, "+1", domain.OTPLogin, "h1")
	if err != nil || !ok {
		t.Fatalf("check: ok=%v err=%v", ok, err)
	}
	if ok, _ := s.Check(ctx, "+1", domain.OTPLogin, "h1"); ok {
		t.Fatalf("code reused")
	}
}

func TestOTPStore_AttemptsAndExpiry(t *testing.T) {
	mr, rdb := setupMiniredis(t)
	s := NewOTPStore(rdb, 2)
	ctx := context.Background()

	_ = s.Put(ctx, "+1", domain.OTPLogin, "good", time.Minute)
	for i := 0; i < 2; i++ {
		if ok, err := s.Check(ctx, "+1", domain.OTPLogin, "bad"); ok || err != nil {
			t.Fatalf("bad attempt: ok=%v err=%v", ok, err)
		}
	}
	if ok, _ := s.Check(ctx, "+1", domain.OTPLogin, "good"); ok {
		t.Fatalf("accepted after attempts exhausted")
	}

	_ = s.Put(ctx, "+1", domain.OTPLogin, "again", time.Minute)
	mr.FastForward(2 * time.Minute)
	if ok, _ := s.Check(ctx, "+1", domain.OTPLogin, "again"); ok {
		t.Fatalf("expired code accepted")
	}
}
