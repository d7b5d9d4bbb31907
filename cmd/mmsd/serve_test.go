package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-mms-backend/internal/clients/imagegen"
	"github.com/tbourn/go-mms-backend/internal/clients/twilio"
	"github.com/tbourn/go-mms-backend/internal/config"
	"github.com/tbourn/go-mms-backend/internal/media"
	"github.com/tbourn/go-mms-backend/internal/store/redisstore"
)

func baseConfig() config.Config {
	return config.Config{
		GinMode: gin.ReleaseMode,
		Auth:    config.AuthConfig{OTPAttempts: 5},
		Media:   config.MediaConfig{TTL: time.Hour, PublicBaseURL: "https://mms.example.com"},
	}
}

func TestExternals_Defaults(t *testing.T) {
	ext, closeExt, err := externals(context.Background(), baseConfig())
	if err != nil {
		t.Fatalf("externals: %v", err)
	}
	defer closeExt()

	if _, ok := ext.Media.(*media.MemoryStore); !ok {
		t.Fatalf("media=%T", ext.Media)
	}
	if ext.OTP != nil {
		t.Fatalf("OTP store should fall back to the database, got %T", ext.OTP)
	}
	if _, err := ext.Generator.Generate(context.Background(), "x"); !errors.Is(err, imagegen.ErrUnavailable) {
		t.Fatalf("generator err=%v", err)
	}
	if _, ok := ext.Gateway.(twilio.Disabled); !ok {
		t.Fatalf("gateway=%T", ext.Gateway)
	}
}

func TestExternals_DebugLogsMessages(t *testing.T) {
	cfg := baseConfig()
	cfg.GinMode = gin.DebugMode
	ext, closeExt, err := externals(context.Background(), cfg)
	if err != nil {
		t.Fatalf("externals: %v", err)
	}
	defer closeExt()
	if _, ok := ext.Gateway.(twilio.LogOnly); !ok {
		t.Fatalf("gateway=%T", ext.Gateway)
	}
}

func TestExternals_ConfiguredProviders(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := baseConfig()
	cfg.Media.RedisURL = "redis://" + mr.Addr()
	cfg.ImageGen = config.ImageGenConfig{APIKey: "sk-test", Model: "gpt-image-1"}
	cfg.Twilio = config.TwilioConfig{AccountSID: "AC1", AuthToken: "tok", FromNumber: "+15550000000"}

	ext, closeExt, err := externals(context.Background(), cfg)
	if err != nil {
		t.Fatalf("externals: %v", err)
	}
	defer closeExt()

	if _, ok := ext.Media.(*redisstore.MediaStore); !ok {
		t.Fatalf("media=%T", ext.Media)
	}
	if _, ok := ext.OTP.(*redisstore.OTPStore); !ok {
		t.Fatalf("otp=%T", ext.OTP)
	}
	if _, ok := ext.Generator.(*imagegen.Client); !ok {
		t.Fatalf("generator=%T", ext.Generator)
	}
	gw, ok := ext.Gateway.(*twilio.Gateway)
	if !ok || gw.PublicBaseURL != "https://mms.example.com" || gw.Media != ext.Media {
		t.Fatalf("gateway=%#v", ext.Gateway)
	}
}

func TestExternals_SimulatedFailureWins(t *testing.T) {
	cfg := baseConfig()
	cfg.ImageGen = config.ImageGenConfig{APIKey: "sk-test", Model: "m", SimulateFailure: true}
	ext, closeExt, err := externals(context.Background(), cfg)
	if err != nil {
		t.Fatalf("externals: %v", err)
	}
	defer closeExt()
	if _, ok := ext.Generator.(imagegen.Unavailable); !ok {
		t.Fatalf("generator=%T", ext.Generator)
	}
}

func TestExternals_BadRedis(t *testing.T) {
	cfg := baseConfig()
	cfg.Media.RedisURL = "not a url"
	if _, _, err := externals(context.Background(), cfg); err == nil {
		t.Fatal("expected error")
	}
}
