package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-mms-backend/internal/clients/imagegen"
	"github.com/tbourn/go-mms-backend/internal/clients/twilio"
	"github.com/tbourn/go-mms-backend/internal/config"
	httpapi "github.com/tbourn/go-mms-backend/internal/http"
	"github.com/tbourn/go-mms-backend/internal/media"
	"github.com/tbourn/go-mms-backend/internal/observability"
	"github.com/tbourn/go-mms-backend/internal/repo"
	"github.com/tbourn/go-mms-backend/internal/store/redisstore"
)

const shutdownGrace = 15 * time.Second

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = ":" + cfg.Port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default \":$PORT\")")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, addr string) error {
	log.Info().Str("version", version).Msg(cfg.String())

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.Open(cfg.DBDriver, cfg.DBPath, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if err := repo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	ext, closeExt, err := externals(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeExt()

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, ext, cfg)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(sctx)
}

// externals builds the provider clients and stores. Missing credentials
// degrade to stand-ins so the server still starts: the generator reports
// itself unavailable and the gateway either logs (debug) or refuses.
func externals(ctx context.Context, cfg config.Config) (httpapi.External, func(), error) {
	var ext httpapi.External
	closer := func() {}

	if cfg.Media.RedisURL != "" {
		rdb, err := redisstore.Connect(ctx, cfg.Media.RedisURL)
		if err != nil {
			return ext, closer, fmt.Errorf("redis: %w", err)
		}
		closer = func() { _ = rdb.Close() }
		ext.Media = redisstore.NewMediaStore(rdb)
		ext.OTP = redisstore.NewOTPStore(rdb, cfg.Auth.OTPAttempts)
	} else {
		ext.Media = media.NewMemoryStore()
	}

	switch {
	case cfg.ImageGen.SimulateFailure:
		ext.Generator = imagegen.Unavailable{Reason: "simulated failure"}
	case cfg.ImageGen.APIKey == "":
		ext.Generator = imagegen.Unavailable{Reason: "OPENAI_API_KEY not set"}
	default:
		gen, err := imagegen.New(imagegen.Config{
			APIKey:     cfg.ImageGen.APIKey,
			BaseURL:    cfg.ImageGen.BaseURL,
			Model:      cfg.ImageGen.Model,
			Size:       cfg.ImageGen.Size,
			Timeout:    cfg.ImageGen.Timeout,
			MaxRetries: cfg.ImageGen.MaxRetries,
		})
		if err != nil {
			return ext, closer, fmt.Errorf("imagegen: %w", err)
		}
		ext.Generator = gen
	}

	switch {
	case cfg.Twilio.AccountSID != "":
		client, err := twilio.New(twilio.Config{
			AccountSID: cfg.Twilio.AccountSID,
			AuthToken:  cfg.Twilio.AuthToken,
			FromNumber: cfg.Twilio.FromNumber,
			BaseURL:    cfg.Twilio.BaseURL,
			Timeout:    cfg.Twilio.Timeout,
			MaxRetries: cfg.Twilio.MaxRetries,
		})
		if err != nil {
			return ext, closer, fmt.Errorf("twilio: %w", err)
		}
		ext.Gateway = &twilio.Gateway{
			Sender:        client,
			Media:         ext.Media,
			PublicBaseURL: cfg.Media.PublicBaseURL,
			MediaTTL:      cfg.Media.TTL,
		}
	case cfg.GinMode == gin.DebugMode:
		log.Warn().Msg("twilio not configured; messages are logged, not sent")
		ext.Gateway = twilio.LogOnly{Log: log.Logger}
	default:
		ext.Gateway = twilio.Disabled{}
	}

	return ext, closer, nil
}
