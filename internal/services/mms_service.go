// Package services – MMSService
//
// This file implements the MMS request workflow: resolve the caller, validate
// the description, enforce the per-user and global daily quotas, generate an
// image, deliver it to the caller's phone and record the attempt in history.
//
// Every request ends in exactly one Outcome. Expected failures are values,
// not errors; store failures and panics collapse to Internal. Secondary
// failures (history writes after generation, releasing a global slot) are
// logged and never change the outcome.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-mms-backend/internal/domain"
	"github.com/tbourn/go-mms-backend/internal/observability"
)

// DayLayout is the UTC calendar-day key used by the global counter.
const DayLayout = "2006-01-02"

// Limits holds the workflow's numeric guards.
type Limits struct {
	UserDaily      int
	GlobalDaily    int
	PromptMaxChars int
}

// DefaultLimits returns the production limits: 5 per user, 20 overall and
// 300 characters per description.
func DefaultLimits() Limits {
	return Limits{UserDaily: 5, GlobalDaily: 20, PromptMaxChars: 300}
}

// MMSService runs the MMS request workflow over injected capabilities.
type MMSService struct {
	Identity  IdentityResolver
	History   HistoryLog
	Global    GlobalQuota
	Profiles  ProfileLookup
	Generator ImageGenerator
	Gateway   DeliveryGateway

	Limits Limits
	// Caption is sent as the message body next to the image. Optional.
	Caption string
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// NewMMSService wires a workflow with default limits.
func NewMMSService(id IdentityResolver, h HistoryLog, g GlobalQuota, p ProfileLookup, gen ImageGenerator, gw DeliveryGateway) *MMSService {
	return &MMSService{
		Identity:  id,
		History:   h,
		Global:    g,
		Profiles:  p,
		Generator: gen,
		Gateway:   gw,
		Limits:    DefaultLimits(),
		Caption:   "Your MMS image is here!",
	}
}

func (s *MMSService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Submit runs one request end to end and returns its outcome.
func (s *MMSService) Submit(ctx context.Context, credential, prompt string) (out Outcome) {
	tr := otel.Tracer("services/MMSService")
	ctx, span := tr.Start(ctx, "Submit")
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			logger(ctx).Error().Interface("panic", rec).Msg("mms workflow panicked")
			span.SetStatus(codes.Error, "panic")
			out = Internal()
		}
		span.SetAttributes(attribute.String("mms.outcome", out.String()))
		observability.ObserveOutcome(out.String())
	}()

	out = s.submit(ctx, span, credential, prompt)
	return out
}

func (s *MMSService) submit(ctx context.Context, span trace.Span, credential, prompt string) Outcome {
	lg := logger(ctx)

	// 1. identity
	userID, err := s.Identity.Resolve(ctx, credential)
	if err != nil {
		if !errors.Is(err, ErrUnauthorized) {
			lg.Warn().Err(err).Msg("identity resolution failed")
		}
		return Unauthorized()
	}
	span.SetAttributes(attribute.String("user.id", userID))
	l := lg.With().Str("user_id", userID).Logger()
	lg = &l

	// 2-3. description
	prompt, reason := ValidatePrompt(prompt, s.Limits.PromptMaxChars)
	if reason != "" {
		return InvalidInput(reason)
	}

	// 4. per-user quota over the current UTC day
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	n, err := s.History.CountSince(ctx, userID, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		lg.Error().Err(err).Msg("count user history")
		return Internal()
	}
	if n >= int64(s.Limits.UserDaily) {
		return QuotaExceeded(ScopeUser)
	}

	// 5. global quota, reserved atomically
	day := dayStart.Format(DayLayout)
	ok, err := s.Global.Reserve(ctx, day, s.Limits.GlobalDaily)
	if err != nil {
		lg.Error().Err(err).Msg("reserve global slot")
		return Internal()
	}
	if !ok {
		return QuotaExceeded(ScopeGlobal)
	}

	rec := &domain.HistoryRecord{UserID: userID, Prompt: prompt, CreatedAt: now}

	// generation
	start := time.Now()
	img, err := s.Generator.Generate(ctx, prompt)
	observability.ObserveGeneration(time.Since(start), err == nil && len(img.Bytes) > 0)
	if err == nil && len(img.Bytes) == 0 {
		err = errors.New("generator returned no image data")
	}
	if err != nil {
		lg.Error().Err(err).Msg("image generation failed")
		span.RecordError(err)
		s.release(ctx, lg, day)
		rec.Status = domain.HistoryGenerationFailed
		rec.ImageData = []byte{}
		s.record(ctx, lg, rec)
		return GenerationFailed(rec.ID)
	}

	// delivery
	rec.ImageData = img.Bytes
	if img.ModelInfo != "" {
		mi := img.ModelInfo
		rec.ModelInfo = &mi
	}
	if err := s.deliver(ctx, userID, img); err != nil {
		lg.Error().Err(err).Msg("mms delivery failed")
		span.RecordError(err)
		s.release(ctx, lg, day)
		rec.Status = domain.HistorySendFailed
		s.record(ctx, lg, rec)
		return DeliveryFailed(rec.ID)
	}

	// finalization
	rec.Status = domain.HistorySuccess
	s.record(ctx, lg, rec)
	lg.Info().Str("history_id", rec.ID).Msg("mms sent")
	return Accepted(rec.ID)
}

func (s *MMSService) deliver(ctx context.Context, userID string, img domain.GeneratedImage) error {
	phone, err := s.Profiles.PhoneNumber(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve phone: %w", err)
	}
	if phone == "" {
		return ErrPhoneMissing
	}
	return s.Gateway.SendMMS(ctx, phone, img, s.Caption)
}

// record writes rec and only logs on failure.
func (s *MMSService) record(ctx context.Context, lg *zerolog.Logger, rec *domain.HistoryRecord) {
	if err := s.History.Append(ctx, rec); err != nil {
		lg.Error().Err(err).Str("status", string(rec.Status)).Msg("write mms history")
	}
}

// release returns a reserved global slot; the counter measures sent messages.
func (s *MMSService) release(ctx context.Context, lg *zerolog.Logger, day string) {
	if err := s.Global.Release(ctx, day); err != nil {
		lg.Error().Err(err).Str("day", day).Msg("release global slot")
	}
}

// logger returns the request logger carried by ctx, or the global logger.
func logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}
