package services

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-mms-backend/internal/domain"
	"github.com/tbourn/go-mms-backend/internal/repo"
	"github.com/tbourn/go-mms-backend/internal/utils"
)

// Gallery page sizes.
const (
	DefaultHistoryPage = 12
	MaxHistoryPage     = 48
)

// HistoryService exposes a user's MMS history. It also implements
// HistoryLog for the MMS workflow.
type HistoryService struct {
	DB *gorm.DB
}

// NewHistoryService constructs a HistoryService.
func NewHistoryService(db *gorm.DB) *HistoryService {
	return &HistoryService{DB: db}
}

// ListPage returns up to limit records of userID starting at offset, newest
// first, without image bytes. limit is clamped to [1, MaxHistoryPage] with
// DefaultHistoryPage for non-positive values.
func (s *HistoryService) ListPage(ctx context.Context, userID string, limit, offset int) ([]domain.HistoryRecord, int, int, error) {
	limit, offset = utils.ClampPage(limit, offset, DefaultHistoryPage, MaxHistoryPage)

	tr := otel.Tracer("services/HistoryService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("limit", limit),
			attribute.Int("offset", offset),
		),
	)
	defer span.End()

	items, err := repo.ListHistoryPage(ctx, s.DB, userID, offset, limit)
	if err != nil {
		return nil, limit, offset, err
	}
	return items, limit, offset, nil
}

// Image returns the record id owned by userID with its bytes. Unknown,
// foreign and image-less records all yield ErrImageNotFound.
func (s *HistoryService) Image(ctx context.Context, userID, id string) (*domain.HistoryRecord, error) {
	tr := otel.Tracer("services/HistoryService")
	ctx, span := tr.Start(ctx, "Image", trace.WithAttributes(attribute.String("history.id", id)))
	defer span.End()

	rec, err := repo.GetHistoryImage(ctx, s.DB, userID, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrImageNotFound
	}
	if err != nil {
		return nil, err
	}
	if !rec.HasImage() {
		return nil, ErrImageNotFound
	}
	return rec, nil
}

// CountSince implements HistoryLog.
func (s *HistoryService) CountSince(ctx context.Context, userID string, from, to time.Time) (int64, error) {
	return repo.CountHistorySince(ctx, s.DB, userID, from, to)
}

// Append implements HistoryLog.
func (s *HistoryService) Append(ctx context.Context, rec *domain.HistoryRecord) error {
	return repo.CreateHistory(ctx, s.DB, rec)
}
