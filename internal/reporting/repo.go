package reporting

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dariomontes/vendortax-backend/pkg/db/models"
	"github.com/dariomontes/vendortax-backend/pkg/enums"
	pkgerrors "github.com/dariomontes/vendortax-backend/pkg/errors"
)

// Repository owns the reporting state machine columns on refund rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Get loads one refund row.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Refund, error) {
	var refund models.Refund
	err := r.db.WithContext(ctx).First(&refund, "id = ?", id).Error
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "refund not found")
	}
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

// ListCandidates returns the next bounded batch of refunds eligible for
// upload: unreported rows, failed rows whose attempt budget and cooldown
// allow a retry, and queued rows stuck long enough to be considered
// abandoned by an interrupted run.
func (r *Repository) ListCandidates(ctx context.Context, now time.Time, maxAttempts int, cooldown time.Duration, limit int) ([]models.Refund, error) {
	cutoff := now.Add(-cooldown)

	var refunds []models.Refund
	err := r.db.WithContext(ctx).
		Where("report_status = ?", enums.ReportStatusUnset).
		Or("report_status = ? AND report_attempts < ? AND (last_report_at IS NULL OR last_report_at <= ?)",
			enums.ReportStatusFailed, maxAttempts, cutoff).
		Or("report_status = ? AND report_attempts < ? AND updated_at <= ?",
			enums.ReportStatusQueued, maxAttempts, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&refunds).Error
	if err != nil {
		return nil, err
	}
	return refunds, nil
}

// FailExhaustedQueued times out queued rows whose attempt budget is spent, so
// an interrupted run can never leave them stuck forever.
func (r *Repository) FailExhaustedQueued(ctx context.Context, now time.Time, maxAttempts int, cooldown time.Duration) error {
	reason := "attempt budget exhausted while queued"
	return r.db.WithContext(ctx).Model(&models.Refund{}).
		Where("report_status = ? AND report_attempts >= ? AND updated_at <= ?",
			enums.ReportStatusQueued, maxAttempts, now.Add(-cooldown)).
		Updates(map[string]any{
			"report_status": enums.ReportStatusFailed,
			"report_error":  reason,
		}).Error
}

// MarkSkipped moves an unreported refund straight to the terminal skipped
// state (it predates the reporting watermark).
func (r *Repository) MarkSkipped(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Refund{}).
		Where("id = ? AND report_status = ?", id, enums.ReportStatusUnset).
		Update("report_status", enums.ReportStatusSkipped).Error
}

// MarkQueued leases the refund for one upload attempt. Returns false when the
// row was not in a queueable state, which means another run already took it.
func (r *Repository) MarkQueued(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Refund{}).
		Where("id = ? AND report_status IN ?", id, []enums.ReportStatus{
			enums.ReportStatusUnset, enums.ReportStatusFailed, enums.ReportStatusQueued,
		}).
		Update("report_status", enums.ReportStatusQueued)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// BeginAttempt increments the attempt counter and stamps the attempt time
// before any network call, so a crash mid-upload still consumed an attempt.
func (r *Repository) BeginAttempt(ctx context.Context, id uuid.UUID, now time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Refund{}).
		Where("id = ? AND report_status = ?", id, enums.ReportStatusQueued).
		Updates(map[string]any{
			"report_attempts": gorm.Expr("report_attempts + 1"),
			"last_report_at":  now,
		}).Error
}

// MarkSucceeded records a completed upload. succeeded is terminal: the guard
// on the current status makes the transition one-way.
func (r *Repository) MarkSucceeded(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Refund{}).
		Where("id = ? AND report_status = ?", id, enums.ReportStatusQueued).
		Updates(map[string]any{
			"report_status": enums.ReportStatusSucceeded,
			"report_error":  nil,
		}).Error
}

// MarkFailed records a failed upload with its reason. The periodic trigger
// decides whether the row is ever offered again.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.db.WithContext(ctx).Model(&models.Refund{}).
		Where("id = ? AND report_status = ?", id, enums.ReportStatusQueued).
		Updates(map[string]any{
			"report_status": enums.ReportStatusFailed,
			"report_error":  reason,
		}).Error
}
