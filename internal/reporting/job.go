package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dariomontes/vendortax-backend/pkg/config"
	"github.com/dariomontes/vendortax-backend/pkg/db/models"
	"github.com/dariomontes/vendortax-backend/pkg/logger"
)

// JobName identifies the enumeration job in cron logs and metrics.
const JobName = "refund-reporting-enumeration"

// ReportJob is the message a queued refund sends to the upload worker.
// APITokenRef names the provider credential the upload should use; the
// secret itself never rides on the queue.
type ReportJob struct {
	RefundID    uuid.UUID `json:"refund_id"`
	APITokenRef string    `json:"api_token_ref,omitempty"`
}

type candidateRepo interface {
	ListCandidates(ctx context.Context, now time.Time, maxAttempts int, cooldown time.Duration, limit int) ([]models.Refund, error)
	FailExhaustedQueued(ctx context.Context, now time.Time, maxAttempts int, cooldown time.Duration) error
	MarkSkipped(ctx context.Context, id uuid.UUID) error
	MarkQueued(ctx context.Context, id uuid.UUID) (bool, error)
}

type jobPublisher interface {
	PublishReportJob(ctx context.Context, job ReportJob) error
}

type reportingSettings interface {
	ReportingEnabled(ctx context.Context) (bool, error)
	ReportingStartDate(ctx context.Context) (*time.Time, error)
}

// Job is the periodic trigger of the reporting queue: it enumerates
// candidate refunds, skips those behind the watermark, and queues the rest.
type Job struct {
	repo      candidateRepo
	publisher jobPublisher
	settings  reportingSettings
	cfg       config.ReportingConfig
	log       *logger.Logger
	now       func() time.Time
}

// NewJob builds the enumeration job.
func NewJob(repo candidateRepo, publisher jobPublisher, settings reportingSettings, cfg config.ReportingConfig, log *logger.Logger) (*Job, error) {
	if repo == nil {
		return nil, fmt.Errorf("reporting repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("job publisher required")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings reader required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Job{repo: repo, publisher: publisher, settings: settings, cfg: cfg, log: log, now: time.Now}, nil
}

// Name implements the cron Job interface.
func (j *Job) Name() string { return JobName }

// Run enumerates one batch of candidates. When the batch came back full,
// more work may remain: exactly one extra pass runs immediately, never a
// loop, so a single trigger can never monopolize the worker.
func (j *Job) Run(ctx context.Context) error {
	enabled, err := j.settings.ReportingEnabled(ctx)
	if err != nil {
		return err
	}
	if !enabled {
		j.log.Info(ctx, "refund reporting disabled, skipping enumeration")
		return nil
	}

	watermark, err := j.settings.ReportingStartDate(ctx)
	if err != nil {
		return err
	}

	queued, err := j.pass(ctx, watermark)
	if err != nil {
		return err
	}
	if queued == j.cfg.BatchSize {
		if _, err := j.pass(ctx, watermark); err != nil {
			return err
		}
	}
	return nil
}

// pass processes one bounded batch and returns how many candidates it saw.
func (j *Job) pass(ctx context.Context, watermark *time.Time) (int, error) {
	now := j.now()
	if err := j.repo.FailExhaustedQueued(ctx, now, j.cfg.MaxAttempts, j.cfg.RetryCooldown); err != nil {
		return 0, err
	}

	candidates, err := j.repo.ListCandidates(ctx, now, j.cfg.MaxAttempts, j.cfg.RetryCooldown, j.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	for _, refund := range candidates {
		refundCtx := j.log.WithRefundID(ctx, refund.ID.String())

		if watermark != nil && refund.TransactionDate.Before(*watermark) {
			if err := j.repo.MarkSkipped(refundCtx, refund.ID); err != nil {
				return len(candidates), err
			}
			continue
		}

		leased, err := j.repo.MarkQueued(refundCtx, refund.ID)
		if err != nil {
			return len(candidates), err
		}
		if !leased {
			continue
		}
		if err := j.publisher.PublishReportJob(refundCtx, ReportJob{RefundID: refund.ID, APITokenRef: j.cfg.APITokenRef}); err != nil {
			// the row stays queued; the next trigger re-offers it
			j.log.Error(refundCtx, "publishing report job failed", err)
		}
	}
	return len(candidates), nil
}
