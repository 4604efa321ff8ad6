package reporting

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dariomontes/vendortax-backend/pkg/config"
	"github.com/dariomontes/vendortax-backend/pkg/db/models"
	"github.com/dariomontes/vendortax-backend/pkg/enums"
	"github.com/dariomontes/vendortax-backend/pkg/logger"
)

type fakeCandidateRepo struct {
	batches  [][]models.Refund
	passSeen int
	skipped  []uuid.UUID
	queued   []uuid.UUID
}

func (f *fakeCandidateRepo) ListCandidates(_ context.Context, _ time.Time, _ int, _ time.Duration, _ int) ([]models.Refund, error) {
	if f.passSeen >= len(f.batches) {
		return nil, nil
	}
	batch := f.batches[f.passSeen]
	f.passSeen++
	return batch, nil
}

func (f *fakeCandidateRepo) FailExhaustedQueued(context.Context, time.Time, int, time.Duration) error {
	return nil
}

func (f *fakeCandidateRepo) MarkSkipped(_ context.Context, id uuid.UUID) error {
	f.skipped = append(f.skipped, id)
	return nil
}

func (f *fakeCandidateRepo) MarkQueued(_ context.Context, id uuid.UUID) (bool, error) {
	f.queued = append(f.queued, id)
	return true, nil
}

type fakePublisher struct {
	jobs []ReportJob
}

func (f *fakePublisher) PublishReportJob(_ context.Context, job ReportJob) error {
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeSettings struct {
	enabled   bool
	watermark *time.Time
}

func (f *fakeSettings) ReportingEnabled(context.Context) (bool, error) {
	return f.enabled, nil
}

func (f *fakeSettings) ReportingStartDate(context.Context) (*time.Time, error) {
	return f.watermark, nil
}

func reportingConfig() config.ReportingConfig {
	return config.ReportingConfig{BatchSize: 2, MaxAttempts: 3, RetryCooldown: 24 * time.Hour, APITokenRef: "taxprovider"}
}

func candidate(at time.Time) models.Refund {
	return models.Refund{ID: uuid.New(), TransactionDate: at, ReportStatus: enums.ReportStatusUnset}
}

func newJob(t *testing.T, repo *fakeCandidateRepo, pub *fakePublisher, settings *fakeSettings) *Job {
	t.Helper()

	job, err := NewJob(repo, pub, settings, reportingConfig(), logger.New(logger.Options{ServiceName: "reporting-test"}))
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	return job
}

func TestJobQueuesCandidatesAndPublishes(t *testing.T) {
	now := time.Now().UTC()
	first := candidate(now)
	repo := &fakeCandidateRepo{batches: [][]models.Refund{{first}}}
	pub := &fakePublisher{}
	job := newJob(t, repo, pub, &fakeSettings{enabled: true})

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(repo.queued) != 1 || repo.queued[0] != first.ID {
		t.Fatalf("unexpected queued %v", repo.queued)
	}
	if len(pub.jobs) != 1 || pub.jobs[0].RefundID != first.ID {
		t.Fatalf("unexpected jobs %v", pub.jobs)
	}
	if pub.jobs[0].APITokenRef != "taxprovider" {
		t.Fatalf("job must name the provider credential, got %q", pub.jobs[0].APITokenRef)
	}
}

func TestJobSkipsRefundsBeforeWatermark(t *testing.T) {
	watermark := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	old := candidate(watermark.Add(-time.Hour))
	recent := candidate(watermark.Add(time.Hour))
	repo := &fakeCandidateRepo{batches: [][]models.Refund{{old, recent}}}
	pub := &fakePublisher{}
	job := newJob(t, repo, pub, &fakeSettings{enabled: true, watermark: &watermark})

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(repo.skipped) != 1 || repo.skipped[0] != old.ID {
		t.Fatalf("pre-watermark refund not skipped: %v", repo.skipped)
	}
	if len(repo.queued) != 1 || repo.queued[0] != recent.ID {
		t.Fatalf("post-watermark refund not queued: %v", repo.queued)
	}
}

func TestJobFullBatchTriggersExactlyOneExtraPass(t *testing.T) {
	now := time.Now().UTC()
	// three full batches remain; the job must stop after two passes
	repo := &fakeCandidateRepo{batches: [][]models.Refund{
		{candidate(now), candidate(now)},
		{candidate(now), candidate(now)},
		{candidate(now), candidate(now)},
	}}
	pub := &fakePublisher{}
	job := newJob(t, repo, pub, &fakeSettings{enabled: true})

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if repo.passSeen != 2 {
		t.Fatalf("expected exactly 2 passes, got %d", repo.passSeen)
	}
	if len(pub.jobs) != 4 {
		t.Fatalf("expected 4 published jobs, got %d", len(pub.jobs))
	}
}

func TestJobPartialBatchRunsOnePass(t *testing.T) {
	now := time.Now().UTC()
	repo := &fakeCandidateRepo{batches: [][]models.Refund{
		{candidate(now)},
		{candidate(now)},
	}}
	pub := &fakePublisher{}
	job := newJob(t, repo, pub, &fakeSettings{enabled: true})

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if repo.passSeen != 1 {
		t.Fatalf("partial batch must not trigger an extra pass, got %d passes", repo.passSeen)
	}
}

func TestJobDisabledReportingDoesNothing(t *testing.T) {
	repo := &fakeCandidateRepo{batches: [][]models.Refund{{candidate(time.Now())}}}
	pub := &fakePublisher{}
	job := newJob(t, repo, pub, &fakeSettings{enabled: false})

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if repo.passSeen != 0 || len(pub.jobs) != 0 {
		t.Fatalf("disabled reporting must not enumerate: passes=%d jobs=%d", repo.passSeen, len(pub.jobs))
	}
}
