package job

import (
	"context"
	"time"

	"github.com/ragkb/ragkb/internal/repo"
)

type IndexJobCleanupJob struct {
	jobs   *repo.IndexJobRepo
	maxAge time.Duration
}

func NewIndexJobCleanupJob(jobs *repo.IndexJobRepo, maxAge time.Duration) *IndexJobCleanupJob {
	return &IndexJobCleanupJob{jobs: jobs, maxAge: maxAge}
}

func (j *IndexJobCleanupJob) Name() string {
	return "index_job_cleanup"
}

func (j *IndexJobCleanupJob) Run(ctx context.Context) error {
	if j.jobs == nil {
		return nil
	}
	maxAge := j.maxAge
	if maxAge <= 0 {
		maxAge = 14 * 24 * time.Hour
	}
	cutoff := time.Now().Add(-maxAge).Unix()
	_, err := j.jobs.DeleteFinishedBefore(ctx, cutoff)
	return err
}
