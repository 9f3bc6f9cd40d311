package job

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/ragkb/ragkb/internal/model"
	"github.com/ragkb/ragkb/internal/rag"
	"github.com/ragkb/ragkb/internal/repo"
)

// ErrQueueFull is returned when the indexing queue cannot take more work.
var ErrQueueFull = errors.New("indexing queue is full")

// IndexWorker serializes document indexing on a single goroutine. Enqueueing
// creates a PENDING job row whose task id callers can poll; the worker flips
// job and document status together as the run progresses.
type IndexWorker struct {
	indexer *rag.Indexer
	docs    *repo.DocumentRepo
	jobs    *repo.IndexJobRepo

	queue chan int64
	wg    sync.WaitGroup
	once  sync.Once
}

func NewIndexWorker(indexer *rag.Indexer, docs *repo.DocumentRepo, jobs *repo.IndexJobRepo, queueSize int) *IndexWorker {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &IndexWorker{
		indexer: indexer,
		docs:    docs,
		jobs:    jobs,
		queue:   make(chan int64, queueSize),
	}
}

func (w *IndexWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case jobID, ok := <-w.queue:
				if !ok {
					return
				}
				w.process(ctx, jobID)
			}
		}
	}()
}

// Stop closes the queue and waits for the in-flight job to finish.
func (w *IndexWorker) Stop() {
	w.once.Do(func() {
		close(w.queue)
	})
	w.wg.Wait()
}

// Enqueue creates a pending job for the document and hands it to the worker.
// The document flips to INDEXING immediately so its status is honest while
// the job waits in the queue.
func (w *IndexWorker) Enqueue(ctx context.Context, doc *model.Document) (*model.IndexJob, error) {
	taskID, err := newTaskID()
	if err != nil {
		return nil, err
	}
	job := &model.IndexJob{
		DocumentID: doc.ID,
		Status:     model.IndexJobStatusPending,
		TaskID:     taskID,
		Ctime:      time.Now().Unix(),
	}
	if err := w.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	if err := w.docs.SetStatus(ctx, doc.ID, model.DocumentStatusIndexing, ""); err != nil {
		return nil, err
	}
	select {
	case w.queue <- job.ID:
		return job, nil
	default:
		failMsg := "indexing queue is full"
		if err := w.jobs.MarkFinished(ctx, job.ID, model.IndexJobStatusFailed, failMsg); err != nil {
			logutil.GetLogger(ctx).Error("failed to fail queued job", zap.Int64("job_id", job.ID), zap.Error(err))
		}
		if err := w.docs.SetStatus(ctx, doc.ID, model.DocumentStatusFailed, failMsg); err != nil {
			logutil.GetLogger(ctx).Error("failed to mark document failed", zap.Int64("doc_id", doc.ID), zap.Error(err))
		}
		return nil, ErrQueueFull
	}
}

func (w *IndexWorker) process(ctx context.Context, jobID int64) {
	logger := logutil.GetLogger(ctx).With(zap.Int64("job_id", jobID))
	job, err := w.jobs.GetByID(ctx, jobID)
	if err != nil {
		logger.Error("failed to load index job", zap.Error(err))
		return
	}
	if err := w.jobs.MarkRunning(ctx, job.ID); err != nil {
		logger.Error("failed to mark job running", zap.Error(err))
		return
	}

	doc, err := w.docs.GetByID(ctx, job.DocumentID)
	if err != nil {
		w.finish(ctx, job, doc, err)
		return
	}
	_, err = w.indexer.Index(ctx, doc)
	w.finish(ctx, job, doc, err)
}

func (w *IndexWorker) finish(ctx context.Context, job *model.IndexJob, doc *model.Document, runErr error) {
	logger := logutil.GetLogger(ctx).With(zap.Int64("job_id", job.ID), zap.Int64("doc_id", job.DocumentID))
	if runErr == nil {
		if err := w.jobs.MarkFinished(ctx, job.ID, model.IndexJobStatusDone, ""); err != nil {
			logger.Error("failed to mark job done", zap.Error(err))
		}
		return
	}
	logger.Error("indexing failed", zap.Error(runErr))
	if err := w.jobs.MarkFinished(ctx, job.ID, model.IndexJobStatusFailed, runErr.Error()); err != nil {
		logger.Error("failed to mark job failed", zap.Error(err))
	}
	if doc != nil {
		if err := w.docs.SetStatus(ctx, doc.ID, model.DocumentStatusFailed, runErr.Error()); err != nil {
			logger.Error("failed to mark document failed", zap.Error(err))
		}
	}
}

func newTaskID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
