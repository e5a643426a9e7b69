package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/evora-events/backend/internal/models"
	"github.com/evora-events/backend/pkg/queue"
)

// Worker processes notification jobs: record a log row, send the email, mark
// the outcome.
type Worker struct {
	repo   *Repository
	sender Sender
	queue  *queue.Queue
	logger *zap.Logger
}

// NewWorker creates a notification worker.
func NewWorker(repo *Repository, sender Sender, q *queue.Queue, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{repo: repo, sender: sender, queue: q, logger: logger}
}

// Process executes one notification job.
func (w *Worker) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeNotification {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.NotificationPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	entry := &models.NotificationLog{
		WorkspaceID: payload.WorkspaceID,
		UserID:      payload.UserID,
		Kind:        payload.Kind,
		Recipient:   payload.Recipient,
		Subject:     payload.Subject,
		Status:      models.NotificationPending,
	}
	if err := w.repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("create log entry: %w", err)
	}

	if err := w.sender.Send(payload.Recipient, payload.Subject, payload.Body); err != nil {
		if markErr := w.repo.MarkFailed(ctx, entry.ID, err.Error()); markErr != nil {
			w.logger.Error("mark notification failed", zap.Error(markErr), zap.String("log_id", entry.ID.String()))
		}
		return fmt.Errorf("send: %w", err)
	}

	if err := w.repo.MarkSent(ctx, entry.ID, time.Now()); err != nil {
		w.logger.Error("mark notification sent", zap.Error(err), zap.String("log_id", entry.ID.String()))
	}

	w.logger.Info("notification sent",
		zap.String("kind", payload.Kind),
		zap.String("workspace_id", payload.WorkspaceID.String()),
		zap.String("recipient", payload.Recipient))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("notification worker stopping")
			return
		default:
		}

		job, _, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("notification worker stopping")
				return
			}
			w.logger.Warn("dequeue error", zap.Error(err))
			if !w.backoff(ctx) {
				return
			}
			continue
		}
		if job == nil {
			continue
		}

		w.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := w.Process(ctx, job); err != nil {
			w.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := w.queue.Retry(ctx, job); reErr != nil {
				w.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			if !w.backoff(ctx) {
				return
			}
			continue
		}
	}
}

// backoff waits out the retry delay, returning false when the context is
// cancelled first.
func (w *Worker) backoff(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		w.logger.Info("notification worker stopping")
		return false
	case <-time.After(queue.RetryBackoff):
		return true
	}
}
