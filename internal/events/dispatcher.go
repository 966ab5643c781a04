// Package events fans domain events out to interested side effects.
// Services publish after their own state change has committed; delivery
// happens on a background worker pool and never blocks the request path.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/idir-saidi/campus-records-api/internal/models"
	"github.com/idir-saidi/campus-records-api/pkg/jobs"
)

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

// Config tunes the dispatcher worker pool.
type Config struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// Dispatcher consumes domain events and materialises user notifications.
type Dispatcher struct {
	queue  *jobs.Queue
	store  notificationStore
	logger *zap.Logger
}

// NewDispatcher wires a dispatcher around an in-memory job queue.
func NewDispatcher(store notificationStore, logger *zap.Logger, cfg Config) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{store: store, logger: logger}
	d.queue = jobs.NewQueue("domain-events", d.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return d
}

// Start launches the worker pool.
func (d *Dispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop drains the workers.
func (d *Dispatcher) Stop() {
	d.queue.Stop()
}

// Publish enqueues an event for asynchronous handling. Failures are
// logged, not returned: the originating state change has already
// committed and must not be rolled back by a full queue.
func (d *Dispatcher) Publish(event models.DomainEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	err := d.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    string(event.Type),
		Payload: event,
	})
	if err != nil {
		d.logger.Error("failed to enqueue domain event",
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}

func (d *Dispatcher) handle(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.DomainEvent)
	if !ok {
		d.logger.Error("dropping job with unexpected payload", zap.String("job_id", job.ID))
		return nil
	}

	notification := d.render(event)
	if notification == nil {
		return nil
	}

	if err := d.store.Create(ctx, notification); err != nil {
		return fmt.Errorf("create notification for %s: %w", event.Type, err)
	}

	d.logger.Debug("notification created from event",
		zap.String("event_type", string(event.Type)),
		zap.String("user_id", event.UserID))
	return nil
}

func (d *Dispatcher) render(event models.DomainEvent) *models.Notification {
	base := models.Notification{
		ID:        uuid.NewString(),
		UserID:    event.UserID,
		CreatedAt: time.Now().UTC(),
	}

	switch event.Type {
	case models.EventStudentApproved:
		base.Type = models.NotificationReg
		base.Title = "Registration approved"
		base.Message = "Your account has been approved. You can now sign in."
	case models.EventStudentRejected:
		base.Type = models.NotificationReg
		base.Title = "Registration rejected"
		base.Message = event.Reason
		if base.Message == "" {
			base.Message = "Your registration was rejected."
		}
	case models.EventGradePublished:
		base.Type = models.NotificationGrade
		base.Title = "New grade published"
		base.Message = "A grade was recorded for one of your courses."
	default:
		d.logger.Warn("no notification mapping for event", zap.String("event_type", string(event.Type)))
		return nil
	}

	return &base
}
