package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/idir-saidi/campus-records-api/internal/authz"
	"github.com/idir-saidi/campus-records-api/internal/models"
	appErrors "github.com/idir-saidi/campus-records-api/pkg/errors"
)

type notificationRepository interface {
	ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
	UnreadCount(ctx context.Context, userID string) (int, error)
}

type countCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string)
}

// NotificationService reads and acknowledges per-user notifications.
type NotificationService struct {
	repo     notificationRepository
	cache    countCache
	cacheTTL time.Duration
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewNotificationService creates a NotificationService. cache may be nil
// when Redis is not configured; counts then hit the database every time.
// metrics may also be nil.
func NewNotificationService(repo notificationRepository, cache countCache, cacheTTL time.Duration, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, cache: cache, cacheTTL: cacheTTL, metrics: metrics, logger: logger}
}

// List returns the actor's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, actor authz.Actor, unreadOnly bool) ([]models.Notification, error) {
	notifications, err := s.repo.ListByUser(ctx, actor.ID, unreadOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, nil
}

// MarkRead flips the read flag on one notification. The update is scoped
// to the acting user, so a foreign ID reads as not found.
func (s *NotificationService) MarkRead(ctx context.Context, actor authz.Actor, id string) error {
	if err := s.repo.MarkRead(ctx, id, actor.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, notificationCountKey(actor.ID))
	}
	return nil
}

// UnreadCount returns the actor's unread notification count, served from
// cache when fresh.
func (s *NotificationService) UnreadCount(ctx context.Context, actor authz.Actor) (int, error) {
	key := notificationCountKey(actor.ID)

	if s.cache != nil {
		var cached int
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("notification count cache read failed", zap.Error(err))
		}
		s.metrics.RecordCacheOperation(false)
	}

	count, err := s.repo.UnreadCount(ctx, actor.ID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count notifications")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, count, s.cacheTTL); err != nil {
			s.logger.Warn("notification count cache write failed", zap.Error(err))
		}
	}
	return count, nil
}

func notificationCountKey(userID string) string {
	return fmt.Sprintf("notifications:unread:%s", userID)
}
