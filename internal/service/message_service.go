package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/idir-saidi/campus-records-api/internal/authz"
	"github.com/idir-saidi/campus-records-api/internal/models"
	appErrors "github.com/idir-saidi/campus-records-api/pkg/errors"
)

type messageRepository interface {
	Create(ctx context.Context, m *models.Message) error
	Inbox(ctx context.Context, userID string) ([]models.MessageDetail, error)
	Conversation(ctx context.Context, userA, userB string) ([]models.MessageDetail, error)
	MarkRead(ctx context.Context, id, receiverID string) error
	UnreadCount(ctx context.Context, userID string) (int, error)
}

type messageUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// SendMessageRequest is the payload for sending a direct message.
type SendMessageRequest struct {
	ReceiverID string `json:"receiver_id" validate:"required,uuid4"`
	Content    string `json:"content" validate:"required,min=1,max=2000"`
}

// MessageService handles direct user-to-user messaging.
type MessageService struct {
	repo      messageRepository
	users     messageUserRepository
	cache     countCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMessageService creates a MessageService.
func NewMessageService(repo messageRepository, users messageUserRepository, cache countCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *MessageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &MessageService{repo: repo, users: users, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// Send delivers a message from the actor to another user.
func (s *MessageService) Send(ctx context.Context, actor authz.Actor, req SendMessageRequest) (*models.Message, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid message payload")
	}

	if req.ReceiverID == actor.ID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot send a message to yourself")
	}

	if _, err := s.users.FindByID(ctx, req.ReceiverID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "receiver not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load receiver")
	}

	message := &models.Message{
		ID:         uuid.NewString(),
		SenderID:   actor.ID,
		ReceiverID: req.ReceiverID,
		Content:    strings.TrimSpace(req.Content),
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, message); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send message")
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, messageCountKey(req.ReceiverID))
	}
	return message, nil
}

// Inbox returns the messages received by the actor, newest first.
func (s *MessageService) Inbox(ctx context.Context, actor authz.Actor) ([]models.MessageDetail, error) {
	messages, err := s.repo.Inbox(ctx, actor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list inbox")
	}
	return messages, nil
}

// Conversation returns the two-way thread between the actor and another
// user in chronological order.
func (s *MessageService) Conversation(ctx context.Context, actor authz.Actor, otherID string) ([]models.MessageDetail, error) {
	messages, err := s.repo.Conversation(ctx, actor.ID, otherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load conversation")
	}
	return messages, nil
}

// MarkRead flips the read flag. Only the receiver may acknowledge a
// message; the update is scoped accordingly.
func (s *MessageService) MarkRead(ctx context.Context, actor authz.Actor, id string) error {
	if err := s.repo.MarkRead(ctx, id, actor.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "message not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark message read")
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, messageCountKey(actor.ID))
	}
	return nil
}

// UnreadCount returns the actor's unread message count, cached briefly.
func (s *MessageService) UnreadCount(ctx context.Context, actor authz.Actor) (int, error) {
	key := messageCountKey(actor.ID)

	if s.cache != nil {
		var cached int
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("message count cache read failed", zap.Error(err))
		}
	}

	count, err := s.repo.UnreadCount(ctx, actor.ID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count messages")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, count, s.cacheTTL); err != nil {
			s.logger.Warn("message count cache write failed", zap.Error(err))
		}
	}
	return count, nil
}

func messageCountKey(userID string) string {
	return fmt.Sprintf("messages:unread:%s", userID)
}
