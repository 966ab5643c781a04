package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idir-saidi/campus-records-api/internal/models"
)

type memoryNotificationStore struct {
	mu      sync.Mutex
	created []*models.Notification
}

func (s *memoryNotificationStore) Create(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, n)
	return nil
}

func (s *memoryNotificationStore) all() []*models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Notification, len(s.created))
	copy(out, s.created)
	return out
}

func TestDispatcherRendersApproval(t *testing.T) {
	d := NewDispatcher(&memoryNotificationStore{}, nil, Config{})
	userID := uuid.NewString()

	n := d.render(models.DomainEvent{Type: models.EventStudentApproved, UserID: userID})
	require.NotNil(t, n)
	assert.Equal(t, userID, n.UserID)
	assert.Equal(t, models.NotificationReg, n.Type)
	assert.Equal(t, "Registration approved", n.Title)
	assert.False(t, n.IsRead)
}

func TestDispatcherRendersRejectionReason(t *testing.T) {
	d := NewDispatcher(&memoryNotificationStore{}, nil, Config{})

	n := d.render(models.DomainEvent{Type: models.EventStudentRejected, UserID: uuid.NewString(), Reason: "Missing documents"})
	require.NotNil(t, n)
	assert.Equal(t, "Registration rejected", n.Title)
	assert.Equal(t, "Missing documents", n.Message)

	blank := d.render(models.DomainEvent{Type: models.EventStudentRejected, UserID: uuid.NewString()})
	require.NotNil(t, blank)
	assert.Equal(t, "Your registration was rejected.", blank.Message)
}

func TestDispatcherRendersGradePublished(t *testing.T) {
	d := NewDispatcher(&memoryNotificationStore{}, nil, Config{})

	n := d.render(models.DomainEvent{Type: models.EventGradePublished, UserID: uuid.NewString()})
	require.NotNil(t, n)
	assert.Equal(t, models.NotificationGrade, n.Type)
}

func TestDispatcherIgnoresUnknownEvent(t *testing.T) {
	store := &memoryNotificationStore{}
	d := NewDispatcher(store, nil, Config{})

	n := d.render(models.DomainEvent{Type: models.EventType("noise"), UserID: uuid.NewString()})
	assert.Nil(t, n)
}

func TestDispatcherDeliversPublishedEvents(t *testing.T) {
	store := &memoryNotificationStore{}
	d := NewDispatcher(store, nil, Config{Workers: 1, BufferSize: 4})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)
	defer d.Stop()

	userID := uuid.NewString()
	d.Publish(models.DomainEvent{Type: models.EventStudentApproved, UserID: userID})

	require.Eventually(t, func() bool {
		return len(store.all()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, userID, store.all()[0].UserID)
}
