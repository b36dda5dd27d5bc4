package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"soundscore/internal/models"
	"soundscore/internal/testutil"
)

func TestNotifyStoresAndPublishes(t *testing.T) {
	repo := new(testutil.MockNotificationRepository)
	svc := NewNotificationService(repo)

	events, cancel := svc.Subscribe(2)
	defer cancel()

	n := &models.Notification{RecipientID: 2, ActorID: 1, Type: models.NotificationFollow}
	repo.On("Create", mock.Anything, n).Return(nil)

	require.NoError(t, svc.Notify(context.Background(), n))
	repo.AssertExpectations(t)

	select {
	case got := <-events:
		assert.Equal(t, n, got)
	case <-time.After(time.Second):
		t.Fatal("expected a live notification")
	}
}

func TestNotifyDropsSelfActions(t *testing.T) {
	repo := new(testutil.MockNotificationRepository)
	svc := NewNotificationService(repo)

	n := &models.Notification{RecipientID: 1, ActorID: 1, Type: models.NotificationLike}
	require.NoError(t, svc.Notify(context.Background(), n))

	// Nothing stored, nothing published
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSubscribeCancelStopsDelivery(t *testing.T) {
	repo := new(testutil.MockNotificationRepository)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	svc := NewNotificationService(repo)

	events, cancel := svc.Subscribe(5)
	cancel()

	n := &models.Notification{RecipientID: 5, ActorID: 9, Type: models.NotificationComment}
	require.NoError(t, svc.Notify(context.Background(), n))

	select {
	case got := <-events:
		t.Fatalf("expected no delivery after cancel, got %v", got)
	default:
	}
}

func TestPublishDropsSlowSubscriber(t *testing.T) {
	repo := new(testutil.MockNotificationRepository)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	svc := NewNotificationService(repo)

	_, cancel := svc.Subscribe(3)
	defer cancel()

	// Overflow the buffer; Notify must never block
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer*2; i++ {
			_ = svc.Notify(context.Background(), &models.Notification{
				RecipientID: 3, ActorID: 9, Type: models.NotificationLike,
			})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked on a slow subscriber")
	}
}
