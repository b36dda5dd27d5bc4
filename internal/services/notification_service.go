package services

import (
	"context"
	"log/slog"
	"sync"

	"soundscore/internal/models"
	"soundscore/internal/repositories"
)

// subscriberBuffer bounds each SSE subscriber channel. A subscriber that
// falls this far behind misses events; the next list fetch catches it up.
const subscriberBuffer = 16

// NotificationService creates notifications and pushes them to live SSE
// subscribers.
type NotificationService struct {
	notifications repositories.NotificationRepository

	mu          sync.RWMutex
	subscribers map[int64]map[chan *models.Notification]struct{}
}

// NewNotificationService creates a new notification service
func NewNotificationService(notifications repositories.NotificationRepository) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		subscribers:   make(map[int64]map[chan *models.Notification]struct{}),
	}
}

// Notify stores a notification and pushes it to the recipient's open
// streams. Self-actions are dropped.
func (s *NotificationService) Notify(ctx context.Context, n *models.Notification) error {
	if n.RecipientID == n.ActorID {
		return nil
	}

	if err := s.notifications.Create(ctx, n); err != nil {
		return err
	}
	s.publish(n)
	return nil
}

// Subscribe registers a live stream for the user. The returned cancel
// func must be called when the stream closes.
func (s *NotificationService) Subscribe(userID int64) (<-chan *models.Notification, func()) {
	ch := make(chan *models.Notification, subscriberBuffer)

	s.mu.Lock()
	if s.subscribers[userID] == nil {
		s.subscribers[userID] = make(map[chan *models.Notification]struct{})
	}
	s.subscribers[userID][ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if subs, ok := s.subscribers[userID]; ok {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(s.subscribers, userID)
			}
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *NotificationService) publish(n *models.Notification) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for ch := range s.subscribers[n.RecipientID] {
		select {
		case ch <- n:
		default:
			// Slow subscriber, drop rather than block the writer
			slog.Warn("Dropping notification for slow subscriber", "recipient_id", n.RecipientID)
		}
	}
}

// List returns the recipient's notifications
func (s *NotificationService) List(ctx context.Context, recipientID int64, unreadOnly bool, limit, offset int) ([]*models.Notification, error) {
	return s.notifications.ListByRecipient(ctx, recipientID, unreadOnly, limit, offset)
}

// MarkRead flags one notification as read
func (s *NotificationService) MarkRead(ctx context.Context, id, recipientID int64) (bool, error) {
	return s.notifications.MarkRead(ctx, id, recipientID)
}

// MarkAllRead flags everything unread as read
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID int64) error {
	return s.notifications.MarkAllRead(ctx, recipientID)
}

// UnreadCount returns the badge count
func (s *NotificationService) UnreadCount(ctx context.Context, recipientID int64) (int, error) {
	return s.notifications.UnreadCount(ctx, recipientID)
}
