package service

import (
	"context"

	"threadline/internal/models"
	"threadline/internal/repository"
)

type NotificationPage struct {
	Notifications []*models.Notification `json:"notifications"`
	NextCursor    string                 `json:"nextCursor,omitempty"`
	HasMore       bool                   `json:"hasMore"`
	Unread        int64                  `json:"unread"`
}

// NotificationService serves a user's notification inbox.
type NotificationService struct {
	notifications repository.Store[models.Notification]
}

func NewNotificationService(notifications repository.Store[models.Notification]) *NotificationService {
	return &NotificationService{notifications: notifications}
}

// List returns recipientID's notifications, newest first, with the unread total.
func (s *NotificationService) List(ctx context.Context, recipientID, cursor string, limit int) (*NotificationPage, error) {
	limit = ClampLimit(limit)

	items, err := s.notifications.List(ctx, repository.Query{
		Filters: []repository.Filter{repository.Eq("recipient_id", recipientID)},
		Limit:   limit + 1,
		After:   cursor,
	})
	if err != nil {
		return nil, err
	}

	page := &NotificationPage{Notifications: items}
	if len(items) > limit {
		page.HasMore = true
		page.Notifications = items[:limit]
		page.NextCursor = page.Notifications[limit-1].ID
	}
	if page.Notifications == nil {
		page.Notifications = []*models.Notification{}
	}

	if page.Unread, err = s.UnreadCount(ctx, recipientID); err != nil {
		return nil, err
	}
	return page, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	return s.notifications.Count(ctx,
		repository.Eq("recipient_id", recipientID),
		repository.Eq("read", false))
}

// MarkRead marks one of recipientID's notifications read. Marking an
// already-read notification succeeds; another user's notification is not found.
func (s *NotificationService) MarkRead(ctx context.Context, recipientID, id string) (*models.Notification, error) {
	n, err := s.notifications.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.RecipientID != recipientID {
		return nil, models.NewNotFoundError("notification", id)
	}
	if n.Read {
		return n, nil
	}
	if err := s.notifications.Update(ctx, id, repository.Patch{"read": true}); err != nil {
		return nil, err
	}
	n.Read = true
	return n, nil
}
