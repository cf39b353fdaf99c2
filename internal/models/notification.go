package models

import "time"

// NotificationKind identifies what triggered a notification.
type NotificationKind string

const (
	NotificationLike   NotificationKind = "like"
	NotificationReply  NotificationKind = "reply"
	NotificationFollow NotificationKind = "follow"
)

// Notification is created asynchronously after a like, reply or follow.
// Only Read is ever mutated.
type Notification struct {
	ID          string           `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	RecipientID string           `gorm:"size:36;not null;index" bson:"recipient_id" json:"recipientId"`
	ActorID     string           `gorm:"size:36;not null" bson:"actor_id" json:"actorId"`
	Kind        NotificationKind `gorm:"size:16;not null" bson:"kind" json:"kind"`
	TargetID    string           `gorm:"size:36" bson:"target_id" json:"targetId"`
	Extra       map[string]any   `gorm:"serializer:json;type:text" bson:"extra,omitempty" json:"extra,omitempty"`
	Read        bool             `gorm:"not null;index" bson:"read" json:"read"`
	CreatedAt   time.Time        `gorm:"index" bson:"created_at" json:"createdAt"`
}

func (n Notification) DocID() string          { return n.ID }
func (n Notification) CreatedTime() time.Time { return n.CreatedAt }
