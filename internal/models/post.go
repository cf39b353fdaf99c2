// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Document is satisfied by every persisted entity. Stores use it to resolve
// cursors without knowing the concrete type.
type Document interface {
	DocID() string
	CreatedTime() time.Time
}

// NewID returns a time-ordered document id.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Now returns the current UTC time at millisecond precision, the finest
// resolution every backend round-trips unchanged.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Post is a thread (ParentPostID empty) or a reply inside a thread.
// ReplyCount and LikeCount are denormalized and only eventually consistent
// with the reply and like documents they summarize.
type Post struct {
	ID            string    `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	AuthorID      string    `gorm:"size:36;not null;index" bson:"author_id" json:"authorId"`
	Content       string    `gorm:"type:text;not null" bson:"content" json:"content"`
	Media         []string  `gorm:"serializer:json;type:text" bson:"media,omitempty" json:"media,omitempty"`
	ParentPostID  string    `gorm:"size:36;index" bson:"parent_post_id" json:"parentPostId,omitempty"`
	ParentReplyID string    `gorm:"size:36" bson:"parent_reply_id" json:"parentReplyId,omitempty"`
	ReplyCount    int       `gorm:"not null" bson:"reply_count" json:"replyCount"`
	LikeCount     int       `gorm:"not null" bson:"like_count" json:"likeCount"`
	CreatedAt     time.Time `gorm:"index" bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updatedAt"`
}

func (p Post) DocID() string          { return p.ID }
func (p Post) CreatedTime() time.Time { return p.CreatedAt }

// IsReply reports whether the post belongs to another thread.
func (p Post) IsReply() bool { return p.ParentPostID != "" }

// PostView is a post joined with its author and the viewer's like state.
type PostView struct {
	Post
	Author *Profile `json:"author"`
	Liked  bool     `json:"liked"`
}
