package models

import "time"

// Like records that UserID liked PostID. At most one per pair.
type Like struct {
	ID        string    `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:idx_like_user_post" bson:"user_id" json:"userId"`
	PostID    string    `gorm:"size:36;not null;uniqueIndex:idx_like_user_post;index" bson:"post_id" json:"postId"`
	CreatedAt time.Time `gorm:"index" bson:"created_at" json:"createdAt"`
}

func (l Like) DocID() string          { return l.ID }
func (l Like) CreatedTime() time.Time { return l.CreatedAt }

// Follow is a directed edge: FollowerID follows FollowingID.
type Follow struct {
	ID          string    `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	FollowerID  string    `gorm:"size:36;not null;uniqueIndex:idx_follow_pair" bson:"follower_id" json:"followerId"`
	FollowingID string    `gorm:"size:36;not null;uniqueIndex:idx_follow_pair;index" bson:"following_id" json:"followingId"`
	CreatedAt   time.Time `gorm:"index" bson:"created_at" json:"createdAt"`
}

func (f Follow) DocID() string          { return f.ID }
func (f Follow) CreatedTime() time.Time { return f.CreatedAt }

// Profile is the author data joined into feeds. Profiles are owned by the
// account system; this service only reads them (and seeds them in development).
type Profile struct {
	ID          string    `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	Username    string    `gorm:"size:64;uniqueIndex" bson:"username" json:"username"`
	DisplayName string    `gorm:"size:128" bson:"display_name" json:"displayName"`
	AvatarURL   string    `bson:"avatar_url,omitempty" json:"avatarUrl,omitempty"`
	CreatedAt   time.Time `bson:"created_at" json:"createdAt"`
}

func (p Profile) DocID() string          { return p.ID }
func (p Profile) CreatedTime() time.Time { return p.CreatedAt }
