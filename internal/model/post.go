package model

import "time"

// Post is the owning service's primary entity. Other services never mutate
// it; they hold only projections derived from lifecycle events.
type Post struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"userId" gorm:"type:varchar(36);index:idx_post_user;not null"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	MediaIDs  []string  `json:"mediaIds" gorm:"serializer:json;type:text"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Post) TableName() string { return "posts" }
