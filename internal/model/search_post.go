package model

import "time"

// SearchPost is the search service's projection of a post. It is keyed by the
// source post id, which makes duplicate post.created deliveries collapse into
// a single row.
type SearchPost struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	PostID    string    `json:"postId" gorm:"type:varchar(36);uniqueIndex;not null"`
	UserID    string    `json:"userId" gorm:"type:varchar(36);index"`
	Content   string    `json:"content" gorm:"type:text"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`
}

func (SearchPost) TableName() string { return "search_posts" }
