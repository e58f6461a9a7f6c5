package model

import "time"

// Media records one uploaded blob. Handle identifies the object in the
// external blob store; deleting a media row without deleting its blob leaks
// storage, so the choreography deletes the blob first.
type Media struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID       string    `json:"userId" gorm:"type:varchar(36);index:idx_media_user;not null"`
	Handle       string    `json:"-" gorm:"type:varchar(255);not null"`
	OriginalName string    `json:"originalName" gorm:"type:varchar(255)"`
	MimeType     string    `json:"mimeType" gorm:"type:varchar(128)"`
	URL          string    `json:"url" gorm:"type:varchar(512)"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (Media) TableName() string { return "media" }
