package model

import "time"

// User is owned by the identity service.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Username  string    `json:"username" gorm:"type:varchar(64);uniqueIndex;not null"`
	Email     string    `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Password  string    `json:"-" gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string { return "users" }

// RefreshToken is a stored, rotating credential. Access tokens are stateless;
// refresh tokens are revocable by deletion.
type RefreshToken struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	Token     string    `gorm:"type:varchar(128);uniqueIndex;not null"`
	UserID    string    `gorm:"type:varchar(36);index;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time
}

func (RefreshToken) TableName() string { return "refresh_tokens" }
