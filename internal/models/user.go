package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a player account. Username is the public identity used on the
// leaderboard, in riddle authorship and in community flair.
type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AppID     string         `gorm:"size:50;not null;uniqueIndex:idx_users_app_email;uniqueIndex:idx_users_app_username" json:"-"`
	Email     string         `gorm:"not null;size:255;uniqueIndex:idx_users_app_email" json:"email"`
	Username  string         `gorm:"not null;size:20;uniqueIndex:idx_users_app_username" json:"username"`
	Password  string         `gorm:"not null" json:"-"`
	Role      string         `gorm:"size:20;default:'user'" json:"role"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
