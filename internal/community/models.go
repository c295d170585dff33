package community

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post is a community post that hosts a game or the pinned hub.
type Post struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AppID          string         `gorm:"size:50;not null;index" json:"-"`
	Title          string         `gorm:"size:300;not null" json:"title"`
	AuthorUsername string         `gorm:"size:100;not null;index" json:"author_username"`
	Preview        string         `gorm:"type:text" json:"preview"`
	Sticky         bool           `gorm:"default:false" json:"sticky"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (Post) TableName() string {
	return "community_posts"
}

type Comment struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AppID          string         `gorm:"size:50;not null;index" json:"-"`
	PostID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"post_id"`
	AuthorUsername string         `gorm:"size:100;not null" json:"author_username"`
	Body           string         `gorm:"type:text;not null" json:"body"`
	Distinguished  bool           `gorm:"default:false" json:"distinguished"`
	Sticky         bool           `gorm:"default:false" json:"sticky"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (Comment) TableName() string {
	return "community_comments"
}

// UserFlair is the display badge shown next to a username. One per user and app.
type UserFlair struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	AppID           string    `gorm:"size:50;not null;uniqueIndex:idx_flair_app_user" json:"-"`
	Username        string    `gorm:"size:100;not null;uniqueIndex:idx_flair_app_user" json:"username"`
	Text            string    `gorm:"size:64" json:"text"`
	BackgroundColor string    `gorm:"size:16" json:"background_color"`
	TextColor       string    `gorm:"size:16" json:"text_color"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (f *UserFlair) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

func (UserFlair) TableName() string {
	return "community_user_flairs"
}

type PrivateMessage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AppID     string    `gorm:"size:50;not null;index" json:"-"`
	To        string    `gorm:"column:recipient;size:100;not null;index" json:"to"`
	Subject   string    `gorm:"size:200;not null" json:"subject"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func (m *PrivateMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (PrivateMessage) TableName() string {
	return "community_private_messages"
}

// Models lists the tables this package owns, for AutoMigrate.
func Models() []interface{} {
	return []interface{}{
		&Post{},
		&Comment{},
		&UserFlair{},
		&PrivateMessage{},
	}
}
