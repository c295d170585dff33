package emojiriddle

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/community"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/levels"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/store"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GamePost is a riddle with its derived solve and skip counts.
type GamePost struct {
	PostID         string         `json:"post_id"`
	PostType       store.PostType `json:"post_type"`
	Category       string         `json:"category"`
	Riddle         string         `json:"riddle"`
	Answer         string         `json:"answer,omitempty"`
	AuthorUsername string         `json:"author_username"`
	Date           int64          `json:"date"`
	Solves         int64          `json:"solves"`
	Skips          int64          `json:"skips"`
}

type PinnedPost struct {
	PostID   string         `json:"post_id"`
	PostType store.PostType `json:"post_type"`
}

// RiddleSummary is the short form used in riddle listings.
type RiddleSummary struct {
	PostID string `json:"post_id"`
	Riddle string `json:"riddle"`
}

// PostGuesses is the tally of a post. GuessCount always equals the sum of
// Guesses.
type PostGuesses struct {
	Guesses     map[string]int64 `json:"guesses"`
	WordCount   int64            `json:"word_count"`
	GuessCount  int64            `json:"guess_count"`
	PlayerCount int64            `json:"player_count"`
}

type ScoreBoardEntry struct {
	Member string `json:"member"`
	Score  int64  `json:"score"`
}

// UserScore is a leaderboard position. Rank is zero based from the top and
// -1 when the user has no score.
type UserScore struct {
	Rank  int64 `json:"rank"`
	Score int64 `json:"score"`
}

// UserData is the player's view of themselves on one post.
type UserData struct {
	Score      int64  `json:"score"`
	LevelRank  int    `json:"level_rank"`
	LevelName  string `json:"level_name"`
	Solved     bool   `json:"solved"`
	Skipped    bool   `json:"skipped"`
	GuessCount int64  `json:"guess_count"`

	Flair *community.UserFlair `json:"flair,omitempty"`
}

type GameSettings struct {
	CommunityName    string            `json:"community_name"`
	RiddleCategories []string          `json:"riddle_categories"`
	FeedbackDuration int               `json:"feedback_duration"`
	Extra            map[string]string `json:"extra,omitempty"`
}

// RiddleForm is what an author fills in to create a riddle.
type RiddleForm struct {
	Category string `json:"category"`
	Riddle   string `json:"riddle"`
	Answer   string `json:"answer"`
}

// RiddleSubmission is a validated riddle bound to its platform post.
type RiddleSubmission struct {
	PostID         string
	Riddle         string
	Category       string
	Answer         string
	AuthorUsername string
	Subreddit      string
}

// GuessResult is returned to the player after a guess.
type GuessResult struct {
	Correct bool  `json:"correct"`
	Points  int64 `json:"points"`
}

// LevelUpRecord is the audit row written for every level reached.
type LevelUpRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AppID     string    `gorm:"size:50;not null;uniqueIndex:idx_er_levelup_app_user_rank" json:"-"`
	Username  string    `gorm:"size:100;not null;uniqueIndex:idx_er_levelup_app_user_rank" json:"username"`
	Rank      int       `gorm:"not null;uniqueIndex:idx_er_levelup_app_user_rank" json:"rank"`
	PrevRank  int       `json:"prev_rank"`
	LevelName string    `gorm:"size:100" json:"level_name"`
	Score     int64     `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *LevelUpRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (LevelUpRecord) TableName() string {
	return "emojiriddle_level_ups"
}

// Job payloads.

type FirstSolverPayload struct {
	PostID   string `json:"post_id"`
	Username string `json:"username"`
}

type PinnedCommentPayload struct {
	PostID string `json:"post_id"`
}

type LevelUpPayload struct {
	Username  string       `json:"username"`
	Score     int64        `json:"score"`
	PrevLevel levels.Level `json:"prev_level"`
	NextLevel levels.Level `json:"next_level"`
}
