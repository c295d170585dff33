package community

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrPostNotFound    = errors.New("post not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrNotAuthor       = errors.New("only the author can do that")
	ErrEmptyBody       = errors.New("body is required")
)

// Client talks to the community on behalf of one installation.
type Client struct {
	db    *gorm.DB
	appID string
}

func NewClient(db *gorm.DB, appID string) *Client {
	return &Client{db: db, appID: appID}
}

// AppID returns the installation the client is bound to.
func (c *Client) AppID() string {
	return c.appID
}

func (c *Client) scoped(ctx context.Context) *gorm.DB {
	return c.db.WithContext(ctx).Scopes(tenant.ForTenant(c.appID))
}

type SubmitPostOptions struct {
	Title          string
	AuthorUsername string
	Preview        string
}

func (c *Client) SubmitPost(ctx context.Context, opts SubmitPostOptions) (*Post, error) {
	if strings.TrimSpace(opts.Title) == "" {
		return nil, errors.New("title is required")
	}
	post := Post{
		AppID:          c.appID,
		Title:          opts.Title,
		AuthorUsername: opts.AuthorUsername,
		Preview:        opts.Preview,
	}
	if err := c.db.WithContext(ctx).Create(&post).Error; err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	return &post, nil
}

func (c *Client) GetPost(ctx context.Context, postID string) (*Post, error) {
	id, err := uuid.Parse(postID)
	if err != nil {
		return nil, ErrPostNotFound
	}
	var post Post
	if err := c.scoped(ctx).First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

// SetPostPreview replaces the text shown while the game is loading.
func (c *Client) SetPostPreview(ctx context.Context, postID, preview string) error {
	return c.updatePost(ctx, postID, map[string]interface{}{"preview": preview})
}

func (c *Client) SetPostSticky(ctx context.Context, postID string, sticky bool) error {
	return c.updatePost(ctx, postID, map[string]interface{}{"sticky": sticky})
}

func (c *Client) updatePost(ctx context.Context, postID string, values map[string]interface{}) error {
	id, err := uuid.Parse(postID)
	if err != nil {
		return ErrPostNotFound
	}
	result := c.scoped(ctx).Model(&Post{}).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (c *Client) SubmitComment(ctx context.Context, postID, author, body string) (*Comment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyBody
	}
	post, err := c.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	comment := Comment{
		AppID:          c.appID,
		PostID:         post.ID,
		AuthorUsername: author,
		Body:           body,
	}
	if err := c.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return &comment, nil
}

func (c *Client) GetComment(ctx context.Context, commentID string) (*Comment, error) {
	id, err := uuid.Parse(commentID)
	if err != nil {
		return nil, ErrCommentNotFound
	}
	var comment Comment
	if err := c.scoped(ctx).First(&comment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	return &comment, nil
}

// ListComments returns a post's comments, sticky first, then oldest first.
func (c *Client) ListComments(ctx context.Context, postID string, limit int) ([]Comment, error) {
	id, err := uuid.Parse(postID)
	if err != nil {
		return nil, ErrPostNotFound
	}
	var comments []Comment
	query := c.scoped(ctx).Where("post_id = ?", id).Order("sticky DESC").Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// DistinguishComment marks a comment as posted by a moderator, optionally
// pinning it to the top of the post.
func (c *Client) DistinguishComment(ctx context.Context, commentID string, sticky bool) error {
	id, err := uuid.Parse(commentID)
	if err != nil {
		return ErrCommentNotFound
	}
	result := c.scoped(ctx).Model(&Comment{}).Where("id = ?", id).
		Updates(map[string]interface{}{"distinguished": true, "sticky": sticky})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCommentNotFound
	}
	return nil
}

// DeleteComment soft-deletes a comment owned by username and returns it.
func (c *Client) DeleteComment(ctx context.Context, commentID, username string) (*Comment, error) {
	comment, err := c.GetComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorUsername != username {
		return nil, ErrNotAuthor
	}
	if err := c.db.WithContext(ctx).Delete(comment).Error; err != nil {
		return nil, fmt.Errorf("failed to delete comment: %w", err)
	}
	return comment, nil
}

type FlairOptions struct {
	Username        string
	Text            string
	BackgroundColor string
	TextColor       string
}

// SetUserFlair creates or replaces the user's flair.
func (c *Client) SetUserFlair(ctx context.Context, opts FlairOptions) error {
	flair := UserFlair{
		AppID:           c.appID,
		Username:        opts.Username,
		Text:            opts.Text,
		BackgroundColor: opts.BackgroundColor,
		TextColor:       opts.TextColor,
		UpdatedAt:       time.Now(),
	}
	return c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "app_id"}, {Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"text", "background_color", "text_color", "updated_at"}),
	}).Create(&flair).Error
}

// GetUserFlair returns nil without error when the user has no flair.
func (c *Client) GetUserFlair(ctx context.Context, username string) (*UserFlair, error) {
	var flair UserFlair
	err := c.scoped(ctx).Where("username = ?", username).First(&flair).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &flair, nil
}

func (c *Client) SendPrivateMessage(ctx context.Context, to, subject, body string) error {
	if strings.TrimSpace(body) == "" {
		return ErrEmptyBody
	}
	msg := PrivateMessage{
		AppID:   c.appID,
		To:      to,
		Subject: subject,
		Body:    body,
	}
	if err := c.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// ListPrivateMessages returns the newest messages sent to username.
func (c *Client) ListPrivateMessages(ctx context.Context, username string, limit int) ([]PrivateMessage, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var msgs []PrivateMessage
	if err := c.scoped(ctx).Where("recipient = ?", username).
		Order("created_at DESC").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}
