package community

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(Models()...))
	return db
}

func TestPostLifecycle(t *testing.T) {
	ctx := context.Background()
	c := NewClient(newTestDB(t), "emojiriddle")

	post, err := c.SubmitPost(ctx, SubmitPostOptions{Title: "Guess the movie", AuthorUsername: "zed", Preview: "Loading..."})
	require.NoError(t, err)

	got, err := c.GetPost(ctx, post.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "zed", got.AuthorUsername)

	require.NoError(t, c.SetPostPreview(ctx, post.ID.String(), "3 players"))
	require.NoError(t, c.SetPostSticky(ctx, post.ID.String(), true))
	got, err = c.GetPost(ctx, post.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "3 players", got.Preview)
	assert.True(t, got.Sticky)

	_, err = c.GetPost(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrPostNotFound)

	_, err = c.SubmitPost(ctx, SubmitPostOptions{Title: "  "})
	assert.Error(t, err)
}

func TestPostsAreScopedByApp(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	a := NewClient(db, "a")
	b := NewClient(db, "b")

	post, err := a.SubmitPost(ctx, SubmitPostOptions{Title: "t", AuthorUsername: "zed"})
	require.NoError(t, err)

	_, err = b.GetPost(ctx, post.ID.String())
	assert.ErrorIs(t, err, ErrPostNotFound)
	assert.ErrorIs(t, b.SetPostPreview(ctx, post.ID.String(), "x"), ErrPostNotFound)
}

func TestComments(t *testing.T) {
	ctx := context.Background()
	c := NewClient(newTestDB(t), "emojiriddle")
	post, err := c.SubmitPost(ctx, SubmitPostOptions{Title: "t", AuthorUsername: "zed"})
	require.NoError(t, err)

	first, err := c.SubmitComment(ctx, post.ID.String(), "alice", "cat")
	require.NoError(t, err)
	pinned, err := c.SubmitComment(ctx, post.ID.String(), "mod", "How to play")
	require.NoError(t, err)
	require.NoError(t, c.DistinguishComment(ctx, pinned.ID.String(), true))

	comments, err := c.ListComments(ctx, post.ID.String(), 0)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, pinned.ID, comments[0].ID)
	assert.True(t, comments[0].Distinguished)

	_, err = c.DeleteComment(ctx, first.ID.String(), "bob")
	assert.ErrorIs(t, err, ErrNotAuthor)

	deleted, err := c.DeleteComment(ctx, first.ID.String(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "cat", deleted.Body)

	_, err = c.GetComment(ctx, first.ID.String())
	assert.ErrorIs(t, err, ErrCommentNotFound)

	_, err = c.SubmitComment(ctx, post.ID.String(), "alice", "")
	assert.ErrorIs(t, err, ErrEmptyBody)
}

func TestUserFlairUpsert(t *testing.T) {
	ctx := context.Background()
	c := NewClient(newTestDB(t), "emojiriddle")

	flair, err := c.GetUserFlair(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, flair)

	require.NoError(t, c.SetUserFlair(ctx, FlairOptions{Username: "alice", Text: "Riddle Rookie", BackgroundColor: "#DDDDDD", TextColor: "dark"}))
	require.NoError(t, c.SetUserFlair(ctx, FlairOptions{Username: "alice", Text: "Emoji Explorer", BackgroundColor: "#9AD0F5", TextColor: "dark"}))

	flair, err = c.GetUserFlair(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, flair)
	assert.Equal(t, "Emoji Explorer", flair.Text)
	assert.Equal(t, "#9AD0F5", flair.BackgroundColor)
}

func TestPrivateMessages(t *testing.T) {
	ctx := context.Background()
	c := NewClient(newTestDB(t), "emojiriddle")

	require.NoError(t, c.SendPrivateMessage(ctx, "alice", "Level up", "You reached Emoji Explorer"))
	assert.ErrorIs(t, c.SendPrivateMessage(ctx, "alice", "Empty", " "), ErrEmptyBody)

	msgs, err := c.ListPrivateMessages(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Level up", msgs[0].Subject)

	msgs, err = c.ListPrivateMessages(ctx, "bob", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
