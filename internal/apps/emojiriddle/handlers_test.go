package emojiriddle

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/community"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/config"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/jobs"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/levels"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/tenant"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	app, _ := newTestAppWithDB(t)
	return app
}

func newTestAppWithDB(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	db := newTestDB(t)
	require.NoError(t, db.AutoMigrate(community.Models()...))

	registry := tenant.NewRegistry()
	registry.Register(&tenant.AppConfig{
		AppID:            testApp,
		CommunityName:    "emojiriddles",
		RiddleCategories: []string{"Movie", "Animal"},
	})
	cfg := &config.Config{Game: config.Game{
		GuesserSolvePoints:       1,
		GuesserFirstSolvePoints:  2,
		AuthorCorrectGuessPoints: 1,
		AuthorSubmitPoints:       1,
		FeedbackDuration:         10,
		SubmitLockWindow:         5 * time.Second,
		FirstSolverCommentDelay:  5 * time.Minute,
	}}

	p, err := New(rdb, jobs.NewQueue(rdb, time.Minute), registry, fakeFilter{})
	require.NoError(t, err)
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		appID := c.Get("X-App-ID", testApp)
		c.Locals("app_id", appID)
		if u := c.Get("X-Test-User"); u != "" {
			c.Locals("user", &jwt.Token{Claims: jwt.MapClaims{"username": u, "app_id": appID}})
		}
		return c.Next()
	})
	p.RegisterRoutes(app.Group("/api/p"), db, cfg)
	p.RegisterAdminRoutes(app.Group("/api/admin"), db, cfg)
	return app, db
}

func call(t *testing.T, app *fiber.App, method, path, user string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func createRiddle(t *testing.T, app *fiber.App, author string) string {
	t.Helper()
	status, body := call(t, app, http.MethodPost, "/api/p/emojiriddle/riddles", author,
		RiddleForm{Category: "Animal", Riddle: "🐱 + 🎩", Answer: "Cat"})
	require.Equal(t, http.StatusCreated, status, body)
	post := body["post"].(map[string]any)
	return post["post_id"].(string)
}

func TestHandlerGuessFlow(t *testing.T) {
	app := newTestApp(t)
	postID := createRiddle(t, app, "zed")
	postPath := "/api/p/emojiriddle/posts/" + postID

	status, body := call(t, app, http.MethodGet, postPath, "alice", nil)
	require.Equal(t, http.StatusOK, status)
	post := body["post"].(map[string]any)
	assert.Equal(t, "🐱 + 🎩", post["riddle"])
	assert.NotContains(t, post, "answer")

	status, body = call(t, app, http.MethodPost, postPath+"/guesses", "alice", map[string]any{"guess": "cat", "comment": true})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["correct"])
	assert.Equal(t, float64(3), body["points"])

	status, body = call(t, app, http.MethodGet, postPath, "alice", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Cat", body["post"].(map[string]any)["answer"])
	assert.Equal(t, true, body["user"].(map[string]any)["solved"])

	status, body = call(t, app, http.MethodGet, postPath+"/guesses", "zed", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"cat": float64(1)}, body["guesses"])
	assert.Equal(t, float64(1), body["player_count"])

	status, body = call(t, app, http.MethodGet, postPath+"/players", "zed", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["player_count"])

	status, body = call(t, app, http.MethodGet, postPath+"/guess-comments", "zed", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["guess_comments"].(map[string]any)["cat"], 1)

	status, body = call(t, app, http.MethodGet, "/api/p/emojiriddle/scores?limit=5", "zed", nil)
	require.Equal(t, http.StatusOK, status)
	scores := body["scores"].([]any)
	require.Len(t, scores, 2)
	assert.Equal(t, "alice", scores[0].(map[string]any)["member"])

	status, body = call(t, app, http.MethodGet, "/api/p/emojiriddle/scores/me", "zed", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), body["score"])
	assert.Equal(t, float64(1), body["rank"])
}

func TestHandlerCreateRiddle(t *testing.T) {
	app := newTestApp(t)
	createRiddle(t, app, "zed")

	status, body := call(t, app, http.MethodPost, "/api/p/emojiriddle/riddles", "zed",
		RiddleForm{Category: "Animal", Riddle: "🐶", Answer: "Dog"})
	assert.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, false, body["submitted"])

	status, body = call(t, app, http.MethodPost, "/api/p/emojiriddle/riddles", "amy",
		RiddleForm{Category: "Book", Riddle: "🐶", Answer: "Dog"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Riddle category not allowed", body["message"])

	status, _ = call(t, app, http.MethodPost, "/api/p/emojiriddle/riddles", "",
		RiddleForm{Category: "Animal", Riddle: "🐶", Answer: "Dog"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = call(t, app, http.MethodGet, "/api/p/emojiriddle/users/zed/riddles", "amy", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["post_ids"], 1)
}

func TestHandlerErrors(t *testing.T) {
	app := newTestApp(t)

	status, _ := call(t, app, http.MethodGet, "/api/p/emojiriddle/posts/missing", "amy", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = call(t, app, http.MethodPost, "/api/p/emojiriddle/posts/missing/guesses", "amy", map[string]any{"guess": "x"})
	assert.Equal(t, http.StatusNotFound, status)

	postID := createRiddle(t, app, "zed")
	status, _ = call(t, app, http.MethodPut, "/api/p/emojiriddle/posts/"+postID+"/preview", "amy", nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = call(t, app, http.MethodPut, "/api/p/emojiriddle/posts/"+postID+"/preview", "zed", nil)
	assert.Equal(t, http.StatusOK, status)

	req := httptest.NewRequest(http.MethodGet, "/api/p/emojiriddle/settings", nil)
	req.Header.Set("X-App-ID", "unknown")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandlerAdminRoutes(t *testing.T) {
	app := newTestApp(t)
	postID := createRiddle(t, app, "zed")

	status, body := call(t, app, http.MethodGet, "/api/admin/emojiriddle/posts/"+postID+"/answer", "mod", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Cat", body["answer"])

	status, body = call(t, app, http.MethodPut, "/api/admin/emojiriddle/settings", "mod", map[string]string{"feedbackDuration": "20"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(20), body["feedback_duration"])
	assert.Equal(t, []any{"Movie", "Animal"}, body["riddle_categories"])

	status, body = call(t, app, http.MethodPost, "/api/admin/emojiriddle/pinned", "mod", nil)
	require.Equal(t, http.StatusCreated, status)
	pinnedID := body["post_id"].(string)

	status, body = call(t, app, http.MethodGet, "/api/p/emojiriddle/posts/"+pinnedID, "amy", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "pinned", body["post_type"])

	status, _ = call(t, app, http.MethodGet, "/api/admin/emojiriddle/posts/"+pinnedID+"/answer", "mod", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHandlerUserData(t *testing.T) {
	app := newTestApp(t)
	postID := createRiddle(t, app, "zed")

	status, _ := call(t, app, http.MethodPut, "/api/p/emojiriddle/me/data", "amy",
		map[string]any{"levelRank": 8, "theme": "dark"})
	require.Equal(t, http.StatusOK, status)

	status, body := call(t, app, http.MethodGet, "/api/p/emojiriddle/posts/"+postID+"/me", "amy", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["level_rank"], "level fields are not writable by players")

	status, _ = call(t, app, http.MethodPost, "/api/p/emojiriddle/posts/"+postID+"/skip", "amy", nil)
	require.Equal(t, http.StatusOK, status)
	status, body = call(t, app, http.MethodGet, "/api/p/emojiriddle/posts/"+postID+"/me", "amy", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["skipped"])

	status, body = call(t, app, http.MethodGet, "/api/p/emojiriddle/me/levels", "amy", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["level_ups"])
}

func TestHandlerComments(t *testing.T) {
	app, db := newTestAppWithDB(t)
	postID := createRiddle(t, app, "zed")
	postPath := "/api/p/emojiriddle/posts/" + postID

	status, _ := call(t, app, http.MethodPost, postPath+"/guesses", "alice", map[string]any{"guess": "Dog", "comment": true})
	require.Equal(t, http.StatusOK, status)

	status, body := call(t, app, http.MethodGet, postPath+"/comments", "zed", nil)
	require.Equal(t, http.StatusOK, status)
	comments := body["comments"].([]any)
	require.Len(t, comments, 1)
	commentID := comments[0].(map[string]any)["id"].(string)

	status, body = call(t, app, http.MethodGet, postPath+"/guess-comments/"+commentID, "zed", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "dog", body["guess"])

	status, _ = call(t, app, http.MethodGet, postPath+"/guess-comments/unknown", "zed", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = call(t, app, http.MethodGet, postPath+"/me", "alice", nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, body, "flair")

	client := community.NewClient(db, testApp)
	require.NoError(t, client.SetUserFlair(context.Background(), community.FlairOptions{
		Username: "alice", Text: "Clue Chaser", BackgroundColor: "#0DD3BB", TextColor: "#000000",
	}))
	status, body = call(t, app, http.MethodGet, postPath+"/me", "alice", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Clue Chaser", body["flair"].(map[string]any)["text"])
}

func TestNewPluginRejectsBrokenLevels(t *testing.T) {
	broken := levels.Table{
		{Rank: 1, Name: "a", Min: 0, Max: 10},
		{Rank: 2, Name: "b", Min: 20, Max: 30},
	}
	_, err := newPlugin(nil, nil, tenant.NewRegistry(), fakeFilter{}, broken)
	assert.Error(t, err)

	_, err = newPlugin(nil, nil, tenant.NewRegistry(), fakeFilter{}, levels.Default)
	assert.NoError(t, err)
}

func TestPluginContentExists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	post := f.seedRiddle(t, "zed", "cat")
	f.svc.SubmitGuess(ctx, post, "bob", "Dog", false)

	registry := tenant.NewRegistry()
	registry.Register(&tenant.AppConfig{AppID: testApp})
	p, err := New(f.rdb, f.queue, registry, fakeFilter{})
	require.NoError(t, err)

	tests := []struct {
		appID, contentType, contentID string
		want                          bool
	}{
		{testApp, "post", post.PostID, true},
		{testApp, "post", "missing", false},
		{testApp, "guess", post.PostID + ":DOG", true},
		{testApp, "guess", post.PostID + ":cat", false},
		{testApp, "guess", post.PostID, false},
		{testApp, "comment", "anything", true},
		{"unknown", "post", post.PostID, false},
	}
	for _, tt := range tests {
		got, err := p.ContentExists(ctx, tt.appID, tt.contentType, tt.contentID)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s %s %s", tt.appID, tt.contentType, tt.contentID)
	}
}
