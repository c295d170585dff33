package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/config"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/dto"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/models"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/services"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/tenant"
	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
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
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.RefreshToken{}, &models.Report{}))
	return db
}

func newAuthService(db *gorm.DB) *services.AuthService {
	return services.NewAuthService(db, &config.Config{
		JWTSecret:        "secret",
		JWTAccessExpiry:  time.Minute,
		JWTRefreshExpiry: time.Hour,
	})
}

func newAuthApp(t *testing.T) *fiber.App {
	t.Helper()
	h := NewAuthHandler(newAuthService(newTestDB(t)))
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("app_id", "riddles")
		return c.Next()
	})
	app.Post("/register", h.Register)
	app.Post("/login", h.Login)
	app.Post("/refresh", h.Refresh)
	return app
}

func post(t *testing.T, app *fiber.App, path string, body any) (int, map[string]any) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out := map[string]any{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestAuthHandlers(t *testing.T) {
	app := newAuthApp(t)
	form := dto.RegisterRequest{Email: "amy@example.com", Username: "amy", Password: "password123"}

	status, body := post(t, app, "/register", form)
	require.Equal(t, http.StatusCreated, status, body)
	assert.NotEmpty(t, body["access_token"])
	assert.Equal(t, "amy", body["user"].(map[string]any)["username"])

	status, _ = post(t, app, "/register", dto.RegisterRequest{Email: "b@example.com", Username: "Amy", Password: "password123"})
	assert.Equal(t, http.StatusConflict, status)
	status, _ = post(t, app, "/register", dto.RegisterRequest{Email: "c@example.com", Username: "a", Password: "password123"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = post(t, app, "/login", dto.LoginRequest{Login: "amy", Password: "password123"})
	require.Equal(t, http.StatusOK, status)
	refresh := body["refresh_token"].(string)

	status, _ = post(t, app, "/login", dto.LoginRequest{Login: "amy", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = post(t, app, "/refresh", dto.RefreshRequest{RefreshToken: refresh})
	assert.Equal(t, http.StatusOK, status)
	status, _ = post(t, app, "/refresh", dto.RefreshRequest{RefreshToken: refresh})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestHealthCheck(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	registry := tenant.NewRegistry()
	registry.Register(&tenant.AppConfig{AppID: "riddles"})

	dbErr := error(nil)
	h := NewHealthHandler(registry, rdb, func() error { return dbErr })
	app := fiber.New()
	app.Get("/health", h.Check)

	check := func() dto.HealthResponse {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		var out dto.HealthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out
	}

	got := check()
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, "ok", got.Redis)
	assert.Equal(t, 1, got.AppCount)

	dbErr = errors.New("connection refused")
	mr.Close()
	got = check()
	assert.Equal(t, "degraded", got.Status)
	assert.Equal(t, "unhealthy: connection refused", got.DB)
	assert.Contains(t, got.Redis, "unhealthy")
}

type postsOnly map[string]bool

func (p postsOnly) ContentExists(_ context.Context, _, contentType, contentID string) (bool, error) {
	return contentType != "post" || p[contentID], nil
}

func TestCreateReport(t *testing.T) {
	db := newTestDB(t)
	user, err := newAuthService(db).Register("riddles", &dto.RegisterRequest{Email: "amy@example.com", Username: "amy", Password: "password123"})
	require.NoError(t, err)

	moderation := services.NewModerationService(db)
	moderation.SetContentChecker(postsOnly{"p1": true})
	h := NewModerationHandler(moderation)
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("app_id", "riddles")
		c.Locals("user", &jwt.Token{Claims: jwt.MapClaims{"sub": user.User.ID.String()}})
		return c.Next()
	})
	app.Post("/reports", h.CreateReport)

	status, body := post(t, app, "/reports", dto.CreateReportRequest{ContentType: "post", ContentID: "p1", Reason: "spoiler"})
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "pending", body["status"])

	status, _ = post(t, app, "/reports", dto.CreateReportRequest{ContentType: "post", ContentID: "p1", Reason: "spoiler"})
	assert.Equal(t, http.StatusConflict, status)
	status, _ = post(t, app, "/reports", dto.CreateReportRequest{ContentType: "post", ContentID: "gone", Reason: "spoiler"})
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = post(t, app, "/reports", dto.CreateReportRequest{ContentType: "riddle", ContentID: "p1", Reason: "spoiler"})
	assert.Equal(t, http.StatusBadRequest, status)
}
