package emojiriddle

import (
	"context"
	"fmt"
	"strings"

	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/community"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/config"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/jobs"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/levels"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/store"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/tenant"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Plugin implements the apps.Plugin interface for the Emoji Riddle game.
type Plugin struct {
	rdb       *redis.Client
	scheduler jobs.Scheduler
	registry  *tenant.Registry
	filter    ContentFilter
	levels    levels.Table
}

// New creates a new emojiriddle Plugin. It fails when the level table has
// gaps or duplicate ranks.
func New(rdb *redis.Client, scheduler jobs.Scheduler, registry *tenant.Registry, filter ContentFilter) (*Plugin, error) {
	return newPlugin(rdb, scheduler, registry, filter, levels.Default)
}

func newPlugin(rdb *redis.Client, scheduler jobs.Scheduler, registry *tenant.Registry, filter ContentFilter, table levels.Table) (*Plugin, error) {
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid level table: %w", err)
	}
	return &Plugin{
		rdb:       rdb,
		scheduler: scheduler,
		registry:  registry,
		filter:    filter,
		levels:    table,
	}, nil
}

func (p *Plugin) ID() string { return "emojiriddle" }

func (p *Plugin) Models() []interface{} {
	return append(community.Models(), &LevelUpRecord{})
}

// installation builds the per-app service. Redis keys are namespaced by app
// id and the community client is scoped to it.
func (p *Plugin) installation(db *gorm.DB, opts Options) Installation {
	return func(appID string) (*Service, *community.Client, error) {
		app := p.registry.Get(appID)
		if app == nil {
			return nil, nil, fmt.Errorf("unknown app %q", appID)
		}
		client := community.NewClient(db, appID)
		svc := NewService(Deps{
			Store:         store.New(p.rdb, appID),
			Platform:      client,
			Scheduler:     p.scheduler,
			Filter:        p.filter,
			Levels:        p.levels,
			AppID:         appID,
			CommunityName: app.CommunityName,
			Categories:    app.RiddleCategories,
			Options:       opts,
		})
		return svc, client, nil
	}
}

// ContentExists lets moderation refuse reports on riddle posts and guesses
// that are not stored. Guess ids are "<post id>:<guess>". Other content
// types are not checked here.
func (p *Plugin) ContentExists(ctx context.Context, appID, contentType, contentID string) (bool, error) {
	if p.registry.Get(appID) == nil {
		return false, nil
	}
	svc := NewService(Deps{Store: store.New(p.rdb, appID), AppID: appID})
	switch contentType {
	case "post":
		return svc.PostExists(ctx, contentID)
	case "guess":
		postID, guess, ok := strings.Cut(contentID, ":")
		if !ok || postID == "" || strings.TrimSpace(guess) == "" {
			return false, nil
		}
		return svc.GuessExists(ctx, postID, guess)
	}
	return true, nil
}

func (p *Plugin) RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	h := NewHandler(p.installation(db, OptionsFromConfig(cfg.Game)), db, p.levels)

	g := router.Group("/emojiriddle")
	g.Get("/settings", h.GetSettings)
	g.Get("/levels", h.GetLevels)

	g.Post("/riddles", h.CreateRiddle)
	g.Get("/riddles", h.GetRiddles)

	g.Get("/posts/:id", h.GetPost)
	g.Post("/posts/:id/guesses", h.SubmitGuess)
	g.Get("/posts/:id/guesses", h.GetGuesses)
	g.Post("/posts/:id/skip", h.Skip)
	g.Get("/posts/:id/guess-comments", h.GetGuessComments)
	g.Get("/posts/:id/guess-comments/:commentId", h.GetGuessComment)
	g.Get("/posts/:id/comments", h.GetComments)
	g.Get("/posts/:id/players", h.GetPlayers)
	g.Get("/posts/:id/me", h.GetMe)
	g.Put("/posts/:id/preview", h.UpdatePreview)
	g.Delete("/posts/:id/comments/:commentId", h.DeleteComment)

	g.Get("/scores", h.GetScores)
	g.Get("/scores/me", h.GetMyScore)
	g.Get("/users/:username/riddles", h.GetUserRiddles)

	g.Put("/me/data", h.SaveMyData)
	g.Get("/me/messages", h.GetMyMessages)
	g.Get("/me/levels", h.GetMyLevelUps)
}

func (p *Plugin) RegisterAdminRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	h := NewHandler(p.installation(db, OptionsFromConfig(cfg.Game)), db, p.levels)

	g := router.Group("/emojiriddle")
	g.Get("/posts/:id/answer", h.RevealAnswer)
	g.Post("/pinned", h.CreatePinnedPost)
	g.Put("/settings", h.StoreSettings)
}

// RegisterJobs binds the game's deferred work to the worker.
func (p *Plugin) RegisterJobs(w *jobs.Worker, db *gorm.DB, cfg *config.Config) {
	resolve := p.installation(db, OptionsFromConfig(cfg.Game))
	runner := NewJobRunner(func(appID string) (*Service, Platform, error) {
		svc, client, err := resolve(appID)
		if err != nil {
			return nil, nil, err
		}
		return svc, client, nil
	}, db)
	runner.Register(w)
}
