package emojiriddle

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/community"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/levels"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/store"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/tenant"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Installation resolves the game service and community client of an app.
type Installation func(appID string) (*Service, *community.Client, error)

// Handler handles HTTP requests for the Emoji Riddle game.
type Handler struct {
	installation Installation
	db           *gorm.DB
	levels       levels.Table
}

// NewHandler creates a new Handler.
func NewHandler(installation Installation, db *gorm.DB, table levels.Table) *Handler {
	if len(table) == 0 {
		table = levels.Default
	}
	return &Handler{installation: installation, db: db, levels: table}
}

func (h *Handler) resolve(c *fiber.Ctx) (*Service, *community.Client, error) {
	svc, client, err := h.installation(tenant.GetAppID(c))
	if err != nil {
		return nil, nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": "Unknown installation",
		})
	}
	return svc, client, nil
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": true, "message": "Unauthorized",
	})
}

// fail maps service errors to responses. Only validation, not found, wrong
// type and ownership errors reach the player; the rest are logged.
func fail(c *fiber.Ctx, err error, message string) error {
	var verr *ValidationError
	status := fiber.StatusInternalServerError
	switch {
	case errors.As(err, &verr):
		status, message = fiber.StatusBadRequest, verr.Message
	case errors.Is(err, store.ErrNotFound), errors.Is(err, community.ErrPostNotFound), errors.Is(err, community.ErrCommentNotFound):
		status, message = fiber.StatusNotFound, "Not found"
	case errors.Is(err, ErrWrongPostType):
		status, message = fiber.StatusBadRequest, "Not a riddle post"
	case errors.Is(err, ErrNotAuthor), errors.Is(err, community.ErrNotAuthor):
		status, message = fiber.StatusForbidden, "Only the author can do that"
	default:
		slog.Error("emojiriddle request failed",
			"app_id", tenant.GetAppID(c), "action", c.Method()+" "+c.Route().Path, "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": true, "message": message})
}

// GetSettings handles GET /api/p/emojiriddle/settings
func (h *Handler) GetSettings(c *fiber.Ctx) error {
	svc, _, err := h.resolve(c)
	if svc == nil {
		return err
	}
	settings, err := svc.GetGameSettings(c.UserContext())
	if err != nil {
		return fail(c, err, "Failed to get settings")
	}
	return c.JSON(settings)
}

// StoreSettings handles PUT /api/admin/emojiriddle/settings
func (h *Handler) StoreSettings(c *fiber.Ctx) error {
	svc, _, err := h.resolve(c)
	if svc == nil {
		return err
	}
	var req map[string]string
	if err := c.BodyParser(&req); err != nil || len(req) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": "Invalid request body",
		})
	}
	if err := svc.StoreGameSettings(c.UserContext(), req); err != nil {
		return fail(c, err, "Failed to store settings")
	}
	settings, err := svc.GetGameSettings(c.UserContext())
	if err != nil {
		return fail(c, err, "Failed to get settings")
	}
	return c.JSON(settings)
}

// GetLevels handles GET /api/p/emojiriddle/levels
func (h *Handler) GetLevels(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"levels": h.levels})
}

// CreateRiddle handles POST /api/p/emojiriddle/riddles
func (h *Handler) CreateRiddle(c *fiber.Ctx) error {
	svc, _, err := h.resolve(c)
	if svc == nil {
		return err
	}
	username, err := tenant.GetUsername(c)
	if err != nil {
		return unauthorized(c)
	}
	var form RiddleForm
	if err := c.BodyParser(&form); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": "Invalid request body",
		})
	}

	post, err := svc.CreateRiddle(c.UserContext(), username, form)
	if err != nil {
		return fail(c, err, "Failed to create riddle")
	}
	if post == nil {
		// Duplicate submission inside the lock window.
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"submitted": false})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"submitted": true, "post": post})
}

// GetRiddles handles GET /api/p/emojiriddle/riddles?ids=a,b,c
func (h *Handler) GetRiddles(c *fiber.Ctx) error {
	svc, _, err := h.resolve(c)
	if svc == nil {
		return err
	}
	var ids []string
	for _, id := range strings.Split(c.Query("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 || len(ids) > 100 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": "Between 1 and 100 ids are required",
		})
	}
	riddles, err := svc.GetGamePosts(c.UserContext(), ids)
	if err != nil {
		return fail(c, err, "Failed to get riddles")
	}
	return c.JSON(fiber.Map{"riddles": riddles})
}

// GetPost handles GET /api/p/emojiriddle/posts/:id
// The answer is only shown to the author and to players who solved it.
func (h *Handler) GetPost(c *fiber.Ctx) error {
	svc, _, err := h.resolve(c)
	if svc == nil {
		return err
	}
	ctx := c.UserContext()
	postID := c.Params("id")
	username, _ := tenant.GetUsername(c)

	postType, err := svc.GetPostType(ctx, postID)
	if err != nil {
		return fail(c, err, "Failed to get post")
	}
	if postType == store.PostTypePinned {
		pinned, err := svc.GetPinnedPost(ctx, postID)
		if err != nil {
			return fail(c, err, "Failed to get post")
		}
		return c.JSON(fiber.Map{"post_type": postType, "post": pinned})
	}

	post, err := svc.GetGamePost(ctx, postID)
	if err != nil {
		return fail(c, err, "Failed to get post")
	}
	user, err := svc.GetUser(ctx, username, postID)
	if err != nil {
		return fail(c, err, "Failed to get user")
	}
	if post.AuthorUsername != username && (user == nil || !user.Solved) {
		post.Answer = ""
	}
	return c.JSON(fiber.Map{"post_type": postType, "post": post, "user": user})
}

// SubmitGuess handles POST /api/p/emojiriddle/posts/:id/guesses
func (h *Handler) SubmitGuess(c *fiber.Ctx) error {
	svc, _, err := h.resolve(c)
	if svc == nil {
		return err
	}
	username, err := tenant.GetUsername(c)
	if err != nil {
		return unauthorized(c)
	}
	var req struct {
		Guess   string `json:"guess"`
		Comment bool   `json:"comment"`
	}
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Guess) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": "Guess is required",
		})
	}

	ctx := c.UserContext()
	post, err := svc.GetGamePost(ctx, c.Params("id"))
	if err != nil {
		return fail(c, err, "Failed to get post")
	}
	result := svc.SubmitGuess(ctx, post, username, req.Guess, req.Comment)
	return c.JSON(result)
}

// GetGuesses handles GET /api/p/emojiriddle/posts/:id/guesses
func (h *Handler) GetGuesses(c *fiber.Ctx) error {
	svc, _, err := h.resolve(c)
	if svc == nil {
		return err
	}
	guesses, err := svc.GetPostGuesses(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err, "Failed to get guesses")
	}
	return c.JSON(guesses)
}

// Skip handles POST /api/p/emojiriddle/posts/:id/skip
func (h *Handler) Skip(c *fiber.Ctx) error {
	svc, _, err := h.resolve(c)
	if svc == nil {
		return err
	}
	username, err := tenant.GetUsername(c)
	if err != nil {
		return unauthorized(c)
	}
	if err := svc.SkipPost(c.UserContext(), c.Params("id"), username); err != nil {
		return fail(c, err, "Failed to skip post")
	}
	return c.JSON(fiber.Map{"skipped": true})
}

// GetGuessComments handles GET /api/p/emojiriddle/posts/:id/guess-comments
func (h *Handler) GetGuessComments(c *fiber.Ctx) error {
	svc, _, err := h.resolve(c)
	if svc == nil {
		return err
	}
	comments, err := svc.GetGuessComments(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err, "Failed to get guess comments")
	}
	return c.JSON(fiber.Map{"guess_comments": comments})
}

// GetGuessComment handles GET /api/p/emojiriddle/posts/:id/guess-comments/:commentId
func (h *Handler) GetGuessComment(c *fiber.Ctx) error {
	svc, _, err := h.resolve(c)
	if svc == nil {
		return err
	}
	commentID := c.Params("commentId")
	guess, found, err := svc.GetGuessComment(c.UserContext(), c.Params("id"), commentID)
	if err != nil {
		return fail(c, err, "Failed to get guess comment")
	}
	if !found {
		return fail(c, community.ErrCommentNotFound, "")
	}
	return c.JSON(fiber.Map{"comment_id": commentID, "guess": guess})
}

// GetComments handles GET /api/p/emojiriddle/posts/:id/comments
func (h *Handler) GetComments(c *fiber.Ctx) error {
	_, client, err := h.resolve(c)
	if client == nil {
		return err
	}
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	comments, err := client.ListComments(c.UserContext(), c.Params("id"), limit)
	if err != nil {
		return fail(c, err, "Failed to get comments")
	}
	return c.JSON(fiber.Map{"comments": comments})
}

// GetPlayers handles GET /api/p/emojiriddle/posts/:id/players
func (h *Handler) GetPlayers(c *fiber.Ctx) error {
	svc, _, err := h.resolve(c)
	if svc == nil {
		return err
	}
	count, err := svc.GetPlayerCount(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err, "Failed to get player count")
	}
	return c.JSON(fiber.Map{"player_count": count})
}

// GetMe handles GET /api/p/emojiriddle/posts/:id/me
// The flair is decoration; failing to read it is logged and skipped.
func (h *Handler) GetMe(c *fiber.Ctx) error {
	svc, client, err := h.resolve(c)
	if svc == nil {
		return err
	}
	username, err := tenant.GetUsername(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx := c.UserContext()
	user, err := svc.GetUser(ctx, username, c.Params("id"))
	if err != nil {
		return fail(c, err, "Failed to get user")
	}
	flair, err := client.GetUserFlair(ctx, username)
	if err != nil {
		slog.Warn("failed to read flair", "app_id", tenant.GetAppID(c), "username", username, "error", err)
	}
	user.Flair = flair
	return c.JSON(user)
}

// UpdatePreview handles PUT /api/p/emojiriddle/posts/:id/preview
func (h *Handler) UpdatePreview(c *fiber.Ctx) error {
	svc, _, err := h.resolve(c)
	if svc == nil {
		return err
	}
	username, err := tenant.GetUsername(c)
	if err != nil {
		return unauthorized(c)
	}
	if err := svc.UpdateGamePostPreview(c.UserContext(), c.Params("id"), username); err != nil {
		return fail(c, err, "Failed to update preview")
	}
	return c.JSON(fiber.Map{"updated": true})
}

// DeleteComment handles DELETE /api/p/emojiriddle/posts/:id/comments/:commentId
func (h *Handler) DeleteComment(c *fiber.Ctx) error {
	svc, _, err := h.resolve(c)
	if svc == nil {
		return err
	}
	username, err := tenant.GetUsername(c)
	if err != nil {
		return unauthorized(c)
	}
	if err := svc.DeleteComment(c.UserContext(), c.Params("id"), c.Params("commentId"), username); err != nil {
		return fail(c, err, "Failed to delete comment")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SaveMyData handles PUT /api/p/emojiriddle/me/data
// Level fields are written by the level-up job only.
func (h *Handler) SaveMyData(c *fiber.Ctx) error {
	svc, _, err := h.resolve(c)
	if svc == nil {
		return err
	}
	username, err := tenant.GetUsername(c)
	if err != nil {
		return unauthorized(c)
	}
	var req map[string]interface{}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": "Invalid request body",
		})
	}
	delete(req, userFieldLevelRank)
	delete(req, userFieldLevelName)
	if len(req) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": "Nothing to save",
		})
	}
	if err := svc.SaveUserData(c.UserContext(), username, req); err != nil {
		return fail(c, err, "Failed to save user data")
	}
	return c.JSON(fiber.Map{"saved": true})
}

// GetScores handles GET /api/p/emojiriddle/scores?limit=10
func (h *Handler) GetScores(c *fiber.Ctx) error {
	svc, _, err := h.resolve(c)
	if svc == nil {
		return err
	}
	limit := c.QueryInt("limit", 10)
	if limit < 1 || limit > 100 {
		limit = 10
	}
	scores, err := svc.GetScores(c.UserContext(), limit)
	if err != nil {
		return fail(c, err, "Failed to get scores")
	}
	return c.JSON(fiber.Map{"scores": scores})
}

// GetMyScore handles GET /api/p/emojiriddle/scores/me
func (h *Handler) GetMyScore(c *fiber.Ctx) error {
	svc, _, err := h.resolve(c)
	if svc == nil {
		return err
	}
	username, err := tenant.GetUsername(c)
	if err != nil {
		return unauthorized(c)
	}
	score := svc.GetUserScore(c.UserContext(), username)
	level := h.levels.ByScore(score.Score)
	return c.JSON(fiber.Map{"rank": score.Rank, "score": score.Score, "level": level})
}

// GetUserRiddles handles GET /api/p/emojiriddle/users/:username/riddles?start=0&stop=9
func (h *Handler) GetUserRiddles(c *fiber.Ctx) error {
	svc, _, err := h.resolve(c)
	if svc == nil {
		return err
	}
	start := c.QueryInt("start", 0)
	stop := c.QueryInt("stop", start+9)
	if start < 0 || stop < start {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": "Invalid range",
		})
	}
	ids, err := svc.GetUserRiddles(c.UserContext(), c.Params("username"), int64(start), int64(stop))
	if err != nil {
		return fail(c, err, "Failed to get riddles")
	}
	return c.JSON(fiber.Map{"post_ids": ids})
}

// GetMyMessages handles GET /api/p/emojiriddle/me/messages
func (h *Handler) GetMyMessages(c *fiber.Ctx) error {
	_, client, err := h.resolve(c)
	if client == nil {
		return err
	}
	username, err := tenant.GetUsername(c)
	if err != nil {
		return unauthorized(c)
	}
	messages, err := client.ListPrivateMessages(c.UserContext(), username, c.QueryInt("limit", 20))
	if err != nil {
		return fail(c, err, "Failed to get messages")
	}
	return c.JSON(fiber.Map{"messages": messages})
}

// GetMyLevelUps handles GET /api/p/emojiriddle/me/levels
func (h *Handler) GetMyLevelUps(c *fiber.Ctx) error {
	username, err := tenant.GetUsername(c)
	if err != nil {
		return unauthorized(c)
	}
	var records []LevelUpRecord
	if err := h.db.WithContext(c.UserContext()).
		Scopes(tenant.ForTenant(tenant.GetAppID(c))).
		Where("username = ?", username).
		Order("rank ASC").
		Find(&records).Error; err != nil {
		return fail(c, err, "Failed to get level history")
	}
	return c.JSON(fiber.Map{"level_ups": records})
}

// RevealAnswer handles GET /api/admin/emojiriddle/posts/:id/answer
func (h *Handler) RevealAnswer(c *fiber.Ctx) error {
	svc, _, err := h.resolve(c)
	if svc == nil {
		return err
	}
	answer, err := svc.RevealAnswer(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err, "Failed to reveal answer")
	}
	return c.JSON(fiber.Map{"answer": answer})
}

// CreatePinnedPost handles POST /api/admin/emojiriddle/pinned
func (h *Handler) CreatePinnedPost(c *fiber.Ctx) error {
	svc, _, err := h.resolve(c)
	if svc == nil {
		return err
	}
	moderator, err := tenant.GetUsername(c)
	if err != nil {
		return unauthorized(c)
	}
	pinned, err := svc.CreatePinnedPost(c.UserContext(), moderator)
	if err != nil {
		return fail(c, err, "Failed to create pinned post")
	}
	if pinned == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": true, "message": "Community is not available",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(pinned)
}
