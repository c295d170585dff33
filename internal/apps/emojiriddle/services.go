package emojiriddle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/community"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/config"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/jobs"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/levels"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/store"
	"golang.org/x/sync/errgroup"
)

var (
	ErrWrongPostType = errors.New("not a riddle post")
	ErrNotAuthor     = errors.New("not the author")

	errNoScheduler = errors.New("scheduler not available")
)

// User hash fields written on level-up.
const (
	userFieldLevelRank = "levelRank"
	userFieldLevelName = "levelName"
)

// Game settings hash fields with a typed meaning.
const (
	settingCommunityName    = "communityName"
	settingFeedbackDuration = "feedbackDuration"
)

// Platform is the community the game is hosted in.
type Platform interface {
	SubmitPost(ctx context.Context, opts community.SubmitPostOptions) (*community.Post, error)
	SetPostPreview(ctx context.Context, postID, preview string) error
	SetPostSticky(ctx context.Context, postID string, sticky bool) error
	SubmitComment(ctx context.Context, postID, author, body string) (*community.Comment, error)
	DeleteComment(ctx context.Context, commentID, username string) (*community.Comment, error)
	DistinguishComment(ctx context.Context, commentID string, sticky bool) error
	SetUserFlair(ctx context.Context, opts community.FlairOptions) error
	SendPrivateMessage(ctx context.Context, to, subject, body string) error
}

// Points are the score awards.
type Points struct {
	GuesserSolve       int64
	GuesserFirstSolve  int64
	AuthorCorrectGuess int64
	AuthorSubmit       int64
}

// Options are the installation independent game tunables.
type Options struct {
	Points            Points
	FeedbackDuration  int
	DefaultCategories []string
	LockWindow        time.Duration
	FirstSolverDelay  time.Duration
}

func DefaultOptions() Options {
	return Options{
		Points:            Points{GuesserSolve: 1, GuesserFirstSolve: 2, AuthorCorrectGuess: 1, AuthorSubmit: 1},
		FeedbackDuration:  10,
		DefaultCategories: []string{store.DefaultCategory},
		LockWindow:        5 * time.Second,
		FirstSolverDelay:  5 * time.Minute,
	}
}

func OptionsFromConfig(cfg config.Game) Options {
	return Options{
		Points: Points{
			GuesserSolve:       cfg.GuesserSolvePoints,
			GuesserFirstSolve:  cfg.GuesserFirstSolvePoints,
			AuthorCorrectGuess: cfg.AuthorCorrectGuessPoints,
			AuthorSubmit:       cfg.AuthorSubmitPoints,
		},
		FeedbackDuration:  cfg.FeedbackDuration,
		DefaultCategories: cfg.DefaultRiddleCategories,
		LockWindow:        cfg.SubmitLockWindow,
		FirstSolverDelay:  cfg.FirstSolverCommentDelay,
	}
}

// Deps wires a Service. Platform, Scheduler and Filter may be nil; operations
// that need a missing collaborator log and return a zero result.
type Deps struct {
	Store         *store.Store
	Platform      Platform
	Scheduler     jobs.Scheduler
	Filter        ContentFilter
	Levels        levels.Table
	AppID         string
	CommunityName string
	Categories    []string
	Options       Options
	Now           func() time.Time
}

// Service is the game backbone for one installation: riddle posts, guesses,
// the leaderboard, user progression and game settings.
type Service struct {
	store     *store.Store
	platform  Platform
	scheduler jobs.Scheduler
	filter    ContentFilter
	levels    levels.Table
	appID     string
	community string
	opts      Options
	now       func() time.Time
}

func NewService(deps Deps) *Service {
	s := &Service{
		store:     deps.Store,
		platform:  deps.Platform,
		scheduler: deps.Scheduler,
		filter:    deps.Filter,
		levels:    deps.Levels,
		appID:     deps.AppID,
		community: deps.CommunityName,
		opts:      deps.Options,
		now:       deps.Now,
	}
	if len(s.levels) == 0 {
		s.levels = levels.Default
	}
	if s.now == nil {
		s.now = time.Now
	}
	if len(s.opts.DefaultCategories) == 0 {
		s.opts.DefaultCategories = []string{store.DefaultCategory}
	}
	if len(deps.Categories) > 0 {
		s.opts.DefaultCategories = deps.Categories
	}
	return s
}

func (s *Service) nowMillis() float64 {
	return float64(s.now().UnixMilli())
}

func (s *Service) log() *slog.Logger {
	return slog.With("app_id", s.appID)
}

func (s *Service) schedule(ctx context.Context, name string, payload any, runAt time.Time) error {
	if s.scheduler == nil {
		return errNoScheduler
	}
	return s.scheduler.Schedule(ctx, name, s.appID, payload, runAt)
}

/*
 * Guesses
 */

// SubmitGuess tallies a guess and awards points. It returns what the guesser
// earned. A correct guess whose tally increment returns 1 is the first solve
// of the post; that single atomic increment is the only first-solve check.
// Comment creation and every write after the tally are best effort.
func (s *Service) SubmitGuess(ctx context.Context, post *GamePost, username, guess string, wantsComment bool) GuessResult {
	log := s.log().With("post_id", post.PostID, "username", username, "action", "submit_guess")
	if s.platform == nil || s.scheduler == nil {
		log.Error("platform or scheduler not available")
		return GuessResult{}
	}
	normalized := Normalize(guess)
	if normalized == "" || username == "" {
		log.Warn("empty guess or username")
		return GuessResult{}
	}

	var (
		comment    *community.Comment
		guessCount float64
	)
	g := new(errgroup.Group)
	if wantsComment {
		g.Go(func() error {
			comment = s.commentGuess(ctx, log, post.PostID, username, guess)
			return nil
		})
	}
	g.Go(func() error {
		n, err := s.store.ZIncrBy(ctx, s.store.PostGuessesKey(post.PostID), normalized, 1)
		guessCount = n
		return err
	})
	if err := g.Wait(); err != nil {
		log.Error("failed to tally guess", "error", err)
		return GuessResult{}
	}

	isCorrect := normalized == Normalize(post.Answer)
	isFirstSolve := isCorrect && guessCount == 1

	var points int64
	if isCorrect {
		points = s.opts.Points.GuesserSolve
		if isFirstSolve {
			points += s.opts.Points.GuesserFirstSolve
		}
	}

	g = new(errgroup.Group)
	g.Go(func() error {
		if _, err := s.store.ZIncrBy(ctx, s.store.PostUserGuessCounterKey(post.PostID), username, 1); err != nil {
			log.Error("failed to count player guess", "error", err)
		}
		return nil
	})
	if comment != nil {
		g.Go(func() error {
			if err := s.SaveGuessComment(ctx, post.PostID, normalized, comment.ID.String(), comment.CreatedAt); err != nil {
				log.Error("failed to save guess comment", "error", err)
			}
			return nil
		})
	}
	if isCorrect {
		// Keeps the first solve time; points are paid on every correct guess.
		g.Go(func() error {
			if _, err := s.store.ZAddNX(ctx, s.store.PostSolvedKey(post.PostID), username, s.nowMillis()); err != nil {
				log.Error("failed to record solve", "error", err)
			}
			return nil
		})
		g.Go(func() error {
			if _, err := s.IncrementUserScore(ctx, post.AuthorUsername, s.opts.Points.AuthorCorrectGuess); err != nil {
				log.Error("failed to reward author", "author", post.AuthorUsername, "error", err)
			}
			return nil
		})
		g.Go(func() error {
			if _, err := s.IncrementUserScore(ctx, username, points); err != nil {
				log.Error("failed to reward guesser", "error", err)
			}
			return nil
		})
	}
	if isFirstSolve {
		g.Go(func() error {
			payload := FirstSolverPayload{PostID: post.PostID, Username: username}
			if err := s.schedule(ctx, JobFirstSolverComment, payload, s.now().Add(s.opts.FirstSolverDelay)); err != nil {
				log.Error("failed to schedule first solver comment", "error", err)
			}
			return nil
		})
	}
	g.Wait()

	return GuessResult{Correct: isCorrect, Points: points}
}

func (s *Service) commentGuess(ctx context.Context, log *slog.Logger, postID, username, guess string) *community.Comment {
	if s.filter != nil {
		if ok, reason := s.filter.FilterContent(guess); !ok {
			log.Warn("guess comment filtered", "reason", reason)
			return nil
		}
	}
	comment, err := s.platform.SubmitComment(ctx, postID, username, fmt.Sprintf("I guessed **%s**", guess))
	if err != nil {
		log.Error("failed to comment guess", "error", err)
		return nil
	}
	return comment
}

// SkipPost records that username gave up on the post.
func (s *Service) SkipPost(ctx context.Context, postID, username string) error {
	_, err := s.store.ZAddNX(ctx, s.store.PostSkippedKey(postID), username, s.nowMillis())
	return err
}

// GetPlayerCount is the number of distinct players who guessed on the post.
func (s *Service) GetPlayerCount(ctx context.Context, postID string) (int64, error) {
	return s.store.ZCard(ctx, s.store.PostUserGuessCounterKey(postID))
}

// GetPostGuesses reads the whole tally of a post.
func (s *Service) GetPostGuesses(ctx context.Context, postID string) (*PostGuesses, error) {
	var (
		members []store.Member
		players int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		members, err = s.store.ZRange(gctx, s.store.PostGuessesKey(postID), 0, -1, false)
		return err
	})
	g.Go(func() error {
		var err error
		players, err = s.GetPlayerCount(gctx, postID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to read guesses: %w", err)
	}

	result := &PostGuesses{
		Guesses:     make(map[string]int64, len(members)),
		PlayerCount: players,
	}
	for _, m := range members {
		count := int64(m.Score)
		result.Guesses[m.Member] = count
		result.GuessCount += count
		result.WordCount++
	}
	return result, nil
}

/*
 * Guess comments
 */

// SaveGuessComment links a public comment to the guess it announced.
func (s *Service) SaveGuessComment(ctx context.Context, postID, guess, commentID string, createdAt time.Time) error {
	value := store.EncodeGuessComment(store.GuessCommentRecord{Guess: guess, CreatedAt: createdAt.UnixMilli()})
	return s.store.HSet(ctx, s.store.GuessCommentsKey(postID), map[string]string{commentID: value})
}

// GetGuessComments groups comment ids by guess, oldest comment first.
// Unreadable entries are skipped.
func (s *Service) GetGuessComments(ctx context.Context, postID string) (map[string][]string, error) {
	key := s.store.GuessCommentsKey(postID)
	data, err := s.store.HGetAll(ctx, key)
	if err != nil {
		return nil, err
	}

	type entry struct {
		id string
		at int64
	}
	grouped := make(map[string][]entry)
	for commentID, raw := range data {
		rec, err := store.DecodeGuessComment(key, commentID, raw)
		if err != nil {
			s.log().Warn("skipping guess comment", "post_id", postID, "error", err)
			continue
		}
		grouped[rec.Guess] = append(grouped[rec.Guess], entry{id: commentID, at: rec.CreatedAt})
	}

	result := make(map[string][]string, len(grouped))
	for guess, entries := range grouped {
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].at != entries[j].at {
				return entries[i].at < entries[j].at
			}
			return entries[i].id < entries[j].id
		})
		ids := make([]string, len(entries))
		for i, e := range entries {
			ids[i] = e.id
		}
		result[guess] = ids
	}
	return result, nil
}

// GetGuessComment returns the guess a comment announced.
func (s *Service) GetGuessComment(ctx context.Context, postID, commentID string) (string, bool, error) {
	key := s.store.GuessCommentsKey(postID)
	raw, found, err := s.store.HGet(ctx, key, commentID)
	if err != nil || !found {
		return "", false, err
	}
	rec, err := store.DecodeGuessComment(key, commentID, raw)
	if err != nil {
		return "", false, err
	}
	return rec.Guess, true, nil
}

func (s *Service) RemoveGuessComment(ctx context.Context, postID, commentID string) error {
	return s.store.HDel(ctx, s.store.GuessCommentsKey(postID), commentID)
}

// DeleteComment deletes the player's own comment and unlinks it from its guess.
func (s *Service) DeleteComment(ctx context.Context, postID, commentID, username string) error {
	if s.platform == nil {
		s.log().Error("platform not available", "action", "delete_comment")
		return nil
	}
	if _, err := s.platform.DeleteComment(ctx, commentID, username); err != nil {
		return err
	}
	if err := s.RemoveGuessComment(ctx, postID, commentID); err != nil {
		s.log().Error("failed to unlink guess comment", "post_id", postID, "comment_id", commentID, "error", err)
	}
	return nil
}

/*
 * Scores
 */

// GetScores returns the top n of the leaderboard, highest first.
func (s *Service) GetScores(ctx context.Context, n int) ([]ScoreBoardEntry, error) {
	if n <= 0 {
		n = 10
	}
	members, err := s.store.ZRange(ctx, s.store.ScoresKey(), 0, int64(n-1), true)
	if err != nil {
		return nil, err
	}
	entries := make([]ScoreBoardEntry, len(members))
	for i, m := range members {
		entries[i] = ScoreBoardEntry{Member: m.Member, Score: int64(m.Score)}
	}
	return entries, nil
}

// GetUserScore returns the user's rank and score, {-1, 0} when unknown or on
// failure.
func (s *Service) GetUserScore(ctx context.Context, username string) UserScore {
	result := UserScore{Rank: -1}
	if username == "" {
		return result
	}

	var (
		rank             int64
		score            float64
		ranked, hasScore bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rank, ranked, err = s.store.ZRevRank(gctx, s.store.ScoresKey(), username)
		return err
	})
	g.Go(func() error {
		var err error
		score, hasScore, err = s.store.ZScore(gctx, s.store.ScoresKey(), username)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log().Error("failed to read user score", "username", username, "error", err)
		return result
	}
	if ranked {
		result.Rank = rank
	}
	if hasScore {
		result.Score = int64(score)
	}
	return result
}

// IncrementUserScore adds amount to the user's score with a single atomic
// increment and schedules a level-up job when the new score crosses into a
// higher level. The prior score is read separately, so a race can at worst
// duplicate or miss a level-up notification, never lose points.
func (s *Service) IncrementUserScore(ctx context.Context, username string, amount int64) (int64, error) {
	key := s.store.ScoresKey()

	prev, _, prevErr := s.store.ZScore(ctx, key, username)
	if prevErr != nil {
		s.log().Warn("failed to read previous score", "username", username, "error", prevErr)
	}
	next, err := s.store.ZIncrBy(ctx, key, username, float64(amount))
	if err != nil {
		return 0, fmt.Errorf("failed to increment score: %w", err)
	}
	nextScore := int64(next)
	if prevErr != nil {
		return nextScore, nil
	}

	prevLevel := s.levels.ByScore(int64(prev))
	nextLevel := s.levels.ByScore(nextScore)
	if nextLevel.Rank > prevLevel.Rank {
		payload := LevelUpPayload{Username: username, Score: nextScore, PrevLevel: prevLevel, NextLevel: nextLevel}
		if err := s.schedule(ctx, JobUserLevelUp, payload, s.now()); err != nil {
			s.log().Error("failed to schedule level up", "username", username, "error", err)
		}
	}
	return nextScore, nil
}

/*
 * Posts
 */

// GetPostType defaults to game for posts stored without a type.
func (s *Service) GetPostType(ctx context.Context, postID string) (store.PostType, error) {
	v, found, err := s.store.HGet(ctx, s.store.PostDataKey(postID), store.FieldPostType)
	if err != nil {
		return "", err
	}
	if !found || v == "" {
		return store.PostTypeGame, nil
	}
	return store.PostType(v), nil
}

// GetGamePost returns store.ErrNotFound for unknown posts and ErrWrongPostType
// for pinned ones.
func (s *Service) GetGamePost(ctx context.Context, postID string) (*GamePost, error) {
	key := s.store.PostDataKey(postID)
	var (
		data          map[string]string
		solves, skips int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data, err = s.store.HGetAll(gctx, key)
		return err
	})
	g.Go(func() error {
		var err error
		solves, err = s.store.ZCard(gctx, s.store.PostSolvedKey(postID))
		return err
	})
	g.Go(func() error {
		var err error
		skips, err = s.store.ZCard(gctx, s.store.PostSkippedKey(postID))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rec, err := store.DecodePostRecord(key, data)
	if err != nil {
		return nil, err
	}
	if rec.PostType != store.PostTypeGame {
		return nil, ErrWrongPostType
	}
	return &GamePost{
		PostID:         rec.PostID,
		PostType:       rec.PostType,
		Category:       rec.Category,
		Riddle:         rec.Riddle,
		Answer:         rec.Answer,
		AuthorUsername: rec.AuthorUsername,
		Date:           rec.Date.UnixMilli(),
		Solves:         solves,
		Skips:          skips,
	}, nil
}

// PostExists reports whether a post record is stored under postID.
func (s *Service) PostExists(ctx context.Context, postID string) (bool, error) {
	_, found, err := s.store.HGet(ctx, s.store.PostDataKey(postID), store.FieldPostID)
	return found, err
}

// GuessExists reports whether anybody guessed guess on postID.
func (s *Service) GuessExists(ctx context.Context, postID, guess string) (bool, error) {
	_, found, err := s.store.ZScore(ctx, s.store.PostGuessesKey(postID), Normalize(guess))
	return found, err
}

// GetGamePosts returns the riddle text of each post in order. Unknown posts
// get an empty riddle.
func (s *Service) GetGamePosts(ctx context.Context, postIDs []string) ([]RiddleSummary, error) {
	result := make([]RiddleSummary, len(postIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range postIDs {
		i, id := i, id
		g.Go(func() error {
			riddle, _, err := s.store.HGet(gctx, s.store.PostDataKey(id), store.FieldRiddle)
			result[i] = RiddleSummary{PostID: id, Riddle: riddle}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetUserRiddles lists the post ids authored by username, newest first,
// between ranks start and stop inclusive.
func (s *Service) GetUserRiddles(ctx context.Context, username string, start, stop int64) ([]string, error) {
	members, err := s.store.ZRange(ctx, s.store.UserRiddlesKey(username), start, stop, true)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.Member
	}
	return ids, nil
}

// RevealAnswer returns the answer of a riddle post.
func (s *Service) RevealAnswer(ctx context.Context, postID string) (string, error) {
	postType, err := s.GetPostType(ctx, postID)
	if err != nil {
		return "", err
	}
	if postType != store.PostTypeGame {
		return "", ErrWrongPostType
	}
	post, err := s.GetGamePost(ctx, postID)
	if err != nil {
		return "", err
	}
	return post.Answer, nil
}

func previewText(riddle string, playerCount int64) string {
	switch playerCount {
	case 0:
		return riddle
	case 1:
		return riddle + "\n1 player guessed"
	default:
		return fmt.Sprintf("%s\n%d players guessed", riddle, playerCount)
	}
}

// UpdateGamePostPreview refreshes the post preview with the current player
// count. Only the author may do it. Platform failures are logged and
// swallowed.
func (s *Service) UpdateGamePostPreview(ctx context.Context, postID, username string) error {
	postType, err := s.GetPostType(ctx, postID)
	if err != nil {
		return err
	}
	if postType != store.PostTypeGame {
		return ErrWrongPostType
	}

	var (
		post    *GamePost
		players int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		post, err = s.GetGamePost(gctx, postID)
		return err
	})
	g.Go(func() error {
		var err error
		players, err = s.GetPlayerCount(gctx, postID)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if post.AuthorUsername != username {
		return ErrNotAuthor
	}

	if s.platform == nil {
		s.log().Error("platform not available", "action", "update_preview")
		return nil
	}
	if err := s.platform.SetPostPreview(ctx, postID, previewText(post.Riddle, players)); err != nil {
		s.log().Error("failed updating riddle preview", "post_id", postID, "error", err)
	}
	return nil
}

/*
 * Riddle submission
 */

// CreateRiddle validates the form, takes the author's submission lock, creates
// the platform post and stores the riddle. A held lock means a duplicate
// submission: nothing happens and (nil, nil) is returned.
func (s *Service) CreateRiddle(ctx context.Context, author string, form RiddleForm) (*GamePost, error) {
	if author == "" {
		return nil, invalid("Please log in to post")
	}
	settings, err := s.GetGameSettings(ctx)
	if err != nil {
		return nil, err
	}
	if err := ValidateSubmission(form, settings.RiddleCategories, s.filter); err != nil {
		return nil, err
	}

	locked, err := s.store.AcquireLock(ctx, s.store.LockKey(author), s.opts.LockWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to take submission lock: %w", err)
	}
	if !locked {
		s.log().Info("duplicate riddle submission ignored", "username", author)
		return nil, nil
	}

	if s.platform == nil {
		s.log().Error("platform not available", "action", "create_riddle")
		return nil, nil
	}
	category := strings.TrimSpace(form.Category)
	riddle := strings.TrimSpace(form.Riddle)
	post, err := s.platform.SubmitPost(ctx, community.SubmitPostOptions{
		Title:          "What is this? " + category,
		AuthorUsername: author,
		Preview:        previewText(riddle, 0),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	submission := RiddleSubmission{
		PostID:         post.ID.String(),
		Riddle:         riddle,
		Category:       category,
		Answer:         strings.TrimSpace(form.Answer),
		AuthorUsername: author,
		Subreddit:      settings.CommunityName,
	}
	if err := s.SubmitRiddle(ctx, submission); err != nil {
		return nil, err
	}
	return s.GetGamePost(ctx, submission.PostID)
}

// SubmitRiddle stores a riddle post. Only the post record write can fail the
// call; indexing, the pinned comment job and the author reward are attempted
// independently and their failures are logged. Without a scheduler the post
// is still stored, only the pinned comment is skipped.
func (s *Service) SubmitRiddle(ctx context.Context, sub RiddleSubmission) error {
	log := s.log().With("post_id", sub.PostID, "username", sub.AuthorUsername, "action", "submit_riddle")
	now := s.now()
	rec := store.PostRecord{
		PostID:         sub.PostID,
		PostType:       store.PostTypeGame,
		Riddle:         sub.Riddle,
		Answer:         sub.Answer,
		Category:       sub.Category,
		AuthorUsername: sub.AuthorUsername,
		Subreddit:      sub.Subreddit,
		Date:           now,
	}
	if err := s.store.HSet(ctx, s.store.PostDataKey(sub.PostID), rec.Fields()); err != nil {
		return fmt.Errorf("failed to save riddle: %w", err)
	}

	ts := float64(now.UnixMilli())
	g := new(errgroup.Group)
	g.Go(func() error {
		if err := s.store.ZAdd(ctx, s.store.UserRiddlesKey(sub.AuthorUsername), sub.PostID, ts); err != nil {
			log.Error("failed to index riddle by author", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.store.ZAdd(ctx, s.store.WordRiddlesKey(Normalize(sub.Answer)), sub.PostID, ts); err != nil {
			log.Error("failed to index riddle by answer", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.schedule(ctx, JobPinnedTLDRComment, PinnedCommentPayload{PostID: sub.PostID}, now); err != nil {
			log.Error("failed to schedule pinned comment", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		if _, err := s.IncrementUserScore(ctx, sub.AuthorUsername, s.opts.Points.AuthorSubmit); err != nil {
			log.Error("failed to reward submission", "error", err)
		}
		return nil
	})
	g.Wait()
	return nil
}

/*
 * Pinned post
 */

func (s *Service) SavePinnedPost(ctx context.Context, postID string) error {
	rec := store.PostRecord{PostID: postID, PostType: store.PostTypePinned}
	return s.store.HSet(ctx, s.store.PostDataKey(postID), rec.Fields())
}

func (s *Service) GetPinnedPost(ctx context.Context, postID string) (*PinnedPost, error) {
	v, found, err := s.store.HGet(ctx, s.store.PostDataKey(postID), store.FieldPostType)
	if err != nil {
		return nil, err
	}
	postType := store.PostTypePinned
	if found && v != "" {
		postType = store.PostType(v)
	}
	return &PinnedPost{PostID: postID, PostType: postType}, nil
}

// CreatePinnedPost creates the sticky hub post of the installation.
func (s *Service) CreatePinnedPost(ctx context.Context, moderator string) (*PinnedPost, error) {
	if s.platform == nil {
		s.log().Error("platform not available", "action", "create_pinned_post")
		return nil, nil
	}
	post, err := s.platform.SubmitPost(ctx, community.SubmitPostOptions{
		Title:          "Emoji Riddle: guess, create and climb the leaderboard",
		AuthorUsername: moderator,
		Preview:        "🤔➡️❓",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pinned post: %w", err)
	}
	postID := post.ID.String()
	if err := s.SavePinnedPost(ctx, postID); err != nil {
		return nil, err
	}
	if err := s.platform.SetPostSticky(ctx, postID, true); err != nil {
		s.log().Error("failed to sticky pinned post", "post_id", postID, "error", err)
	}
	return &PinnedPost{PostID: postID, PostType: store.PostTypePinned}, nil
}

/*
 * Game settings
 */

func (s *Service) StoreGameSettings(ctx context.Context, settings map[string]string) error {
	return s.store.HSet(ctx, s.store.GameSettingsKey(), settings)
}

// GetGameSettings merges the settings hash with the installation's category
// list and tunables.
func (s *Service) GetGameSettings(ctx context.Context) (*GameSettings, error) {
	data, err := s.store.HGetAll(ctx, s.store.GameSettingsKey())
	if err != nil {
		return nil, err
	}
	settings := &GameSettings{
		CommunityName:    s.community,
		RiddleCategories: s.opts.DefaultCategories,
		FeedbackDuration: s.opts.FeedbackDuration,
		Extra:            make(map[string]string),
	}
	for k, v := range data {
		switch k {
		case settingCommunityName:
			if v != "" {
				settings.CommunityName = v
			}
		case settingFeedbackDuration:
			if n, err := strconv.Atoi(v); err == nil {
				settings.FeedbackDuration = n
			}
		default:
			settings.Extra[k] = v
		}
	}
	return settings, nil
}

/*
 * User data
 */

// SaveUserData writes fields to the user hash, stringifying values.
func (s *Service) SaveUserData(ctx context.Context, username string, data map[string]interface{}) error {
	fields := make(map[string]string, len(data))
	for k, v := range data {
		fields[k] = fmt.Sprint(v)
	}
	return s.store.HSet(ctx, s.store.UserDataKey(username), fields)
}

// GetUser returns the player's progression and state on postID, nil for an
// anonymous player. Sticky level fields win over the score-derived level.
func (s *Service) GetUser(ctx context.Context, username, postID string) (*UserData, error) {
	if username == "" {
		return nil, nil
	}
	var (
		data            map[string]string
		solved, skipped bool
		guessCount      float64
		score           UserScore
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data, err = s.store.HGetAll(gctx, s.store.UserDataKey(username))
		return err
	})
	g.Go(func() error {
		var err error
		_, solved, err = s.store.ZScore(gctx, s.store.PostSolvedKey(postID), username)
		return err
	})
	g.Go(func() error {
		var err error
		_, skipped, err = s.store.ZScore(gctx, s.store.PostSkippedKey(postID), username)
		return err
	})
	g.Go(func() error {
		var err error
		guessCount, _, err = s.store.ZScore(gctx, s.store.PostUserGuessCounterKey(postID), username)
		return err
	})
	g.Go(func() error {
		score = s.GetUserScore(gctx, username)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	level := s.levels.ByScore(score.Score)
	user := &UserData{
		Score:      score.Score,
		LevelRank:  level.Rank,
		LevelName:  level.Name,
		Solved:     solved,
		Skipped:    skipped,
		GuessCount: int64(guessCount),
	}
	if raw, ok := data[userFieldLevelRank]; ok {
		rank, err := store.ParseInt(s.store.UserDataKey(username), userFieldLevelRank, raw)
		if err != nil {
			s.log().Warn("ignoring sticky level rank", "username", username, "error", err)
		} else {
			user.LevelRank = int(rank)
			if l, ok := s.levels.ByRank(user.LevelRank); ok {
				user.LevelName = l.Name
			}
		}
	}
	if name, ok := data[userFieldLevelName]; ok && name != "" {
		user.LevelName = name
	}
	return user, nil
}
