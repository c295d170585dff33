package emojiriddle

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/community"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/jobs"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/levels"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Job names.
const (
	JobFirstSolverComment = "FIRST_SOLVER_COMMENT"
	JobPinnedTLDRComment  = "GAME_PINNED_TLDR_COMMENT"
	JobUserLevelUp        = "USER_LEVEL_UP"
)

const pinnedTLDRComment = "🎉 **Emoji Riddle** is a game where players create riddles using emojis 🤔➡️❓ and everyone else guesses the answer!\n" +
	"✨ Express your creativity with emoji puzzles and climb the leaderboard.\n" +
	"👉 Press \"Guess\" ✅ to submit your answer or \"Create\" ✍️ to make your own emoji riddle.\n" +
	"📩 Feedback is welcome!"

// JobRunner executes the game's deferred work. Jobs are delivered at least
// once, so each handler tolerates running twice.
type JobRunner struct {
	services func(appID string) (*Service, Platform, error)
	db       *gorm.DB
}

func NewJobRunner(services func(appID string) (*Service, Platform, error), db *gorm.DB) *JobRunner {
	return &JobRunner{services: services, db: db}
}

// Register binds the handlers to worker.
func (r *JobRunner) Register(w *jobs.Worker) {
	jobs.Handle(w, JobFirstSolverComment, r.FirstSolverComment)
	jobs.Handle(w, JobPinnedTLDRComment, r.PinnedTLDRComment)
	jobs.Handle(w, JobUserLevelUp, r.UserLevelUp)
}

// FirstSolverComment credits the first player who cracked a riddle.
func (r *JobRunner) FirstSolverComment(ctx context.Context, appID string, p FirstSolverPayload) error {
	_, platform, err := r.services(appID)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("u/%s has cracked the riddle first!", p.Username)
	if _, err := platform.SubmitComment(ctx, p.PostID, "", text); err != nil {
		return fmt.Errorf("failed to submit first solver comment: %w", err)
	}
	return nil
}

// PinnedTLDRComment explains the game under a new riddle and pins it.
func (r *JobRunner) PinnedTLDRComment(ctx context.Context, appID string, p PinnedCommentPayload) error {
	_, platform, err := r.services(appID)
	if err != nil {
		return err
	}
	comment, err := platform.SubmitComment(ctx, p.PostID, "", pinnedTLDRComment)
	if err != nil {
		return fmt.Errorf("failed to submit TLDR comment: %w", err)
	}
	if err := platform.DistinguishComment(ctx, comment.ID.String(), true); err != nil {
		return fmt.Errorf("failed to pin TLDR comment: %w", err)
	}
	return nil
}

// UserLevelUp messages the player, updates their flair, stores the sticky
// level fields and records the level reached. Each step runs independently;
// the joined failures are returned for logging.
func (r *JobRunner) UserLevelUp(ctx context.Context, appID string, p LevelUpPayload) error {
	svc, platform, err := r.services(appID)
	if err != nil {
		return err
	}
	settings, err := svc.GetGameSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load game settings: %w", err)
	}

	next := p.NextLevel
	errs := make([]error, 4)
	g := new(errgroup.Group)
	g.Go(func() error {
		subject := fmt.Sprintf("🎉 Emoji Riddle Level %d Unlocked! 🎉", next.Rank)
		body := fmt.Sprintf("**Well done, Riddle Genius!** 🧠✨\n\n"+
			"You've just leveled up to **Level %d: %s!** 🎉\n"+
			"Your riddle-solving skills have taken you to new heights.\n\n"+
			"As a Level %d player you get a fresh **%s** flair to show off your riddle prowess! 🌟\n\n"+
			"Keep the fun going in %s and share your new flair with the community! 🧩",
			next.Rank, next.Name, next.Rank, next.Name, settings.CommunityName)
		if err := platform.SendPrivateMessage(ctx, p.Username, subject, body); err != nil {
			errs[0] = fmt.Errorf("private message: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		err := platform.SetUserFlair(ctx, communityFlair(p.Username, next))
		if err != nil {
			errs[1] = fmt.Errorf("flair: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		err := svc.SaveUserData(ctx, p.Username, map[string]interface{}{
			userFieldLevelRank: next.Rank,
			userFieldLevelName: next.Name,
		})
		if err != nil {
			errs[2] = fmt.Errorf("user data: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := r.recordLevelUp(ctx, appID, p); err != nil {
			errs[3] = fmt.Errorf("level up record: %w", err)
		}
		return nil
	})
	g.Wait()

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("level up for %s: %w", p.Username, err)
	}
	return nil
}

func (r *JobRunner) recordLevelUp(ctx context.Context, appID string, p LevelUpPayload) error {
	if r.db == nil {
		return nil
	}
	rec := LevelUpRecord{
		AppID:     appID,
		Username:  p.Username,
		Rank:      p.NextLevel.Rank,
		PrevRank:  p.PrevLevel.Rank,
		LevelName: p.NextLevel.Name,
		Score:     p.Score,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
}

func communityFlair(username string, level levels.Level) community.FlairOptions {
	return community.FlairOptions{
		Username:        username,
		Text:            level.Name,
		BackgroundColor: level.BackgroundColor,
		TextColor:       level.TextColor,
	}
}
