package emojiriddle

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/community"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/jobs"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testApp = "riddles"

// fakePlatform records every call made to the community.
type fakePlatform struct {
	mu            sync.Mutex
	posts         []community.Post
	previews      map[string]string
	sticky        map[string]bool
	comments      []community.Comment
	distinguished map[string]bool
	flairs        map[string]community.FlairOptions
	messages      []community.PrivateMessage
	commentErr    error
	flairErr      error
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		previews:      make(map[string]string),
		sticky:        make(map[string]bool),
		distinguished: make(map[string]bool),
		flairs:        make(map[string]community.FlairOptions),
	}
}

func (f *fakePlatform) SubmitPost(_ context.Context, opts community.SubmitPostOptions) (*community.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	post := community.Post{ID: uuid.New(), AppID: testApp, Title: opts.Title, AuthorUsername: opts.AuthorUsername, Preview: opts.Preview}
	f.posts = append(f.posts, post)
	return &post, nil
}

func (f *fakePlatform) SetPostPreview(_ context.Context, postID, preview string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.previews[postID] = preview
	return nil
}

func (f *fakePlatform) SetPostSticky(_ context.Context, postID string, sticky bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sticky[postID] = sticky
	return nil
}

func (f *fakePlatform) SubmitComment(_ context.Context, postID, author, body string) (*community.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commentErr != nil {
		return nil, f.commentErr
	}
	comment := community.Comment{
		ID:             uuid.New(),
		AppID:          testApp,
		PostID:         uuid.MustParse(postID),
		AuthorUsername: author,
		Body:           body,
		CreatedAt:      time.Now(),
	}
	f.comments = append(f.comments, comment)
	return &comment, nil
}

func (f *fakePlatform) DeleteComment(_ context.Context, commentID, username string) (*community.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.comments {
		if c.ID.String() != commentID {
			continue
		}
		if c.AuthorUsername != username {
			return nil, community.ErrNotAuthor
		}
		f.comments = append(f.comments[:i], f.comments[i+1:]...)
		return &c, nil
	}
	return nil, community.ErrCommentNotFound
}

func (f *fakePlatform) DistinguishComment(_ context.Context, commentID string, sticky bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.distinguished[commentID] = sticky
	return nil
}

func (f *fakePlatform) SetUserFlair(_ context.Context, opts community.FlairOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.flairErr != nil {
		return f.flairErr
	}
	f.flairs[opts.Username] = opts
	return nil
}

func (f *fakePlatform) SendPrivateMessage(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, community.PrivateMessage{ID: uuid.New(), To: to, Subject: subject, Body: body})
	return nil
}

func (f *fakePlatform) commentBodies() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	bodies := make([]string, len(f.comments))
	for i, c := range f.comments {
		bodies[i] = c.Body
	}
	return bodies
}

type fakeFilter struct{}

func (fakeFilter) FilterContent(text string) (bool, string) {
	if strings.Contains(strings.ToLower(text), "badword") {
		return false, "inappropriate_language"
	}
	return true, ""
}

func (fakeFilter) GetRejectionMessage(string) string {
	return "Your response contains inappropriate language."
}

// clock is a settable time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	svc      *Service
	platform *fakePlatform
	queue    *jobs.Queue
	store    *store.Store
	clock    *clock
	redis    *miniredis.Miniredis
	rdb      *redis.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	f := &fixture{
		platform: newFakePlatform(),
		queue:    jobs.NewQueue(client, time.Minute),
		store:    store.New(client, testApp),
		clock:    &clock{t: time.UnixMilli(1700000000000)},
		redis:    mr,
		rdb:      client,
	}
	f.svc = NewService(Deps{
		Store:         f.store,
		Platform:      f.platform,
		Scheduler:     f.queue,
		Filter:        fakeFilter{},
		AppID:         testApp,
		CommunityName: "emojiriddles",
		Categories:    []string{"Movie", "Animal"},
		Options:       DefaultOptions(),
		Now:           f.clock.Now,
	})
	return f
}

// pendingJobs returns the queued jobs with the given name.
func (f *fixture) pendingJobs(t *testing.T, name string) []jobs.Job {
	t.Helper()
	pending, err := f.queue.Pending(context.Background())
	require.NoError(t, err)
	var out []jobs.Job
	for _, j := range pending {
		if j.Name == name {
			out = append(out, j)
		}
	}
	return out
}

func decodePayload[T any](t *testing.T, job jobs.Job) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(job.Data, &v))
	return v
}

// seedRiddle stores a riddle post directly and returns it.
func (f *fixture) seedRiddle(t *testing.T, author, answer string) *GamePost {
	t.Helper()
	ctx := context.Background()
	postID := uuid.NewString()
	require.NoError(t, f.svc.SubmitRiddle(ctx, RiddleSubmission{
		PostID:         postID,
		Riddle:         "🐱 + 🎩",
		Category:       "Animal",
		Answer:         answer,
		AuthorUsername: author,
		Subreddit:      "emojiriddles",
	}))
	post, err := f.svc.GetGamePost(ctx, postID)
	require.NoError(t, err)
	return post
}

func (f *fixture) score(t *testing.T, username string) int64 {
	t.Helper()
	return f.svc.GetUserScore(context.Background(), username).Score
}
