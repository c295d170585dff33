package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ScoresTag names the leaderboard sorted set.
const ScoresTag = "default"

// Store is the shared key-value / sorted-set store. Every single operation is
// atomic on the server; nothing spanning two calls is.
type Store struct {
	client    *redis.Client
	namespace string
}

// New wraps client. Keys are prefixed with namespace when it is not empty, so
// one redis can host several installations.
func New(client *redis.Client, namespace string) *Store {
	return &Store{client: client, namespace: namespace}
}

func (s *Store) key(format string, args ...interface{}) string {
	k := fmt.Sprintf(format, args...)
	if s.namespace == "" {
		return k
	}
	return s.namespace + ":" + k
}

// Key names, one hash or sorted set per concern.

func (s *Store) GameSettingsKey() string {
	return s.key("game-settings")
}

func (s *Store) GuessCommentsKey(postID string) string {
	return s.key("guess-comments:%s", postID)
}

func (s *Store) PostDataKey(postID string) string {
	return s.key("post:%s", postID)
}

func (s *Store) PostGuessesKey(postID string) string {
	return s.key("guesses:%s", postID)
}

func (s *Store) PostSkippedKey(postID string) string {
	return s.key("skipped:%s", postID)
}

func (s *Store) PostSolvedKey(postID string) string {
	return s.key("solved:%s", postID)
}

func (s *Store) PostUserGuessCounterKey(postID string) string {
	return s.key("user-guess-counter:%s", postID)
}

func (s *Store) ScoresKey() string {
	return s.key("scores:%s", ScoresTag)
}

func (s *Store) UserDataKey(username string) string {
	return s.key("users:%s", username)
}

func (s *Store) UserRiddlesKey(username string) string {
	return s.key("user-riddles:%s", username)
}

func (s *Store) WordRiddlesKey(word string) string {
	return s.key("word-riddles:%s", word)
}

func (s *Store) LockKey(username string) string {
	return s.key("locked:%s", username)
}

// Member is one sorted set entry.
type Member struct {
	Member string  `json:"member"`
	Score  float64 `json:"score"`
}

// AcquireLock sets key only if it does not exist, expiring after ttl.
// It returns false when somebody else holds the lock.
func (s *Store) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, "true", ttl).Result()
}

// HGet returns a hash field. found is false when the field is missing.
func (s *Store) HGet(ctx context.Context, key, field string) (value string, found bool, err error) {
	value, err = s.client.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// HGetAll returns every field of a hash; an empty map when it does not exist.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return s.client.HGetAll(ctx, key).Result()
}

// HSet writes the given fields.
func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	values := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		values[k] = v
	}
	return s.client.HSet(ctx, key, values).Err()
}

// HDel removes fields from a hash.
func (s *Store) HDel(ctx context.Context, key string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	return s.client.HDel(ctx, key, fields...).Err()
}

// ZAdd adds or updates a member.
func (s *Store) ZAdd(ctx context.Context, key, member string, score float64) error {
	return s.client.ZAdd(ctx, key, &redis.Z{Score: score, Member: member}).Err()
}

// ZAddNX adds member only if it is not present yet. It reports whether it was
// added.
func (s *Store) ZAddNX(ctx context.Context, key, member string, score float64) (bool, error) {
	n, err := s.client.ZAddNX(ctx, key, &redis.Z{Score: score, Member: member}).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ZIncrBy atomically adds amount to member's score and returns the new score.
func (s *Store) ZIncrBy(ctx context.Context, key, member string, amount float64) (float64, error) {
	return s.client.ZIncrBy(ctx, key, amount, member).Result()
}

// ZCard returns the number of members.
func (s *Store) ZCard(ctx context.Context, key string) (int64, error) {
	return s.client.ZCard(ctx, key).Result()
}

// ZScore returns member's score. found is false when it is not a member.
func (s *Store) ZScore(ctx context.Context, key, member string) (score float64, found bool, err error) {
	score, err = s.client.ZScore(ctx, key, member).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return score, true, nil
}

// ZRevRank returns member's zero-based rank by descending score.
func (s *Store) ZRevRank(ctx context.Context, key, member string) (rank int64, found bool, err error) {
	rank, err = s.client.ZRevRank(ctx, key, member).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return rank, true, nil
}

// ZRange returns members between rank start and stop inclusive. With reverse
// the ranks count from the highest score. Ties keep redis' native
// lexicographic member order.
func (s *Store) ZRange(ctx context.Context, key string, start, stop int64, reverse bool) ([]Member, error) {
	var (
		zs  []redis.Z
		err error
	)
	if reverse {
		zs, err = s.client.ZRevRangeWithScores(ctx, key, start, stop).Result()
	} else {
		zs, err = s.client.ZRangeWithScores(ctx, key, start, stop).Result()
	}
	if err != nil {
		return nil, err
	}
	members := make([]Member, 0, len(zs))
	for _, z := range zs {
		m, ok := z.Member.(string)
		if !ok {
			return nil, &CorruptRecordError{Key: key, Reason: fmt.Sprintf("member of type %T", z.Member)}
		}
		members = append(members, Member{Member: m, Score: z.Score})
	}
	return members, nil
}
