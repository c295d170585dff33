package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// CorruptRecordError reports a stored record that does not match its schema.
type CorruptRecordError struct {
	Key    string
	Field  string
	Reason string
}

func (e *CorruptRecordError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("corrupt record %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("corrupt record %s field %q: %s", e.Key, e.Field, e.Reason)
}

// PostType tags what kind of post a post hash describes.
type PostType string

const (
	PostTypeGame   PostType = "game"
	PostTypePinned PostType = "pinned"
)

// Post hash fields.
const (
	FieldPostID         = "postId"
	FieldPostType       = "postType"
	FieldRiddle         = "riddle"
	FieldAnswer         = "answer"
	FieldCategory       = "category"
	FieldAuthorUsername = "authorUsername"
	FieldDate           = "date"
	FieldSubreddit      = "subreddit"
)

// DefaultCategory is used for game posts stored without a category.
const DefaultCategory = "Riddle"

// PostRecord is the decoded post hash.
type PostRecord struct {
	PostID         string
	PostType       PostType
	Riddle         string
	Answer         string
	Category       string
	AuthorUsername string
	Subreddit      string
	Date           time.Time
}

// Fields encodes the record for HSET.
func (r *PostRecord) Fields() map[string]string {
	fields := map[string]string{
		FieldPostID:   r.PostID,
		FieldPostType: string(r.PostType),
	}
	if r.PostType == PostTypePinned {
		return fields
	}
	fields[FieldRiddle] = r.Riddle
	fields[FieldAnswer] = r.Answer
	fields[FieldCategory] = r.Category
	fields[FieldAuthorUsername] = r.AuthorUsername
	fields[FieldDate] = strconv.FormatInt(r.Date.UnixMilli(), 10)
	if r.Subreddit != "" {
		fields[FieldSubreddit] = r.Subreddit
	}
	return fields
}

// DecodePostRecord validates the raw hash stored under key. An empty hash is
// ErrNotFound.
func DecodePostRecord(key string, data map[string]string) (*PostRecord, error) {
	if len(data) == 0 {
		return nil, ErrNotFound
	}
	rec := &PostRecord{
		PostID:   data[FieldPostID],
		PostType: PostType(data[FieldPostType]),
	}
	if rec.PostID == "" {
		return nil, &CorruptRecordError{Key: key, Field: FieldPostID, Reason: "missing"}
	}
	switch rec.PostType {
	case PostTypePinned:
		return rec, nil
	case "", PostTypeGame:
		rec.PostType = PostTypeGame
	default:
		return nil, &CorruptRecordError{Key: key, Field: FieldPostType, Reason: fmt.Sprintf("unknown type %q", rec.PostType)}
	}

	for _, f := range []string{FieldRiddle, FieldAnswer, FieldAuthorUsername, FieldDate} {
		if data[f] == "" {
			return nil, &CorruptRecordError{Key: key, Field: f, Reason: "missing"}
		}
	}
	ms, err := strconv.ParseInt(data[FieldDate], 10, 64)
	if err != nil {
		return nil, &CorruptRecordError{Key: key, Field: FieldDate, Reason: "not a unix millisecond timestamp"}
	}

	rec.Riddle = data[FieldRiddle]
	rec.Answer = data[FieldAnswer]
	rec.AuthorUsername = data[FieldAuthorUsername]
	rec.Subreddit = data[FieldSubreddit]
	rec.Date = time.UnixMilli(ms)
	rec.Category = data[FieldCategory]
	if rec.Category == "" {
		rec.Category = DefaultCategory
	}
	return rec, nil
}

// GuessCommentRecord is the value stored per comment id in the guess-comments
// hash.
type GuessCommentRecord struct {
	Guess     string `json:"guess"`
	CreatedAt int64  `json:"created_at"`
}

// EncodeGuessComment serializes a guess-comments value.
func EncodeGuessComment(rec GuessCommentRecord) string {
	b, _ := json.Marshal(rec)
	return string(b)
}

// DecodeGuessComment parses a guess-comments value.
func DecodeGuessComment(key, commentID, raw string) (GuessCommentRecord, error) {
	var rec GuessCommentRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return rec, &CorruptRecordError{Key: key, Field: commentID, Reason: err.Error()}
	}
	if rec.Guess == "" {
		return rec, &CorruptRecordError{Key: key, Field: commentID, Reason: "empty guess"}
	}
	return rec, nil
}

// ParseInt reads an integer hash field, reporting a corrupt record on garbage.
func ParseInt(key, field, raw string) (int64, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &CorruptRecordError{Key: key, Field: field, Reason: "not an integer"}
	}
	return n, nil
}
