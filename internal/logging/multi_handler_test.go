package logging

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingHandler struct {
	seen *[]string
}

func (recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (r recordingHandler) Handle(_ context.Context, rec slog.Record) error {
	*r.seen = append(*r.seen, rec.Message)
	return nil
}

func (r recordingHandler) WithAttrs([]slog.Attr) slog.Handler {
	return r
}

func (r recordingHandler) WithGroup(string) slog.Handler {
	return r
}

type failingHandler struct{ recordingHandler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("sink down") }

func TestMultiHandlerKeepsGoingPastFailures(t *testing.T) {
	var seen []string
	m := NewMultiHandler(failingHandler{}, recordingHandler{seen: &seen})

	err := m.Handle(context.Background(), slog.Record{Message: "guess failed", Level: slog.LevelError})
	assert.EqualError(t, err, "sink down")
	assert.Equal(t, []string{"guess failed"}, seen)
}
