package logging

import (
	"log/slog"
	"os"
)

// Level is DEBUG outside production so that guess and job traces show up
// while developing.
func Level(appEnv string) slog.Level {
	if appEnv == "production" {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

// Setup initializes the global slog logger with JSON output to stdout.
func Setup(appEnv string) {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: Level(appEnv),
	})
	slog.SetDefault(slog.New(handler))
}
