package middleware

import (
	"log/slog"
	"net/http"
)

// slogLevel maps a response status to the level the request is logged at.
func slogLevel(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
