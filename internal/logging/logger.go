// Package logging configures log/slog for the import engine.
//
// Entries written while an import runs carry its import id, format and
// target container. Inside an HTTP request they also carry the chi request
// id of the upload.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Setup installs the default logger on stdout. level is one of debug,
// info, warn or error; format is text or json. Unknown values fall back to
// info and text.
func Setup(level, format string) {
	slog.SetDefault(New(os.Stdout, level, format))
}

// New builds the logger Setup installs, writing to w.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FromContext returns the default logger. Contexts of uploads served
// behind middleware.RequestID add request_id.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	return logger
}

// ForImport returns the logger of one import run.
//
//	logger := logging.ForImport(ctx, importID, "wabstic_majorz", election.ID)
//	logger.Info("import committed", "results", len(batch.Results))
func ForImport(ctx context.Context, importID, format, container string) *slog.Logger {
	return FromContext(ctx).With(
		"import_id", importID,
		"format", format,
		"container", container,
	)
}
