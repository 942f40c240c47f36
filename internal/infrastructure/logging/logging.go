// Package logging builds the process logger.
package logging

import (
	"io"
	"log/slog"

	"github.com/felixgeelhaar/pacer/internal/infrastructure/config"
)

// New returns a text or JSON slog logger writing to w.
func New(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var h slog.Handler
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("app", "pacer")
}
