// Package logging provides the process-wide console log sink: a colorized
// slog.Handler built for a human reading a terminal rather than a log
// aggregator.
package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"

	"github.com/fatih/color"
)

// PrettyHandlerOptions wraps the standard slog options.
type PrettyHandlerOptions struct {
	SlogOpts slog.HandlerOptions
}

// PrettyHandler renders one line per record: a bracketed millisecond
// timestamp, a colorized level prefix, the message, and a trailing JSON blob
// of attributes (or "{}" when there are none).
type PrettyHandler struct {
	slog.Handler
	l *log.Logger
}

// NewPrettyHandler returns a PrettyHandler writing to w.
func NewPrettyHandler(w io.Writer, opts PrettyHandlerOptions) *PrettyHandler {
	return &PrettyHandler{
		Handler: slog.NewJSONHandler(w, &opts.SlogOpts),
		l:       log.New(w, "", 0),
	}
}

var levelColors = map[slog.Level]*color.Color{
	slog.LevelDebug: color.New(color.FgMagenta),
	slog.LevelInfo:  color.New(color.FgCyan),
	slog.LevelWarn:  color.New(color.FgYellow),
	slog.LevelError: color.New(color.FgRed),
}

func levelPrefix(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "DEBUG:"
	case level < slog.LevelWarn:
		return "INFO:"
	case level < slog.LevelError:
		return "WARN:"
	default:
		return "ERROR:"
	}
}

// Handle implements slog.Handler.
func (h *PrettyHandler) Handle(ctx context.Context, r slog.Record) error {
	attrs := make(map[string]any, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	var attrBytes []byte
	var err error
	if len(attrs) == 0 {
		attrBytes = []byte("{}")
	} else {
		attrBytes, err = json.Marshal(attrs)
		if err != nil {
			return err
		}
	}

	c, ok := levelColors[r.Level]
	if !ok {
		c = color.New(color.FgWhite)
	}
	prefix := c.Sprint(levelPrefix(r.Level))

	timestamp := r.Time.Format("15:04:05.000")

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "[%s] %s %s %s", timestamp, prefix, r.Message, string(attrBytes))

	h.l.Println(buf.String())
	return nil
}

// New builds the process-wide logger used throughout the module, writing
// to w at the given minimum level.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewPrettyHandler(w, PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{Level: level},
	}))
}
