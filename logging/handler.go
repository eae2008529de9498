// Package logging provides the framework's structured logging backend: a
// slog.Handler that can render plain colorized text (for development) or
// newline-delimited JSON (for production), adapted from the teacher's
// SlogHandler.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"runtime"
	"time"

	"github.com/kilnhq/kiln/color"
)

// Config controls handler behavior.
type Config struct {
	// UseJSON enables JSON-lines output instead of human-readable text.
	UseJSON bool
	// Indent controls whether JSON output is pretty-printed.
	Indent bool
	// Level is the minimum level that will be written.
	Level slog.Level
	// TimeFormat is passed to time.Time.Format for the timestamp field.
	TimeFormat string
	// AddSource attaches the call site to each record.
	AddSource bool
	// Colorize enables ANSI colorization of the level. Mutually exclusive
	// with UseJSON.
	Colorize bool
}

// DefaultConfig returns the development-oriented default: colorized text
// at info level.
func DefaultConfig() Config {
	return Config{
		Level:      slog.LevelInfo,
		TimeFormat: time.UnixDate,
		Colorize:   true,
	}
}

// JSONConfig returns the production-oriented default: uncolored JSON
// lines at debug level.
func JSONConfig() Config {
	return Config{
		UseJSON:    true,
		Level:      slog.LevelDebug,
		TimeFormat: time.RFC3339Nano,
	}
}

// Handler is a slog.Handler implementing Config's rendering rules.
type Handler struct {
	config Config
}

// NewHandler builds a Handler from Config.
func NewHandler(c Config) *Handler {
	return &Handler{config: c}
}

// NewLogger builds a *slog.Logger backed by a Handler for c. It panics if
// both JSON and colorized output were requested, since the two are
// incompatible renderers.
func NewLogger(c Config) *slog.Logger {
	if c.Colorize && c.UseJSON {
		panic("logging: cannot enable both JSON and color output")
	}
	if c.TimeFormat == "" {
		c.TimeFormat = time.RFC3339
	}
	return slog.New(NewHandler(c))
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.config.Level
}

// WithAttrs implements slog.Handler. The attrs passed here are discarded;
// only a record's own attrs are folded into the fields map when Handle
// is called.
func (h *Handler) WithAttrs(_ []slog.Attr) slog.Handler { return h }

// WithGroup implements slog.Handler; grouping is not supported.
func (h *Handler) WithGroup(_ string) slog.Handler { return h }

// Handle renders a single log record.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	level := r.Level.String()
	if h.config.Colorize {
		switch r.Level {
		case slog.LevelDebug:
			level = color.ColorizeBold(level, color.FgMagenta)
		case slog.LevelInfo:
			level = color.ColorizeBold(level, color.FgBlue)
		case slog.LevelWarn:
			level = color.ColorizeBold(level, color.FgYellow)
		case slog.LevelError:
			level = color.ColorizeBold(level, color.FgRed)
		}
	}

	fields := make(map[string]any, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		fields[a.Key] = a.Value.Any()
		return true
	})
	if h.config.AddSource {
		fields["source"] = source(r.PC)
	}
	timeStr := r.Time.Format(h.config.TimeFormat)

	if h.config.UseJSON {
		fields["level"] = r.Level.String()
		fields["time"] = timeStr
		fields["message"] = r.Message
		var (
			b   []byte
			err error
		)
		if h.config.Indent {
			b, err = json.MarshalIndent(fields, "", "  ")
		} else {
			b, err = json.Marshal(fields)
		}
		if err != nil {
			return err
		}
		fmt.Println(string(b))
		return nil
	}

	if len(fields) == 0 {
		fmt.Println(timeStr, level+":", r.Message)
		return nil
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	fmt.Println(timeStr, level+":", r.Message, string(b))
	return nil
}

func source(pc uintptr) *slog.Source {
	frames := runtime.CallersFrames([]uintptr{pc})
	f, _ := frames.Next()
	return &slog.Source{Function: f.Function, File: path.Base(f.File), Line: f.Line}
}
