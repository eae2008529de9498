package middleware

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/kilnhq/kiln/color"
	"github.com/kilnhq/kiln/response"
)

// LoggingConfig configures the Logging middleware.
type LoggingConfig struct {
	// Skip, when non-nil and returning true, bypasses logging for a
	// given request.
	Skip func(*Args) bool
	// Log is called after the downstream response is produced.
	Log func(args *Args, status int, elapsed time.Duration)
}

// DefaultLoggingConfig colorizes the status code by class and logs
// method, path, elapsed time, and request ID (if set by TracingConfig's
// header key in the context bag).
var DefaultLoggingConfig = LoggingConfig{
	Log: func(args *Args, status int, elapsed time.Duration) {
		var statusColor string
		switch {
		case status >= 500:
			statusColor = color.ColorizeBold(strconv.Itoa(status), color.FgBrightRed)
		case status >= 400:
			statusColor = color.ColorizeBold(strconv.Itoa(status), color.BgBrightYellow)
		case status >= 300:
			statusColor = color.ColorizeBold(strconv.Itoa(status), color.FgBrightCyan)
		default:
			statusColor = color.ColorizeBold(strconv.Itoa(status), color.FgBrightGreen)
		}
		reqID, _ := args.Context["X-Request-ID"].(string)
		slog.Info(fmt.Sprintf("%s %s %s | %s | %s",
			args.Request.Method, args.Request.URL.Path, statusColor, elapsed, reqID,
		))
	},
}

// Logging returns a request-logging middleware using DefaultLoggingConfig.
func Logging() Middleware { return LoggingWithConfig(DefaultLoggingConfig) }

// LoggingWithConfig returns a request-logging middleware using lc.
func LoggingWithConfig(lc LoggingConfig) Middleware {
	return func(args *Args, next Next) *response.Response {
		if lc.Skip != nil && lc.Skip(args) {
			return next()
		}
		start := time.Now()
		resp := next()
		if lc.Log != nil {
			lc.Log(args, resp.Status, time.Since(start))
		}
		return resp
	}
}
