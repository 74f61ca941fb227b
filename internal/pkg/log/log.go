package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
)

type contextKey string

const contextKeyRequestID contextKey = "request_id"

var (
	mu     sync.Mutex
	out    io.Writer = os.Stdout
	debug  bool
	levels = map[string]func(a ...interface{}) string{
		"DEBUG": color.New(color.FgCyan).SprintFunc(),
		"INFO":  color.New(color.FgWhite, color.BgGreen).SprintFunc(),
		"WARN":  color.New(color.FgWhite, color.BgYellow).SprintFunc(),
		"ERROR": color.New(color.FgRed).SprintFunc(),
	}
)

// SetOutput redirects all log lines. Used by tests and the CLI.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// SetDebug turns Debug lines on or off.
func SetDebug(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	debug = enabled
}

// WithRequestID adds request ID to context for logging
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// RequestID returns the request ID stored in ctx, or "".
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

func write(level, requestID, format string, a ...interface{}) {
	msg := fmt.Sprintf(format, a...)
	if requestID != "" {
		msg = fmt.Sprintf("[req_id=%s] %s", requestID, msg)
	}

	mu.Lock()
	defer mu.Unlock()
	if level == "DEBUG" && !debug {
		return
	}
	fmt.Fprintf(out, "%s %s\n", levels[level]("["+level+"]"), msg)
}

// Debug logs only when debug output is enabled
func Debug(format string, a ...interface{}) {
	write("DEBUG", "", format, a...)
}

// Info log information
func Info(format string, a ...interface{}) {
	write("INFO", "", format, a...)
}

// InfoWithContext logs information with context (includes request ID if available)
func InfoWithContext(ctx context.Context, format string, a ...interface{}) {
	write("INFO", RequestID(ctx), format, a...)
}

// Warn log warning
func Warn(format string, a ...interface{}) {
	write("WARN", "", format, a...)
}

// WarnWithContext logs warning with context (includes request ID if available)
func WarnWithContext(ctx context.Context, format string, a ...interface{}) {
	write("WARN", RequestID(ctx), format, a...)
}

// Error log error
func Error(format string, a ...interface{}) {
	write("ERROR", "", format, a...)
}

// ErrorWithContext logs error with context (includes request ID if available)
func ErrorWithContext(ctx context.Context, format string, a ...interface{}) {
	write("ERROR", RequestID(ctx), format, a...)
}

// InfoStruct dumps values at debug level
func InfoStruct(a ...interface{}) {
	write("DEBUG", "", "%s", spew.Sdump(a...))
}
