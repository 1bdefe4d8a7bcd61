// Package terminal renders logs, progress and reports for an interactive console.
package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gookit/color"

	"github.com/ochairo/vtscan/internal/domain/interfaces"
)

var (
	debugStyle = color.New(color.FgGray)
	infoStyle  = color.New(color.FgCyan, color.OpBold)
	warnStyle  = color.New(color.FgYellow, color.OpBold)
	errorStyle = color.New(color.FgRed, color.OpBold)
	keyStyle   = color.New(color.FgGray)
)

// Logger writes tagged, colorized lines such as "[INFO] message key=value"
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	debug bool
}

// NewLogger creates a logger writing to out. Debug lines are dropped unless debug is set.
func NewLogger(out io.Writer, debug bool) *Logger {
	return &Logger{out: out, debug: debug}
}

// Debug logs debug-level messages
func (l *Logger) Debug(msg string, fields ...interfaces.Field) {
	if !l.debug {
		return
	}
	l.log("DEBUG", debugStyle, msg, fields)
}

// Info logs informational messages
func (l *Logger) Info(msg string, fields ...interfaces.Field) {
	l.log("INFO", infoStyle, msg, fields)
}

// Warn logs warning messages
func (l *Logger) Warn(msg string, fields ...interfaces.Field) {
	l.log("WARN", warnStyle, msg, fields)
}

// Error logs error messages
func (l *Logger) Error(msg string, fields ...interfaces.Field) {
	l.log("ERROR", errorStyle, msg, fields)
}

func (l *Logger) log(tag string, style color.Style, msg string, fields []interfaces.Field) {
	var b strings.Builder
	b.WriteString(style.Sprint("[" + tag + "]"))
	b.WriteByte(' ')
	b.WriteString(msg)
	for _, f := range fields {
		fmt.Fprintf(&b, " %s%v", keyStyle.Sprint(f.Key+"="), f.Value)
	}
	b.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.out, b.String())
}

// DisableColor turns off ANSI styling for all terminal output
func DisableColor() {
	color.Enable = false
}
