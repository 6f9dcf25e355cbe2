package factsync

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel orders log severities. Messages below the logger's level are dropped.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelError
	LevelOff
)

// ParseLogLevel converts a level name ("debug", "info", "error", "off") to a LogLevel.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "error":
		return LevelError, nil
	case "off", "none":
		return LevelOff, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelError:
		return "ERROR"
	default:
		return "OFF"
	}
}

// Logger writes timestamped operational messages for factsync components.
// Each component logs through a named Channel obtained from Channel(name);
// channels are created on first use and shared afterwards.
//
// A nil *Logger is valid and discards everything.
type Logger struct {
	mu       sync.Mutex
	level    LogLevel
	writer   io.Writer
	closer   io.Closer
	channels map[string]*Channel
}

// NewLogger creates a logger at the given level.
// If logPath is empty, logs to stderr.
func NewLogger(level LogLevel, logPath string) (*Logger, error) {
	l := &Logger{
		level:    level,
		writer:   os.Stderr,
		channels: make(map[string]*Channel),
	}

	if level != LevelOff && logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.writer = f
		l.closer = f
	}

	return l, nil
}

// NewWriterLogger creates a logger writing to w.
func NewWriterLogger(level LogLevel, w io.Writer) *Logger {
	return &Logger{
		level:    level,
		writer:   w,
		channels: make(map[string]*Channel),
	}
}

// Close closes the logger if it's writing to a file.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closer != nil {
		err := l.closer.Close()
		l.closer = nil
		return err
	}
	return nil
}

// SetLevel changes the minimum level for all channels.
func (l *Logger) SetLevel(level LogLevel) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Channel returns the named channel, registering it on first use.
func (l *Logger) Channel(name string) *Channel {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if ch, ok := l.channels[name]; ok {
		return ch
	}
	ch := &Channel{name: name, parent: l}
	l.channels[name] = ch
	return ch
}

// Channels returns the names of all registered channels.
func (l *Logger) Channels() []string {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	names := make([]string, 0, len(l.channels))
	for name := range l.channels {
		names = append(names, name)
	}
	return names
}

func (l *Logger) write(level LogLevel, channel, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level || l.level == LevelOff {
		return
	}
	timestamp := time.Now().Format("2006-01-02T15:04:05.000Z07:00")
	_, _ = fmt.Fprintf(l.writer, "[%s] [%s] [%s] %s\n", timestamp, level, channel, msg)
}

// Channel is a named log category. A nil *Channel discards everything.
type Channel struct {
	name   string
	parent *Logger
}

// Name returns the channel name.
func (c *Channel) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

// Debug logs a debug message.
func (c *Channel) Debug(format string, args ...any) {
	c.log(LevelDebug, format, args...)
}

// Info logs an informational message.
func (c *Channel) Info(format string, args ...any) {
	c.log(LevelInfo, format, args...)
}

// Error logs err with a message describing the failed operation.
func (c *Channel) Error(err error, format string, args ...any) {
	if c == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	c.parent.write(LevelError, c.name, msg)
}

// LogRequest logs an outgoing HTTP request.
func (c *Channel) LogRequest(method, url string) {
	c.Debug("REQUEST %s %s", method, url)
}

// LogResponse logs an HTTP response, truncating large bodies.
func (c *Channel) LogResponse(statusCode int, status string, body []byte) {
	if c == nil {
		return
	}
	c.Debug("RESPONSE %d %s", statusCode, status)
	if len(body) > 0 {
		c.Debug("RESPONSE BODY: %s", truncateForLog(string(body), 4000))
	}
}

func (c *Channel) log(level LogLevel, format string, args ...any) {
	if c == nil {
		return
	}
	c.parent.write(level, c.name, fmt.Sprintf(format, args...))
}

// truncateForLog truncates a string for logging purposes.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + fmt.Sprintf("... [truncated, %d bytes total]", len(s))
}
