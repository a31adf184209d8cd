package server

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

// ConsoleMessage represents a console message with timestamp
type ConsoleMessage struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // "debug", "info", "warn", "error"
}

// Console fans log entries out to every connected event stream
type Console struct {
	mu          sync.Mutex
	subscribers map[chan ConsoleMessage]struct{}
}

// NewConsole creates a console with no subscribers
func NewConsole() *Console {
	return &Console{subscribers: make(map[chan ConsoleMessage]struct{})}
}

// Subscribe registers a buffered channel for new messages. The returned
// function unregisters it.
func (c *Console) Subscribe(buffer int) (<-chan ConsoleMessage, func()) {
	ch := make(chan ConsoleMessage, buffer)
	c.mu.Lock()
	c.subscribers[ch] = struct{}{}
	c.mu.Unlock()

	return ch, func() {
		c.mu.Lock()
		delete(c.subscribers, ch)
		c.mu.Unlock()
	}
}

// Publish delivers msg to every subscriber without blocking; full channels
// drop the message
func (c *Console) Publish(msg ConsoleMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ch := range c.subscribers {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Core returns a zap core that publishes entries at or above level
func (c *Console) Core(level zapcore.LevelEnabler) zapcore.Core {
	return &consoleCore{LevelEnabler: level, console: c}
}

type consoleCore struct {
	zapcore.LevelEnabler
	console *Console
	fields  []zapcore.Field
}

func (cc *consoleCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *cc
	clone.fields = append(append([]zapcore.Field{}, cc.fields...), fields...)
	return &clone
}

func (cc *consoleCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if cc.Enabled(entry.Level) {
		return checked.AddCore(entry, cc)
	}
	return checked
}

// Write flattens the fields into "key=value" pairs after the message
func (cc *consoleCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range cc.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	keys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(entry.Message)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, enc.Fields[k])
	}

	cc.console.Publish(ConsoleMessage{
		Message:   b.String(),
		Timestamp: entry.Time,
		Level:     entry.Level.String(),
	})
	return nil
}

func (cc *consoleCore) Sync() error {
	return nil
}
