package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type Level string

const (
	Debug Level = "debug"
	Info  Level = "info"
	Warn  Level = "warn"
	Error Level = "error"
)

var order = map[Level]int{Debug: 10, Info: 20, Warn: 30, Error: 40}

// Logger writes one JSON object per line.
type Logger struct {
	mu    sync.Mutex
	level Level
	out   io.Writer
}

func New(levelStr string) *Logger {
	return NewWithWriter(levelStr, os.Stderr)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(levelStr string, w io.Writer) *Logger {
	lvl := Level(levelStr)
	if _, ok := order[lvl]; !ok {
		lvl = Info
	}
	return &Logger{level: lvl, out: w}
}

// Nop discards everything.
func Nop() *Logger { return NewWithWriter("error", io.Discard) }

func (l *Logger) shouldLog(level Level) bool {
	return order[level] >= order[l.level]
}

func (l *Logger) log(level Level, msg string, fields map[string]any) {
	if !l.shouldLog(level) {
		return
	}
	entry := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"level": level,
		"msg":   msg,
	}
	for k, v := range fields {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		entry[k] = v
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = json.NewEncoder(l.out).Encode(entry)
}

func (l *Logger) Debug(msg string, fields ...any) { l.log(Debug, msg, kv(fields...)) }
func (l *Logger) Info(msg string, fields ...any)  { l.log(Info, msg, kv(fields...)) }
func (l *Logger) Warn(msg string, fields ...any)  { l.log(Warn, msg, kv(fields...)) }
func (l *Logger) Error(msg string, fields ...any) { l.log(Error, msg, kv(fields...)) }

func kv(fields ...any) map[string]any {
	m := map[string]any{}
	for i := 0; i+1 < len(fields); i += 2 {
		k, ok := fields[i].(string)
		if !ok {
			k = fmt.Sprintf("f%d", i)
		}
		m[k] = fields[i+1]
	}
	return m
}
