package log

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

var levelNames = map[Level]string{Debug: "debug", Info: "info", Warn: "warn", Error: "error"}
var nameToLevel = map[string]Level{"debug": Debug, "info": Info, "warn": Warn, "warning": Warn, "error": Error}

// ParseLevel maps a level name to a Level. Unknown names yield Info and false.
func ParseLevel(s string) (Level, bool) {
	l, ok := nameToLevel[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return Info, false
	}
	return l, true
}

func (l Level) String() string { return levelNames[l] }

// Logger writes one JSON object per line. Children created with With share
// the parent's writer lock.
type Logger struct {
	out    io.Writer
	level  Level
	fields map[string]string
	mu     *sync.Mutex
}

// New returns a stderr logger whose level comes from WIKISEARCH_LOG_LEVEL.
func New() *Logger {
	lvl := Info
	if v := os.Getenv("WIKISEARCH_LOG_LEVEL"); v != "" {
		if l, ok := ParseLevel(v); ok {
			lvl = l
		}
	}
	return NewWriter(os.Stderr, lvl)
}

func NewWriter(w io.Writer, lvl Level) *Logger {
	return &Logger{out: w, level: lvl, fields: make(map[string]string), mu: &sync.Mutex{}}
}

// Nop discards everything.
func Nop() *Logger { return NewWriter(io.Discard, Error+1) }

func (l *Logger) With(kv map[string]string) *Logger {
	child := &Logger{out: l.out, level: l.level, fields: make(map[string]string), mu: l.mu}
	for k, v := range l.fields {
		child.fields[k] = v
	}
	for k, v := range kv {
		child.fields[k] = v
	}
	return child
}

func (l *Logger) Enabled(level Level) bool { return level >= l.level }

func (l *Logger) write(level Level, msg string, kv map[string]any) {
	if level < l.level {
		return
	}
	rec := make(map[string]any, 4+len(l.fields)+(len(kv)))
	rec["ts"] = time.Now().Format(time.RFC3339)
	rec["level"] = levelNames[level]
	rec["msg"] = msg
	for k, v := range l.fields {
		rec[k] = v
	}
	for k, v := range kv {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		rec[k] = v
	}
	maskSecrets(rec)
	l.mu.Lock()
	defer l.mu.Unlock()
	b, _ := json.Marshal(rec)
	_, _ = l.out.Write(append(b, '\n'))
}

func (l *Logger) Debug(msg string, kv ...any) { l.write(Debug, msg, toMap(kv...)) }
func (l *Logger) Info(msg string, kv ...any)  { l.write(Info, msg, toMap(kv...)) }
func (l *Logger) Warn(msg string, kv ...any)  { l.write(Warn, msg, toMap(kv...)) }
func (l *Logger) Error(msg string, kv ...any) { l.write(Error, msg, toMap(kv...)) }

func toMap(kv ...any) map[string]any {
	m := make(map[string]any)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		m[k] = kv[i+1]
	}
	return m
}

// maskSecrets redacts likely secret values and contact addresses in-place.
func maskSecrets(m map[string]any) {
	secretKeys := []string{"token", "secret", "password", "authorization", "email", "contact"}
	for k, v := range m {
		s, ok := v.(string)
		if !ok {
			continue
		}
		lowerK := strings.ToLower(k)
		masked := false
		for _, p := range secretKeys {
			if strings.Contains(lowerK, p) {
				m[k] = redact(s)
				masked = true
				break
			}
		}
		// addresses embedded in values such as user agents
		if !masked && emailLike.MatchString(s) {
			m[k] = emailLike.ReplaceAllStringFunc(s, redact)
		}
	}
}

var emailLike = regexp.MustCompile(`[^\s()<>@]+@[^\s()<>@]+\.[^\s()<>@]+`)

func redact(s string) string {
	n := len(s)
	if n <= 8 {
		return "***"
	}
	head, tail := s[:4], s[n-4:]
	return fmt.Sprintf("%s***%s", head, tail)
}
