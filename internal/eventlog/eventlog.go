package eventlog

import (
	"fmt"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"strings"
	"sync"
	"time"
)

type Category string

const (
	Phase      Category = "PHASE"
	Perception Category = "PERCEPTION"
	Decision   Category = "DECISION"
	Action     Category = "ACTION"
	Error      Category = "ERROR"
	System     Category = "SYSTEM"
)

type Entry struct {
	Time     time.Time `json:"time"`
	Category Category  `json:"category"`
	Message  string    `json:"message"`
}

func (e Entry) String() string {
	return fmt.Sprintf("[%s] %s: %s", e.Time.Format("15:04:05"), e.Category, e.Message)
}

// Log is an append-only trace of a session. Entries are never mutated or removed.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	now     func() time.Time
	logger  zerolog.Logger
}

func New(logger zerolog.Logger) *Log {
	return &Log{
		entries: make([]Entry, 0, 64),
		now:     time.Now,
		logger:  logger,
	}
}

// NewGlobal creates a Log that mirrors entries to the global zerolog logger.
func NewGlobal() *Log {
	return New(log.Logger)
}

func (l *Log) Append(category Category, format string, args ...any) Entry {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}

	l.mu.Lock()
	e := Entry{Time: l.now(), Category: category, Message: msg}
	l.entries = append(l.entries, e)
	l.mu.Unlock()

	ev := l.logger.Info()
	if category == Error {
		ev = l.logger.Error()
	}
	ev.Str("category", string(category)).Msg(msg)
	return e
}

// Entries returns a copy of the log in emission order.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Since returns the entries appended after the first n.
func (l *Log) Since(n int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n >= len(l.entries) {
		return nil
	}
	if n < 0 {
		n = 0
	}
	out := make([]Entry, len(l.entries)-n)
	copy(out, l.entries[n:])
	return out
}

func (l *Log) Last() (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.entries) == 0 {
		return Entry{}, false
	}
	return l.entries[len(l.entries)-1], true
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func (l *Log) String() string {
	var sb strings.Builder
	for _, e := range l.Entries() {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
