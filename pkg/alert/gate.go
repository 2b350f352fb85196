// Package alert watches recognized speech for trigger keywords and
// delivers notifications to an external channel.
//
// The Gate decides whether a text line qualifies as an emergency; the
// Dispatcher delivers notifications asynchronously so a slow endpoint
// never stalls frame processing.
package alert

import (
	"strings"
	"time"
)

// DefaultKeywords is the built-in trigger vocabulary.
var DefaultKeywords = []string{"help", "fire"}

// Alert is a one-shot emergency event produced by the Gate.
type Alert struct {
	// Text is the full recognized line that matched.
	Text string

	// Keyword is the vocabulary entry that matched.
	Keyword string

	// At is the detection time.
	At time.Time
}

// Gate matches recognized text lines against a trigger vocabulary.
//
// Matching is a case-insensitive substring test. Each qualifying line
// produces at most one Alert, no matter how many keywords it contains.
// An optional cooldown suppresses alerts for a window after a match;
// with zero cooldown every matching line re-fires.
//
// Gate is not safe for concurrent use; the hub observes lines from a
// single goroutine.
type Gate struct {
	keywords []string
	cooldown time.Duration
	last     time.Time
	now      func() time.Time
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithCooldown suppresses further alerts for d after each alert.
func WithCooldown(d time.Duration) GateOption {
	return func(g *Gate) { g.cooldown = d }
}

// WithClock overrides the time source (for tests).
func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) { g.now = now }
}

// NewGate creates a Gate for the given vocabulary.
// An empty vocabulary falls back to DefaultKeywords.
func NewGate(keywords []string, opts ...GateOption) *Gate {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	lowered := make([]string, len(keywords))
	for i, kw := range keywords {
		lowered[i] = strings.ToLower(kw)
	}
	g := &Gate{keywords: lowered, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Observe inspects one recognized line. It returns the Alert and true
// when the line qualifies and the cooldown window (if any) has passed.
func (g *Gate) Observe(line string) (Alert, bool) {
	lowered := strings.ToLower(line)
	for _, kw := range g.keywords {
		if !strings.Contains(lowered, kw) {
			continue
		}
		now := g.now()
		if g.cooldown > 0 && !g.last.IsZero() && now.Sub(g.last) < g.cooldown {
			return Alert{}, false
		}
		g.last = now
		return Alert{Text: line, Keyword: kw, At: now}, true
	}
	return Alert{}, false
}
