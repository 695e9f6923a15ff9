// Package check provides the lightweight assertion tooling used by the
// deployment commands: a caller-owned Recorder that keeps pass/fail counts
// and messages, closeness tests for fixed-point (wei) amounts, and an
// awaited Result type for asserting that a contract call reverted.
package check

import (
	"fmt"
	"sync"
	"time"
)

// Level of a recorded message.
const (
	LevelInfo  = "info"
	LevelPass  = "pass"
	LevelFail  = "fail"
	LevelError = "error"
)

// Message represents a single recorded message
type Message struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
	Level     string    `json:"level"`
}

// Sink receives each assertion as it is recorded, e.g. to print it.
type Sink func(m Message)

// Recorder tracks assertion results for one run. It is safe for concurrent
// use, but each command owns its own Recorder.
type Recorder struct {
	mu       sync.RWMutex
	messages []Message
	maxSize  int
	total    int
	pass     int
	fail     int
	sink     Sink
}

// NewRecorder creates a recorder keeping at most maxSize messages.
// A nil sink is allowed.
func NewRecorder(maxSize int, sink Sink) *Recorder {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &Recorder{
		messages: make([]Message, 0, maxSize),
		maxSize:  maxSize,
		sink:     sink,
	}
}

func (r *Recorder) log(level, text string) {
	msg := Message{
		Timestamp: time.Now(),
		Text:      text,
		Level:     level,
	}

	r.mu.Lock()
	r.messages = append(r.messages, msg)
	// Keep only the last maxSize messages
	if len(r.messages) > r.maxSize {
		r.messages = r.messages[len(r.messages)-r.maxSize:]
	}
	sink := r.sink
	r.mu.Unlock()

	if sink != nil {
		sink(msg)
	}
}

// Info records an informational message without touching the counts.
func (r *Recorder) Info(text string) {
	r.log(LevelInfo, text)
}

// Assert records condition under passMsg, or failMsg when it is false.
// An empty failMsg reuses passMsg. It returns condition.
func (r *Recorder) Assert(condition bool, passMsg, failMsg string) bool {
	if failMsg == "" {
		failMsg = passMsg
	}

	r.mu.Lock()
	r.total++
	if condition {
		r.pass++
	} else {
		r.fail++
	}
	r.mu.Unlock()

	if condition {
		r.log(LevelPass, passMsg)
	} else {
		r.log(LevelFail, failMsg)
	}
	return condition
}

// Assertf is Assert with a formatted message used for both outcomes.
func (r *Recorder) Assertf(condition bool, format string, args ...any) bool {
	return r.Assert(condition, fmt.Sprintf(format, args...), "")
}

// Counts returns the total, passed and failed assertion counts.
func (r *Recorder) Counts() (total, pass, fail int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.total, r.pass, r.fail
}

// Failed reports whether any assertion failed.
func (r *Recorder) Failed() bool {
	_, _, fail := r.Counts()
	return fail > 0
}

// Clear resets the counts and drops recorded messages.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total, r.pass, r.fail = 0, 0, 0
	r.messages = r.messages[:0]
}

// Summary returns a one-line count report.
func (r *Recorder) Summary() string {
	total, pass, fail := r.Counts()
	return fmt.Sprintf("%d assertions: %d passed, %d failed", total, pass, fail)
}

// GetRecent returns the most recent n messages (newest first)
func (r *Recorder) GetRecent(n int) []Message {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n = min(max(n, 0), len(r.messages))
	return r.getRecentLocked(n)
}

// GetAll returns all messages (newest first)
func (r *Recorder) GetAll() []Message {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.getRecentLocked(len(r.messages))
}

func (r *Recorder) getRecentLocked(n int) []Message {
	result := make([]Message, n)
	for i := 0; i < n; i++ {
		result[i] = r.messages[len(r.messages)-1-i]
	}
	return result
}
