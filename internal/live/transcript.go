package live

import (
	"sync"
	"unicode/utf8"
)

// Transcript is a bounded accumulator of commentary text. When the cap is
// exceeded the front is truncated, keeping only the most recent content.
// It is a display aid, not a durable log.
type Transcript struct {
	max int
	mu  sync.Mutex
	buf string
}

// NewTranscript creates a transcript capped at max bytes.
func NewTranscript(max int) *Transcript {
	return &Transcript{max: max}
}

// Append adds text to the tail, truncating from the front if the cap is
// exceeded.
func (t *Transcript) Append(text string) {
	if text == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf += text

	if len(t.buf) <= t.max {
		return
	}

	cut := len(t.buf) - t.max
	// Never cut mid-rune.
	for cut < len(t.buf) && !utf8.RuneStart(t.buf[cut]) {
		cut++
	}

	t.buf = t.buf[cut:]
}

// String returns the current transcript content.
func (t *Transcript) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.buf
}

// Len returns the transcript length in bytes.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.buf)
}
