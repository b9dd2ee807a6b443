package logging

import "sync"

// DefaultBufferSize is the number of entries the TUI log panel keeps.
const DefaultBufferSize = 100

// LogBuffer is a fixed-size ring of recent entries.
type LogBuffer struct {
	mu   sync.RWMutex
	ring []LogEntry
	head int // next write position
	n    int
}

// NewLogBuffer returns a buffer holding up to size entries.
func NewLogBuffer(size int) *LogBuffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &LogBuffer{ring: make([]LogEntry, size)}
}

// Add appends e, overwriting the oldest entry when full.
func (b *LogBuffer) Add(e LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ring[b.head] = e
	b.head = (b.head + 1) % len(b.ring)
	if b.n < len(b.ring) {
		b.n++
	}
}

// Entries returns a copy of all entries, oldest first.
func (b *LogBuffer) Entries() []LogEntry {
	return b.Last(b.Len())
}

// Last returns up to k of the newest entries, oldest first.
func (b *LogBuffer) Last(k int) []LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if k > b.n {
		k = b.n
	}
	if k < 0 {
		k = 0
	}
	out := make([]LogEntry, k)
	start := b.head - k
	for i := range out {
		out[i] = b.ring[(start+i+len(b.ring))%len(b.ring)]
	}
	return out
}

// Len returns the number of buffered entries.
func (b *LogBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.n
}

// Clear drops every entry.
func (b *LogBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = 0
	b.n = 0
}
