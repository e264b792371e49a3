package history

import (
	"fmt"

	"github.com/trendgate/trendgate/internal/market"
)

// Buffer is a fixed-capacity, insertion-ordered bar history. Once full,
// appending evicts the oldest bar. Timestamps must be strictly
// increasing; re-ingesting the last bar's timestamp is a silent no-op so
// duplicate bar delivery from the host is idempotent.
type Buffer struct {
	buf    []market.Bar
	start  int
	length int
	cap    int
}

// New creates a buffer with the given capacity.
func New(capacity int) (*Buffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("history capacity must be positive, got %d", capacity)
	}
	return &Buffer{
		buf: make([]market.Bar, capacity),
		cap: capacity,
	}, nil
}

// Append ingests a closed bar. Duplicate-timestamp bars are coalesced
// into a no-op; bars older than the newest stored bar are rejected.
func (b *Buffer) Append(bar market.Bar) error {
	if last, ok := b.Last(); ok {
		if bar.Timestamp.Equal(last.Timestamp) {
			return nil
		}
		if bar.Timestamp.Before(last.Timestamp) {
			return fmt.Errorf("bar timestamp %s not after newest stored bar %s",
				bar.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
				last.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
		}
	}

	if b.length < b.cap {
		b.buf[(b.start+b.length)%b.cap] = bar
		b.length++
		return nil
	}

	// Full: overwrite oldest
	b.buf[b.start] = bar
	b.start = (b.start + 1) % b.cap
	return nil
}

// Len returns the number of stored bars.
func (b *Buffer) Len() int { return b.length }

// Cap returns the configured capacity.
func (b *Buffer) Cap() int { return b.cap }

// At returns the bar at index i, oldest first.
func (b *Buffer) At(i int) (market.Bar, bool) {
	if i < 0 || i >= b.length {
		return market.Bar{}, false
	}
	return b.buf[(b.start+i)%b.cap], true
}

// Last returns the newest stored bar.
func (b *Buffer) Last() (market.Bar, bool) {
	return b.At(b.length - 1)
}

// Bars returns an ordered copy of the stored bars, oldest first. The
// copy keeps downstream computation independent of buffer internals.
func (b *Buffer) Bars() []market.Bar {
	out := make([]market.Bar, b.length)
	for i := 0; i < b.length; i++ {
		out[i] = b.buf[(b.start+i)%b.cap]
	}
	return out
}

// LastN returns the newest n bars, oldest first. If fewer than n are
// stored, all stored bars are returned.
func (b *Buffer) LastN(n int) []market.Bar {
	if n > b.length {
		n = b.length
	}
	out := make([]market.Bar, n)
	for i := 0; i < n; i++ {
		out[i] = b.buf[(b.start+b.length-n+i)%b.cap]
	}
	return out
}

// Clear discards all stored bars.
func (b *Buffer) Clear() {
	b.start = 0
	b.length = 0
}
