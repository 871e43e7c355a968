package repository

import "time"

// Option applies a configuration option to the TreapBoard.
type Option func(*TreapBoard)

// WithCapacity bounds the number of sessions kept on the board.
func WithCapacity(capacity int) Option {
	return func(b *TreapBoard) {
		if capacity > 0 {
			b.capacity = capacity
		}
	}
}

// WithClock overrides the clock used to stamp updates.
func WithClock(now func() time.Time) Option {
	return func(b *TreapBoard) {
		if now != nil {
			b.now = now
		}
	}
}
