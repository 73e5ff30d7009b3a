package livesync

import "time"

// Backoff yields exponentially growing delays: Base, 2×Base, … capped at Max.
type Backoff struct {
	Base time.Duration
	Max  time.Duration

	attempt int
}

func (b *Backoff) Next() time.Duration {
	base, ceiling := b.Base, b.Max
	if base <= 0 {
		base = time.Second
	}
	if ceiling < base {
		ceiling = base
	}
	d := base
	for i := 0; i < b.attempt && d < ceiling; i++ {
		d *= 2
	}
	if d > ceiling {
		d = ceiling
	}
	b.attempt++
	return d
}

func (b *Backoff) Reset() { b.attempt = 0 }
