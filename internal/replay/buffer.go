package replay

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"RLTrader/internal/model"
)

// ErrInsufficientSamples is returned when more samples are requested than stored.
var ErrInsufficientSamples = errors.New("not enough transitions to sample")

// Buffer is a fixed-capacity FIFO of transitions backed by a ring.
type Buffer struct {
	items []model.Transition
	head  int // index of the oldest element
	size  int
}

// NewBuffer creates a buffer holding at most capacity transitions.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &Buffer{items: make([]model.Transition, capacity)}
}

// Append adds t at the tail, evicting the oldest transition when full.
func (b *Buffer) Append(t model.Transition) {
	if b.size == len(b.items) {
		b.items[b.head] = t
		b.head = (b.head + 1) % len(b.items)
		return
	}
	b.items[(b.head+b.size)%len(b.items)] = t
	b.size++
}

// Len returns the number of stored transitions.
func (b *Buffer) Len() int { return b.size }

// Cap returns the capacity.
func (b *Buffer) Cap() int { return len(b.items) }

// At returns the i-th oldest transition.
func (b *Buffer) At(i int) model.Transition {
	return b.items[(b.head+i)%len(b.items)]
}

// Sample draws n distinct transitions uniformly at random without replacement.
func (b *Buffer) Sample(rng *rand.Rand, n int) ([]model.Transition, error) {
	if n < 0 || n > b.size {
		return nil, fmt.Errorf("%w: requested %d, have %d", ErrInsufficientSamples, n, b.size)
	}
	// Partial Fisher-Yates over logical indices.
	idx := make([]int, b.size)
	for i := range idx {
		idx[i] = i
	}
	out := make([]model.Transition, n)
	for i := 0; i < n; i++ {
		j := i + rng.IntN(b.size-i)
		idx[i], idx[j] = idx[j], idx[i]
		out[i] = b.At(idx[i])
	}
	return out, nil
}
