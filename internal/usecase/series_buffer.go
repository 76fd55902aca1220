package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/antonbeski0/Predflux/internal/domain/models"
	domrepo "github.com/antonbeski0/Predflux/internal/domain/repository"
)

// SeriesBuffers keeps the most recent live prices per symbol in bounded
// ring buffers.
type SeriesBuffers struct {
	capacity int

	mu   sync.RWMutex
	ring map[string]*ring
}

type ring struct {
	vals []float64
	next int
	full bool
}

var _ domrepo.SeriesSource = (*SeriesBuffers)(nil)

func NewSeriesBuffers(capacity int) *SeriesBuffers {
	if capacity < 2 {
		capacity = 2
	}
	return &SeriesBuffers{capacity: capacity, ring: make(map[string]*ring)}
}

// Append records the trade price for its symbol.
func (b *SeriesBuffers) Append(t *models.Trade) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.ring[t.Symbol]
	if !ok {
		r = &ring{vals: make([]float64, b.capacity)}
		b.ring[t.Symbol] = r
	}
	r.vals[r.next] = t.Price
	r.next = (r.next + 1) % len(r.vals)
	if r.next == 0 {
		r.full = true
	}
}

// LatestValues returns up to n of the newest prices for symbol, oldest first.
func (b *SeriesBuffers) LatestValues(_ context.Context, symbol string, n int) ([]float64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.ring[symbol]
	if !ok {
		return nil, fmt.Errorf("no live prices for %s: %w", symbol, models.ErrInsufficientData)
	}
	size := r.next
	if r.full {
		size = len(r.vals)
	}
	if n <= 0 || n > size {
		n = size
	}
	out := make([]float64, n)
	start := r.next - n
	for i := range out {
		out[i] = r.vals[(start+i+len(r.vals))%len(r.vals)]
	}
	return out, nil
}

// Len returns how many prices are buffered for symbol.
func (b *SeriesBuffers) Len(symbol string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.ring[symbol]
	switch {
	case !ok:
		return 0
	case r.full:
		return len(r.vals)
	default:
		return r.next
	}
}

// Symbols lists buffered symbols in sorted order.
func (b *SeriesBuffers) Symbols() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.ring))
	for s := range b.ring {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
