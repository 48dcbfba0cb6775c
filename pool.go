package bookpdf

import (
	"errors"
	"runtime"
	"sync"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one renderer is available.
	MinPoolSize = 1

	// MaxPoolSize caps browser instances to limit memory (~200MB each).
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for Chrome child processes.
	cpuDivisor = 2
)

// RendererPool manages a pool of Renderer instances for parallel exports.
// Each renderer has its own browser instance, enabling true parallelism.
// Renderers are created lazily on first acquire to avoid startup delay.
type RendererPool struct {
	size      int
	factory   func() Renderer
	renderers []Renderer
	sem       chan Renderer
	mu        sync.Mutex
	created   int
	closed    bool
}

// NewRendererPool creates a pool with capacity for n renderers produced by
// factory. Renderers are created lazily when acquired, not at pool creation.
func NewRendererPool(n int, factory func() Renderer) *RendererPool {
	if n < 1 {
		n = 1
	}

	return &RendererPool{
		size:      n,
		factory:   factory,
		renderers: make([]Renderer, 0, n),
		sem:       make(chan Renderer, n),
	}
}

// Acquire gets a renderer from the pool, creating one if needed.
// Blocks if all renderers are in use.
func (p *RendererPool) Acquire() Renderer {
	// Try to get an existing renderer (non-blocking)
	select {
	case r := <-p.sem:
		return r
	default:
	}

	// Check if we can create a new renderer
	p.mu.Lock()
	if p.created < p.size {
		p.created++
		p.mu.Unlock()

		// Create new renderer outside the lock
		r := p.factory()

		p.mu.Lock()
		p.renderers = append(p.renderers, r)
		p.mu.Unlock()

		return r
	}
	p.mu.Unlock()

	// All renderers created, wait for one to be released
	return <-p.sem
}

// Release returns a renderer to the pool.
// The lock is released before sending to avoid deadlock when channel is full.
func (p *RendererPool) Release(r Renderer) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	p.sem <- r
}

// Close releases all browser resources.
// Returns an aggregated error if multiple renderers fail to close.
func (p *RendererPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.sem)
	renderers := p.renderers
	p.mu.Unlock()

	var errs []error
	for _, r := range renderers {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Size returns the pool capacity.
func (p *RendererPool) Size() int {
	return p.size
}

// ResolvePoolSize determines the optimal pool size.
// Priority: explicit workers > GOMAXPROCS-based calculation.
// Exported for use by servers and CLIs.
func ResolvePoolSize(workers int) int {
	// Explicit value takes priority
	if workers > 0 {
		return workers
	}

	// Auto-calculate based on GOMAXPROCS (adjusted by automaxprocs for containers)
	available := runtime.GOMAXPROCS(0)
	n := available / cpuDivisor

	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}
