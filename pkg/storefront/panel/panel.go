// Package panel keeps a periodically refreshed list of confirmed orders for the barista.
package panel

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/corray333/backend-labs/cafe/pkg/client"
)

const DefaultInterval = 15 * time.Second

type ordersAPI interface {
	ListConfirmed(ctx context.Context) ([]client.Order, error)
}

// Panel polls confirmed orders while it is visible.
type Panel struct {
	api      ordersAPI
	interval time.Duration
	onUpdate func([]client.Order)

	mu     sync.Mutex
	orders []client.Order
	cancel context.CancelFunc
	done   chan struct{}
}

type option func(*Panel)

//goland:noinspection GoExportedFuncWithUnexportedType
func WithInterval(d time.Duration) option {
	return func(p *Panel) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithOnUpdate registers a callback receiving every fresh snapshot.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOnUpdate(fn func([]client.Order)) option {
	return func(p *Panel) {
		p.onUpdate = fn
	}
}

func New(api ordersAPI, opts ...option) *Panel {
	p := &Panel{
		api:      api,
		interval: DefaultInterval,
		orders:   []client.Order{},
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Show fetches immediately and then every interval until Hide is called or ctx is done.
// Calling Show on a visible panel does nothing.
func (p *Panel) Show(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	go p.poll(ctx, done)
}

// Hide stops polling and waits for the poller to exit.
func (p *Panel) Hide() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

func (p *Panel) Visible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.cancel != nil
}

// Orders returns the last fetched snapshot.
func (p *Panel) Orders() []client.Order {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]client.Order, len(p.orders))
	copy(out, p.orders)

	return out
}

// Refresh fetches once. On failure the previous snapshot is kept.
func (p *Panel) Refresh(ctx context.Context) error {
	orders, err := p.api.ListConfirmed(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.orders = orders
	p.mu.Unlock()

	if p.onUpdate != nil {
		p.onUpdate(orders)
	}

	return nil
}

func (p *Panel) poll(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer p.release(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.refreshLogged(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refreshLogged(ctx)
		}
	}
}

// release marks the panel hidden when the poller that owns done exits on its own.
func (p *Panel) release(done chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done == done {
		p.cancel()
		p.cancel, p.done = nil, nil
	}
}

func (p *Panel) refreshLogged(ctx context.Context) {
	if err := p.Refresh(ctx); err != nil && ctx.Err() == nil {
		slog.Error("Failed to fetch confirmed orders", "error", err)
	}
}
