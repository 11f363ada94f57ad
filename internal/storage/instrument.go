package storage

import (
	"context"
	"time"

	"github.com/starford/othala/internal/metrics"
	"github.com/starford/othala/internal/models"
)

// Instrument returns a Provider that records latency for every operation under
// the given backend label.
func Instrument(inner Provider, backend string) Provider {
	return &instrumented{inner: inner, backend: backend}
}

type instrumented struct {
	inner   Provider
	backend string
}

func (p *instrumented) observe(op string, start time.Time) {
	metrics.ObserveStore(p.backend, op, start)
}

func (p *instrumented) Put(ctx context.Context, e models.Entry) (models.Address, error) {
	defer p.observe("put", time.Now())
	return p.inner.Put(ctx, e)
}

func (p *instrumented) Get(ctx context.Context, addr models.Address) (models.Entry, error) {
	defer p.observe("get", time.Now())
	return p.inner.Get(ctx, addr)
}

func (p *instrumented) Has(ctx context.Context, addr models.Address) (bool, error) {
	defer p.observe("has", time.Now())
	return p.inner.Has(ctx, addr)
}

func (p *instrumented) Remove(ctx context.Context, addr models.Address) error {
	defer p.observe("remove", time.Now())
	return p.inner.Remove(ctx, addr)
}

func (p *instrumented) Close() error {
	return p.inner.Close()
}
