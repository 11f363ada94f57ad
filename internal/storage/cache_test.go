package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
)

// countingProvider counts Get calls that reach the backend.
type countingProvider struct {
	Provider
	gets int
}

func (c *countingProvider) Get(ctx context.Context, addr models.Address) (models.Entry, error) {
	c.gets++
	return c.Provider.Get(ctx, addr)
}

func TestCached_Conformance(t *testing.T) {
	c, err := NewCached(tempStore(t), 0, 0)
	if err != nil {
		t.Fatalf("NewCached: %v", err)
	}
	defer c.Close()
	testProvider(t, c)
}

func TestCached_ServesRepeatReadsFromCache(t *testing.T) {
	ctx := context.Background()
	inner := &countingProvider{Provider: tempStore(t)}
	c, err := NewCached(inner, 1000, 1<<20)
	if err != nil {
		t.Fatalf("NewCached: %v", err)
	}
	defer c.Close()

	addr, err := inner.Put(ctx, models.Entry{Type: "task", Content: []byte(`{"title":"cached"}`)})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := c.Get(ctx, addr); err != nil {
		t.Fatalf("Get: %v", err)
	}
	c.Wait()
	if _, err := c.Get(ctx, addr); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if inner.gets != 1 {
		t.Errorf("backend gets = %d, want 1", inner.gets)
	}
}

func TestCached_RemoveEvicts(t *testing.T) {
	ctx := context.Background()
	c, err := NewCached(tempStore(t), 1000, 1<<20)
	if err != nil {
		t.Fatalf("NewCached: %v", err)
	}
	defer c.Close()

	addr, err := c.Put(ctx, models.Entry{Type: "task", Content: []byte(`{"title":"gone"}`)})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	c.Wait()
	if err := c.Remove(ctx, addr); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := c.Get(ctx, addr); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get after Remove err = %v, want ErrNotFound", err)
	}
}

func TestInstrument_Conformance(t *testing.T) {
	testProvider(t, Instrument(tempStore(t), "fs"))
}
