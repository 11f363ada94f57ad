package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/checksum"
	"github.com/starford/othala/internal/models"
)

// testProvider runs the behaviour every Provider must share.
func testProvider(t *testing.T, p Provider) {
	t.Helper()
	ctx := context.Background()

	e := models.Entry{Type: "task", Content: []byte(`{"title":"x","done":false}`)}
	addr, err := p.Put(ctx, e)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if addr != e.Address() {
		t.Errorf("addr = %s, want %s", addr, e.Address())
	}

	again, err := p.Put(ctx, e)
	if err != nil {
		t.Fatalf("second Put: %v", err)
	}
	if again != addr {
		t.Errorf("identical content must dedupe: %s != %s", again, addr)
	}

	got, err := p.Get(ctx, addr)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Type != e.Type || string(got.Content) != string(e.Content) {
		t.Errorf("Get = %+v, want %+v", got, e)
	}
	if got.Address() != addr {
		t.Errorf("stored entry must hash back to its address")
	}

	ok, err := p.Has(ctx, addr)
	if err != nil || !ok {
		t.Errorf("Has = %v, %v; want true", ok, err)
	}

	missing := models.Address(checksum.Sum([]byte("never written")))
	if _, err := p.Get(ctx, missing); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get(missing) err = %v, want ErrNotFound", err)
	}
	if ok, _ := p.Has(ctx, missing); ok {
		t.Error("Has(missing) = true")
	}

	if err := p.Remove(ctx, addr); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := p.Get(ctx, addr); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get after Remove err = %v, want ErrNotFound", err)
	}
	if err := p.Remove(ctx, addr); err != nil {
		t.Errorf("second Remove should be a no-op, got %v", err)
	}

	// Content may be written again after removal.
	if _, err := p.Put(ctx, e); err != nil {
		t.Fatalf("Put after Remove: %v", err)
	}
	if _, err := p.Get(ctx, addr); err != nil {
		t.Errorf("Get after re-Put: %v", err)
	}
}
