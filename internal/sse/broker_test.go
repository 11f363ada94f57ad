package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/othala/internal/lifecycle"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "record.created", Data: map[string]string{"address": "abc"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: record.created") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"address":"abc"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestRecordChanged_AnchorsThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First create should trigger anchors.updated.
	b.RecordChanged(lifecycle.Event{Kind: "task", Op: "create", Base: "p1", Address: "a1"})
	// Second create immediately should NOT trigger another anchors.updated.
	b.RecordChanged(lifecycle.Event{Kind: "task", Op: "create", Base: "p2", Address: "a2"})
	// Updates never touch anchors.
	b.RecordChanged(lifecycle.Event{Kind: "task", Op: "update", Address: "a3"})

	// Drain and count events.
	time.Sleep(50 * time.Millisecond)
	anchorsCount := 0
	recordCount := 0
loop:
	for {
		select {
		case msg := <-ch:
			s := string(msg)
			if strings.Contains(s, "anchors.updated") {
				anchorsCount++
			} else {
				recordCount++
			}
		default:
			break loop
		}
	}

	if recordCount != 3 {
		t.Errorf("record events = %d, want 3", recordCount)
	}
	if anchorsCount != 1 {
		t.Errorf("anchors events = %d, want 1 (throttled)", anchorsCount)
	}
}

func TestRecordChanged_EventShape(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.RecordChanged(lifecycle.Event{Kind: "origin", Op: "rebase", Base: "dest", Address: "addr-1"})
	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: record.rebased") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"kind":"origin"`) || !strings.Contains(s, `"base":"dest"`) || !strings.Contains(s, `"address":"addr-1"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	// Start handler in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: "record.updated", Data: map[string]string{"address": "x"}})
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: record.updated") {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	// If we reach here without deadlock, the test passes.
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Publish(Event{Type: "record.updated", Data: map[string]string{"address": "x"}})
	b.RecordChanged(lifecycle.Event{Kind: "task", Op: "update", Address: "x"})
}
