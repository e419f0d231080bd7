package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/mdorg/internal/models"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.clientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.clientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.clientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: TypeOutputRemoved, Data: map[string]string{"source": "a.md"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: output.removed") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"source":"a.md"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublish_OnlyTreeChangesUpdateIndex(t *testing.T) {
	b := NewBroker(time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "heartbeat", Data: map[string]string{}})
	if msgs := drain(ch); len(msgs) != 1 {
		t.Errorf("messages = %d, want 1 for a non-tree event", len(msgs))
	}
	b.Publish(Event{Type: TypeConversionCompleted, Data: map[string]string{"source": "a.md"}})
	msgs := drain(ch)
	if len(msgs) != 2 || !strings.Contains(msgs[1], "event: index.updated") {
		t.Errorf("messages = %q, want event plus index.updated", msgs)
	}
}

func drain(ch chan []byte) []string {
	time.Sleep(50 * time.Millisecond)
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestConversionDone_IndexThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First change should trigger index.updated.
	b.ConversionDone(models.Conversion{Source: "a.md", Status: models.StatusConverted})
	// Second change immediately should NOT trigger another index.updated.
	b.ConversionDone(models.Conversion{Source: "b.md", Status: models.StatusFailed, Error: "boom"})

	indexCount, completed, failed := 0, 0, 0
	for _, s := range drain(ch) {
		switch {
		case strings.Contains(s, "event: index.updated"):
			indexCount++
		case strings.Contains(s, "event: conversion.completed"):
			completed++
		case strings.Contains(s, "event: conversion.failed"):
			failed++
			if !strings.Contains(s, `"error":"boom"`) {
				t.Errorf("failed event missing error: %q", s)
			}
		}
	}

	if completed != 1 || failed != 1 {
		t.Errorf("completed = %d, failed = %d, want 1 each", completed, failed)
	}
	if indexCount != 1 {
		t.Errorf("index events = %d, want 1 (throttled)", indexCount)
	}
}

func TestConversionDone_SkippedNotPublished(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.ConversionDone(models.Conversion{Source: "a.md", Status: models.StatusSkipped})
	if msgs := drain(ch); len(msgs) != 0 {
		t.Errorf("skipped conversion published %d messages", len(msgs))
	}
}

func TestOutputRemoved(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.OutputRemoved("n/a.md", "n/a.org")
	msgs := drain(ch)
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want removal plus index.updated", len(msgs))
	}
	if !strings.Contains(msgs[0], "event: output.removed") || !strings.Contains(msgs[0], `"output":"n/a.org"`) {
		t.Errorf("removal message = %q", msgs[0])
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
	if b.clientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: TypeConversionCompleted, Data: map[string]string{"source": "x.md"}})
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: conversion.completed") {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.clientCount() != 0 {
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
	if b.clientCount() != 1 {
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

	if b.clientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Publish(Event{Type: TypeConversionCompleted, Data: map[string]string{"source": "x.md"}})
	b.OutputRemoved("x.md", "x.org")
}
