package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
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

func TestPatchEventDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishPatchEvent(KindSaved, "1")

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.HasPrefix(s, "id: 1\n") {
			t.Errorf("missing event id in %q", s)
		}
		if !strings.Contains(s, "event: patch.saved") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"id":"1"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func drain(ch chan []byte) []string {
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

func TestPublishPatchEvent_CatalogThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First change triggers catalog.changed, the second is throttled.
	b.PublishPatchEvent(KindSaved, "1")
	b.PublishPatchEvent(KindDeleted, "2")

	time.Sleep(50 * time.Millisecond)
	catalogCount, saved, deleted := 0, 0, 0
	for _, s := range drain(ch) {
		switch {
		case strings.Contains(s, "event: catalog.changed"):
			catalogCount++
		case strings.Contains(s, "event: patch.saved"):
			saved++
		case strings.Contains(s, "event: patch.deleted"):
			deleted++
		}
	}

	if saved != 1 || deleted != 1 {
		t.Errorf("saved = %d, deleted = %d, want 1 each", saved, deleted)
	}
	if catalogCount != 1 {
		t.Errorf("catalog events = %d, want 1 (throttled)", catalogCount)
	}
}

func TestPublishPatchEvent_ThrottleWindowExpires(t *testing.T) {
	b := NewBroker(50 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishPatchEvent(KindSaved, "1")
	time.Sleep(100 * time.Millisecond)
	b.PublishPatchEvent(KindSaved, "1")
	time.Sleep(50 * time.Millisecond)

	catalogCount := 0
	for _, s := range drain(ch) {
		if strings.Contains(s, "catalog.changed") {
			catalogCount++
		}
	}
	if catalogCount != 2 {
		t.Errorf("catalog events = %d, want 2", catalogCount)
	}
}

func TestPublishPatchEvent_UnknownKindDropped(t *testing.T) {
	b := NewBroker(time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishPatchEvent("renamed", "1")
	time.Sleep(50 * time.Millisecond)
	if got := drain(ch); len(got) != 0 {
		t.Errorf("unexpected events: %v", got)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()

	srv := httptest.NewServer(b)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	deadline := time.Now().Add(2 * time.Second)
	for b.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("handler never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	b.PublishPatchEvent(KindSaved, "4")

	lines := make(chan string, 16)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatal("stream closed before event")
			}
			if line == "event: patch.saved" {
				cancel()
				return
			}
		case <-timeout:
			t.Fatal("timeout waiting for patch.saved")
		}
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill the client buffer and keep going; publishing must not block.
	for i := 0; i < clientBuffer+10; i++ {
		b.PublishPatchEvent(KindSaved, "1")
	}
	if got := len(drain(ch)); got != clientBuffer {
		t.Errorf("buffered frames = %d, want %d", got, clientBuffer)
	}
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

	// Safe no-ops after close.
	b.PublishPatchEvent(KindSaved, "1")
	b.Close()
	if _, ok := <-b.Subscribe(); ok {
		t.Fatal("subscribe after close should return a closed channel")
	}
}
