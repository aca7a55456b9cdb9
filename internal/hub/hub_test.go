package hub

import (
	"encoding/json"
	"testing"
)

func newClient(id string, sub Subscription) *Client {
	return &Client{ID: id, Send: make(chan []byte, 1), Subscription: sub}
}

func TestBroadcastRespectsSubscription(t *testing.T) {
	h := New()
	all := newClient("all", Subscription{})
	loketA := newClient("a", Subscription{CounterID: "A"})
	loketB := newClient("b", Subscription{CounterID: "B"})
	for _, c := range []*Client{all, loketA, loketB} {
		h.Register(c)
	}

	h.Broadcast([]byte("issued-a"), Subscription{CounterID: "A"})

	if got := string(<-all.Send); got != "issued-a" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := string(<-loketA.Send); got != "issued-a" {
		t.Fatalf("unexpected message %q", got)
	}
	select {
	case msg := <-loketB.Send:
		t.Fatalf("loket B should not receive %q", msg)
	default:
	}

	h.Broadcast([]byte("counts"), Subscription{})
	if got := string(<-loketB.Send); got != "counts" {
		t.Fatalf("unfiltered events must reach every display, got %q", got)
	}
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	h := New()
	c := newClient("slow", Subscription{})
	h.Register(c)

	h.Broadcast([]byte("one"), Subscription{})
	h.Broadcast([]byte("two"), Subscription{})

	if got := string(<-c.Send); got != "one" {
		t.Fatalf("expected first message kept, got %q", got)
	}
}

func TestUnregisterClosesChannelOnce(t *testing.T) {
	h := New()
	c := newClient("x", Subscription{})
	h.Register(c)
	h.Unregister(c)
	h.Unregister(c)

	if _, ok := <-c.Send; ok {
		t.Fatalf("expected closed channel")
	}
	if h.ClientCount() != 0 {
		t.Fatalf("expected no clients")
	}
}

func TestPublishEnvelope(t *testing.T) {
	h := New()
	c := newClient("x", Subscription{})
	h.Register(c)

	if err := h.Publish(EventCounts, map[string]int{"loketA": 3}, Subscription{}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	var env Envelope
	if err := json.Unmarshal(<-c.Send, &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Type != EventCounts || string(env.Payload) != `{"loketA":3}` || env.CreatedAt.IsZero() {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestParseSubscribe(t *testing.T) {
	msg, ok := ParseSubscribe([]byte(`{"action":"subscribe","loket_type":"B"}`))
	if !ok || msg.CounterID != "B" {
		t.Fatalf("unexpected parse result %+v %v", msg, ok)
	}
	if _, ok := ParseSubscribe([]byte(`{"action":"dance"}`)); ok {
		t.Fatalf("unknown action should be rejected")
	}
	if _, ok := ParseSubscribe([]byte(`not json`)); ok {
		t.Fatalf("invalid json should be rejected")
	}
}
