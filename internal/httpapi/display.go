package httpapi

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/Guesen/sistem-antrian-puskesmas/internal/hub"
	"github.com/Guesen/sistem-antrian-puskesmas/internal/models"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"
)

// CountsFunc returns the counts a display shows right after connecting.
type CountsFunc func(ctx context.Context) (models.Counts, error)

// NewDisplayHandler serves the SockJS channel display screens listen on.
// A display may send {"action":"subscribe","loket_type":"A"} to receive only
// one loket's issuance events; counts and resets always reach every display.
func NewDisplayHandler(h *hub.Hub, counts CountsFunc) http.Handler {
	return sockjs.NewHandler("/display", sockjs.DefaultOptions, func(session sockjs.Session) {
		client := &hub.Client{ID: uuid.NewString(), Send: make(chan []byte, 16)}
		h.Register(client)
		defer h.Unregister(client)

		go func() {
			for msg := range client.Send {
				_ = session.Send(string(msg))
			}
		}()

		if counts != nil {
			sendSnapshot(session, counts)
		}

		for {
			msg, err := session.Recv()
			if err != nil {
				return
			}
			parsed, ok := hub.ParseSubscribe([]byte(msg))
			if !ok {
				continue
			}
			if parsed.Action == "unsubscribe" {
				h.UpdateSubscription(client, hub.Subscription{})
				continue
			}
			if parsed.CounterID != "" && !models.ValidCounter(parsed.CounterID) {
				_ = session.Close(4004, "unknown loket")
				return
			}
			h.UpdateSubscription(client, hub.Subscription{CounterID: parsed.CounterID})
		}
	})
}

func sendSnapshot(session sockjs.Session, counts CountsFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	current, err := counts(ctx)
	if err != nil {
		log.Printf("display snapshot failed session=%s err=%v", session.ID(), err)
		return
	}
	message, err := hub.Encode(hub.EventCounts, current)
	if err != nil {
		return
	}
	_ = session.Send(string(message))
}
