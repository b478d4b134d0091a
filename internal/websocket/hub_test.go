package websocket

import (
	"strings"
	"testing"
	"time"
)

func TestHubSend(t *testing.T) {
	h := NewHub()
	go h.Run()

	client := NewClient(h, nil, "")
	h.Register <- client

	h.Send(client, NewLogMessage("pong"))
	select {
	case msg := <-client.Send:
		if !strings.Contains(string(msg), "pong") {
			t.Errorf("message = %s, want pong reply", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("reply was not delivered")
	}
}

func TestHubSendToEvictedClient(t *testing.T) {
	h := NewHub()
	go h.Run()

	client := NewClient(h, nil, "")
	h.Register <- client

	// Fill the send buffer so the next delivery evicts the client.
	for i := 0; i < cap(client.Send); i++ {
		client.Send <- []byte("x")
	}
	h.Broadcast <- []byte("overflow")

	// The hub closes the channel on eviction; drain until we see it.
	deadline := time.Now().Add(5 * time.Second)
	evicted := false
	for !evicted {
		if time.Now().After(deadline) {
			t.Fatal("client was not evicted")
		}
		time.Sleep(10 * time.Millisecond)
		select {
		case _, ok := <-client.Send:
			if !ok {
				evicted = true
			}
		default:
		}
	}

	// A reply queued for a gone client is dropped, not sent on the closed
	// channel.
	h.Send(client, NewLogMessage("pong"))
	time.Sleep(50 * time.Millisecond)
}
