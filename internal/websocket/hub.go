package websocket

import "github.com/rs/zerolog/log"

// targeted is a message addressed to the subscribers of one session.
type targeted struct {
	sessionID string
	message   []byte
}

// direct is a message addressed to a single client.
type direct struct {
	client  *Client
	message []byte
}

// Hub maintains the set of active clients and broadcasts event and log
// messages to them. Clients may subscribe to a single backup session or
// receive the global stream.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Messages for global broadcast.
	Broadcast chan []byte

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	// Messages addressed to one session's subscribers.
	targeted chan targeted

	// Replies addressed to a single client.
	direct chan direct

	// A map of session IDs to the set of clients subscribed to each.
	subscriptions map[string]map[*Client]bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		Broadcast:     make(chan []byte, 256),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		targeted:      make(chan targeted, 256),
		direct:        make(chan direct, 256),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
	}
}

// Run starts the Hub's message processing loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.clients[client] = true
			log.Info().Int("total_clients", len(h.clients)).Msg("Client connected")
			// If the client asked for a session stream on registration, subscribe it.
			if client.SessionID != "" {
				h.addSubscription(client, client.SessionID)
			}
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.removeSubscription(client)
				log.Info().Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case message := <-h.Broadcast:
			// Session subscribers get their copy through the targeted path.
			for client := range h.clients {
				if client.SessionID == "" {
					h.deliver(client, message)
				}
			}
		case t := <-h.targeted:
			for client := range h.subscriptions[t.sessionID] {
				h.deliver(client, t.message)
			}
		case d := <-h.direct:
			// The client may have been evicted since the reply was queued.
			if h.clients[d.client] {
				h.deliver(d.client, d.message)
			}
		}
	}
}

// BroadcastTo queues a message for all clients subscribed to a session.
// Safe to call from any goroutine; drops the message if the hub is saturated.
func (h *Hub) BroadcastTo(sessionID string, message []byte) {
	select {
	case h.targeted <- targeted{sessionID: sessionID, message: message}:
	default:
		log.Warn().Str("session_id", sessionID).Msg("Websocket hub saturated, dropping session message")
	}
}

// Send queues a reply for one client. Only the hub loop writes to a
// client's Send channel, so this is safe from any goroutine; the message is
// dropped if the client is gone or the hub is saturated.
func (h *Hub) Send(client *Client, message []byte) {
	select {
	case h.direct <- direct{client: client, message: message}:
	default:
		log.Warn().Msg("Websocket hub saturated, dropping direct message")
	}
}

// deliver pushes a message to one client, evicting it if its send buffer is full.
func (h *Hub) deliver(client *Client, message []byte) {
	select {
	case client.Send <- message:
	default:
		close(client.Send)
		delete(h.clients, client)
		h.removeSubscription(client)
	}
}

func (h *Hub) addSubscription(client *Client, sessionID string) {
	if h.subscriptions[sessionID] == nil {
		h.subscriptions[sessionID] = make(map[*Client]bool)
	}
	h.subscriptions[sessionID][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	for sessionID, subs := range h.subscriptions {
		if _, ok := subs[client]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscriptions, sessionID)
			}
		}
	}
}
