package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"soundboard/internal/catalog"
	"soundboard/internal/readiness"
)

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, 16),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// trySend queues data for the session. queued is false when the buffer is
// full; open is false when the session closed. The send and the close are
// serialized on c.mu so a session closing mid-broadcast is skipped, never
// a send on a closed channel.
func (c *client) trySend(data []byte) (queued, open bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, false
	}
	select {
	case c.send <- data:
		return true, true
	default:
		return false, true
	}
}

// Broadcaster owns the set of connected push-channel sessions. On connect it
// sends the config message followed by login or ready depending on the shared
// readiness state; afterwards it only speaks when a broadcast happens.
type Broadcaster struct {
	mu       sync.RWMutex
	clients  map[*client]bool
	state    *readiness.State
	frontEnd FrontEndConfig
}

func NewBroadcaster(state *readiness.State, frontEnd FrontEndConfig) *Broadcaster {
	return &Broadcaster{
		clients:  make(map[*client]bool),
		state:    state,
		frontEnd: frontEnd,
	}
}

func (b *Broadcaster) AddClient(conn *websocket.Conn) *client {
	c := newClient(conn)

	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()

	b.sendTo(c, Message{Type: MsgConfig, Data: b.frontEnd})

	if b.state.IsAuthenticated() {
		b.sendTo(c, Message{Type: MsgReady})
	} else {
		log.Printf("Redirecting client %s to Twitch login.", c.id)
		b.sendTo(c, Message{Type: MsgLogin})
	}

	return c
}

func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		c.close()
	}
	b.mu.Unlock()
}

// BroadcastPlay fans a play instruction out to every connected session.
// Fire-and-forget: a failed or slow session does not hold up the others.
func (b *Broadcaster) BroadcastPlay(cue catalog.Cue) {
	log.Printf("Playing sound %s.", cue.AssetName())
	b.broadcast(Message{Type: MsgPlay, Data: cue})
}

// BroadcastReady tells every connected session the trigger source just
// finished authenticating.
func (b *Broadcaster) BroadcastReady() {
	b.broadcast(Message{Type: MsgReady})
}

func (b *Broadcaster) sendTo(c *client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("ws marshal error: %v", err)
		return
	}
	// Full buffer or closed session: the message is dropped either way.
	c.trySend(data)
}

func (b *Broadcaster) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("broadcast marshal error: %v", err)
		return
	}

	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		queued, open := c.trySend(data)
		if !open {
			// Session closed between the snapshot and the send; skip it.
			continue
		}
		if !queued {
			// Client can't keep up, disconnect it.
			log.Printf("ws client %s too slow, disconnecting", c.id)
			b.RemoveClient(c)
		}
	}
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}
