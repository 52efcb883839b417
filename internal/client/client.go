// Package client implements the overlay side of the push channel: a
// long-lived reconnecting connection to the server and the asset preloader
// that keeps cue playback in sync.
package client

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"soundboard/internal/catalog"
	"soundboard/internal/ws"
)

// ReconnectDelay is the fixed wait before a reconnect attempt.
const ReconnectDelay = time.Second

// serverDownBanner is shown whenever the connection drops.
const serverDownBanner = "The soundboard server is not running."

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

// Handlers receive connection and push-channel events. Nil handlers are
// skipped. Handlers are called from the client's goroutines.
type Handlers struct {
	OnError  func(banner string)
	OnConfig func(cfg ws.FrontEndConfig)
	OnLogin  func()
	OnReady  func()
	OnPlay   func(cue catalog.Cue)
}

// Client maintains a single logical connection to the push channel,
// reconnecting after a fixed delay when it drops. At most one reconnect
// timer is ever pending: scheduling a new attempt cancels the previous
// handle first.
type Client struct {
	url      string
	handlers Handlers
	delay    time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	state     State
	reconnect *time.Timer
	closed    bool
}

func New(url string, handlers Handlers) *Client {
	return &Client{
		url:      url,
		handlers: handlers,
		delay:    ReconnectDelay,
	}
}

// Start begins connecting in the background.
func (c *Client) Start() {
	go c.connect()
}

// State returns the connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close tears the connection down and cancels any pending reconnect.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	conn := c.conn
	c.conn = nil
	c.state = Disconnected
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

func (c *Client) connect() {
	c.mu.Lock()
	if c.closed || c.state != Disconnected {
		c.mu.Unlock()
		return
	}
	c.state = Connecting
	c.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		c.dropped(err)
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.state = Connected
	// Successful open clears any prior reconnect timer.
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	c.mu.Unlock()

	go c.readLoop(conn)
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
			}
			c.mu.Unlock()
			c.dropped(err)
			return
		}
		c.dispatch(data)
	}
}

// dropped moves the client to Disconnected, shows the banner and schedules
// a single reconnect attempt.
func (c *Client) dropped(err error) {
	log.Printf("push channel connection lost: %v", err)
	if c.handlers.OnError != nil {
		c.handlers.OnError(serverDownBanner)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.state = Disconnected
	c.scheduleReconnectLocked()
}

// scheduleReconnectLocked arms the reconnect timer, cancelling any previous
// handle so exactly one is ever live. Caller holds c.mu.
func (c *Client) scheduleReconnectLocked() {
	if c.reconnect != nil {
		c.reconnect.Stop()
	}
	c.reconnect = time.AfterFunc(c.delay, c.connect)
}

// message is the receive-side envelope; the payload stays raw until the
// type is known.
type message struct {
	Type ws.MessageType  `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (c *Client) dispatch(data []byte) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("push channel: bad message: %v", err)
		return
	}

	switch msg.Type {
	case ws.MsgConfig:
		var cfg ws.FrontEndConfig
		if err := json.Unmarshal(msg.Data, &cfg); err != nil {
			log.Printf("push channel: bad config payload: %v", err)
			return
		}
		if c.handlers.OnConfig != nil {
			c.handlers.OnConfig(cfg)
		}
	case ws.MsgLogin:
		if c.handlers.OnLogin != nil {
			c.handlers.OnLogin()
		}
	case ws.MsgReady:
		if c.handlers.OnReady != nil {
			c.handlers.OnReady()
		}
	case ws.MsgPlay:
		var cue catalog.Cue
		if err := json.Unmarshal(msg.Data, &cue); err != nil {
			log.Printf("push channel: bad play payload: %v", err)
			return
		}
		if c.handlers.OnPlay != nil {
			c.handlers.OnPlay(cue)
		}
	}
}
