package notifier

import (
	"errors"
	"sync"
)

var (
	ErrClientClosed = errors.New("client closed")
	ErrClientSlow   = errors.New("client buffer full")
)

// Event is one message on the real-time channel.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// Subscriber receives events pushed by the notifier. Deliver must not block.
type Subscriber interface {
	ID() string
	Deliver(ev Event) error
	Close()
}

// Client is a Subscriber backed by a buffered channel. The transport that
// owns the connection drains Events and writes them to the wire.
type Client struct {
	id     string
	ch     chan Event
	mu     sync.Mutex
	closed bool
}

func NewClient(id string, bufferSize int) *Client {
	return &Client{
		id: id,
		ch: make(chan Event, bufferSize),
	}
}

func (c *Client) ID() string { return c.id }

// Events is closed once the client is removed from the registry.
func (c *Client) Events() <-chan Event { return c.ch }

func (c *Client) Deliver(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.ch <- ev:
		return nil
	default:
		return ErrClientSlow
	}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}
