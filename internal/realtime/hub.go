package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

const sendBufferSize = 32

// Client is one live connection as seen by the hub.
type Client struct {
	userID string
	room   string
	send   chan []byte
	once   sync.Once
}

func newClient(userID string) *Client {
	return &Client{
		userID: userID,
		room:   UserRoom(userID),
		send:   make(chan []byte, sendBufferSize),
	}
}

func (c *Client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub tracks room membership of the connections of this process.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
	log   logrus.FieldLogger
}

// NewHub creates an empty hub.
func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		rooms: make(map[string]map[*Client]struct{}),
		log:   log,
	}
}

// Join admits a client to its room.
func (h *Hub) Join(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[c.room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[c.room] = members
	}
	members[c] = struct{}{}
}

// Leave removes a client from its room and closes its send queue.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	if members, ok := h.rooms[c.room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, c.room)
		}
	}
	h.mu.Unlock()
	c.close()
}

// Members returns how many connections are in a room.
func (h *Hub) Members(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Emit queues a frame to every connection in the room. A room without
// members is not an error. Connections whose queue is full are dropped.
func (h *Hub) Emit(_ context.Context, room, event string, payload interface{}) error {
	msg, err := json.Marshal(Frame{Event: event, Data: payload})
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", event, err)
	}

	var slow []*Client
	h.mu.RLock()
	for c := range h.rooms[room] {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.WithFields(logrus.Fields{"room": room, "event": event}).Warn("dropping slow websocket client")
		h.Leave(c)
	}
	return nil
}
