package api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// RunEvent describes websocket payloads emitted as a reasoning run moves
// through its pipeline states.
type RunEvent struct {
	Type      string     `json:"type"`
	RunID     string     `json:"run_id"`
	SetID     uint       `json:"set_id,omitempty"`
	Attempt   int        `json:"attempt,omitempty"`
	State     string     `json:"state,omitempty"`
	Issues    []IssueDTO `json:"issues,omitempty"`
	Message   string     `json:"message,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// wsClient wraps a websocket connection with write locking.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// RunNotifier keeps track of active websocket clients and broadcasts run
// events.
type RunNotifier struct {
	mu         sync.Mutex
	clients    map[*wsClient]struct{}
	lastStatus *RunEvent
}

// NewRunNotifier constructs a notifier instance.
func NewRunNotifier() *RunNotifier {
	return &RunNotifier{clients: make(map[*wsClient]struct{})}
}

// Register attaches a websocket connection and returns a client handle.
func (n *RunNotifier) Register(conn *websocket.Conn) *wsClient {
	client := &wsClient{conn: conn}
	n.mu.Lock()
	n.clients[client] = struct{}{}
	status := n.lastStatus
	n.mu.Unlock()

	if status != nil {
		_ = client.writeJSON(*status)
	}
	return client
}

// Unregister removes the websocket client from the notifier and closes the socket.
func (n *RunNotifier) Unregister(client *wsClient) {
	if client == nil {
		return
	}
	n.mu.Lock()
	delete(n.clients, client)
	n.mu.Unlock()
	_ = client.conn.Close()
}

// Broadcast sends the supplied event to all registered websocket clients.
func (n *RunNotifier) Broadcast(event RunEvent) {
	event.Timestamp = time.Now().UTC()

	n.mu.Lock()
	if event.Type == "state" || event.Type == "done" || event.Type == "failed" {
		snapshot := event
		n.lastStatus = &snapshot
	}

	for client := range n.clients {
		if err := client.writeJSON(event); err != nil {
			delete(n.clients, client)
			_ = client.conn.Close()
		}
	}
	n.mu.Unlock()
}

func (c *wsClient) writeJSON(payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(payload)
}

func (n *RunNotifier) LastStatus() *RunEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.lastStatus == nil {
		return nil
	}
	copy := *n.lastStatus
	return &copy
}
