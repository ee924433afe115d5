// Package http exposes the quiz engine over websockets: one endpoint for
// participants taking tests, one for administrators authoring tests and
// watching completions.
package http

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"quizrank-service/internal/domain"
)

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type timeoutPayload struct {
	QuestionIndex int `json:"questionIndex"`
}

type resultPayload struct {
	domain.ResultView
	Message string `json:"message"`
}

// client is one websocket connection with a dedicated writer goroutine, so
// engine callbacks and the read loop never write to the conn concurrently.
type client struct {
	conn *websocket.Conn
	send chan outboundMessage[any]

	mu     sync.Mutex
	closed bool
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		send: make(chan outboundMessage[any], 16),
	}
}

func (c *client) writeLoop() {
	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			log.Printf("ws write error: %v", err)
			return
		}
	}
}

// enqueue is fire-and-forget: a full buffer means a dead or stalled client,
// and a session must never block on it. The closed check shares the mutex
// with close, so a timer callback that fetched this client just before its
// connection went away cannot send on a closed channel.
func (c *client) enqueue(msg outboundMessage[any]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
		log.Printf("ws send buffer full, dropping %s", msg.Type)
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

// Hub routes engine callbacks to connected clients. A participant who is not
// connected simply misses the message; their session keeps running and they
// can reconnect to catch the next prompt.
type Hub struct {
	mu           sync.RWMutex
	participants map[string]*client
	admins       map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		participants: make(map[string]*client),
		admins:       make(map[*client]struct{}),
	}
}

func (h *Hub) addParticipant(participantID string, c *client) {
	h.mu.Lock()
	old := h.participants[participantID]
	h.participants[participantID] = c
	h.mu.Unlock()
	if old != nil {
		old.close()
	}
}

func (h *Hub) removeParticipant(participantID string, c *client) {
	h.mu.Lock()
	if h.participants[participantID] == c {
		delete(h.participants, participantID)
	}
	h.mu.Unlock()
}

func (h *Hub) addAdmin(c *client) {
	h.mu.Lock()
	h.admins[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) removeAdmin(c *client) {
	h.mu.Lock()
	delete(h.admins, c)
	h.mu.Unlock()
}

func (h *Hub) toParticipant(participantID string, msg outboundMessage[any]) {
	h.mu.RLock()
	c := h.participants[participantID]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	c.enqueue(msg)
}

// PresentQuestion implements app.Transport.
func (h *Hub) PresentQuestion(participantID string, view domain.QuestionView) {
	h.toParticipant(participantID, outboundMessage[any]{Type: "question", Payload: view})
}

// NotifyTimeout implements app.Transport.
func (h *Hub) NotifyTimeout(participantID string, questionIndex int) {
	h.toParticipant(participantID, outboundMessage[any]{Type: "timeout", Payload: timeoutPayload{QuestionIndex: questionIndex}})
}

// PresentResult implements app.Transport.
func (h *Hub) PresentResult(participantID string, view domain.ResultView) {
	h.toParticipant(participantID, outboundMessage[any]{Type: "result", Payload: resultPayload{
		ResultView: view,
		Message:    praise(view.Percent),
	}})
}

// NotifyAdmins implements app.Transport.
func (h *Hub) NotifyAdmins(summary domain.AdminSummary) {
	h.mu.RLock()
	admins := make([]*client, 0, len(h.admins))
	for c := range h.admins {
		admins = append(admins, c)
	}
	h.mu.RUnlock()

	for _, c := range admins {
		c.enqueue(outboundMessage[any]{Type: "completion", Payload: summary})
	}
}

func praise(percent float64) string {
	switch {
	case percent >= 100:
		return "Perfect score, congratulations!"
	case percent >= 80:
		return "Great job!"
	case percent >= 60:
		return "Good work, keep it up."
	default:
		return "Keep practicing, you'll get there."
	}
}
