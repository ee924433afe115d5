package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"quizrank-service/internal/app"
	"quizrank-service/internal/authoring"
	"quizrank-service/internal/domain"
	"quizrank-service/internal/ranking"
)

// Rankings is the leaderboard surface the handler exposes to clients.
type Rankings interface {
	Current() []ranking.Entry
	Previous() []ranking.Entry
	Compare() []ranking.Change
}

// TestCatalog publishes and lists tests.
type TestCatalog interface {
	Publish(test domain.Test) domain.Test
	ListTests() []domain.Test
}

// ResultArchive serves the admin read views.
type ResultArchive interface {
	ResultsByTest(code string) []domain.Result
	Users() []domain.User
}

type WSHandler struct {
	engine   *app.SessionEngine
	rankings Rankings
	catalog  TestCatalog
	archive  ResultArchive
	wizard   *authoring.Wizard
	store    app.Store
	admins   map[string]bool
	hub      *Hub
	upgrader websocket.Upgrader
}

// Config wires the handler's collaborators. Admins lists the IDs allowed on
// the admin endpoint; those IDs are also barred from taking tests.
type Config struct {
	Engine   *app.SessionEngine
	Rankings Rankings
	Catalog  TestCatalog
	Archive  ResultArchive
	Wizard   *authoring.Wizard
	Store    app.Store
	Admins   []string
	Hub      *Hub
}

func NewWSHandler(c Config) *WSHandler {
	admins := make(map[string]bool, len(c.Admins))
	for _, id := range c.Admins {
		admins[id] = true
	}
	return &WSHandler{
		engine:   c.Engine,
		rankings: c.Rankings,
		catalog:  c.Catalog,
		archive:  c.Archive,
		wizard:   c.Wizard,
		store:    c.Store,
		admins:   admins,
		hub:      c.Hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Code string `json:"code"`
}

type answerPayload struct {
	QuestionIndex int `json:"questionIndex"`
	Selected      int `json:"selected"`
}

type resultsPayload struct {
	Code string `json:"code"`
}

type textPayload struct {
	Text string `json:"text"`
}

// ServeWS is the participant endpoint. The session outlives the connection:
// dropping and redialing mid-test picks up at whatever question is current.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	username := r.URL.Query().Get("username")
	if userID == "" || displayName == "" {
		http.Error(w, "missing userId or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	c := newClient(conn)
	go c.writeLoop()
	h.hub.addParticipant(userID, c)
	defer func() {
		h.hub.removeParticipant(userID, c)
		c.close()
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		h.handleParticipant(r.Context(), c, userID, displayName, username, inbound)
	}
}

func (h *WSHandler) handleParticipant(ctx context.Context, c *client, userID, displayName, username string, inbound inboundMessage) {
	switch inbound.Type {
	case "start":
		if h.admins[userID] {
			c.enqueue(errorMsg("administrators cannot take tests"))
			return
		}
		var payload startPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Code == "" {
			c.enqueue(errorMsg("invalid start payload"))
			return
		}
		if err := h.engine.Start(ctx, payload.Code, userID, displayName, username); err != nil {
			c.enqueue(errorMsg(startError(err)))
		}

	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			c.enqueue(errorMsg("invalid answer payload"))
			return
		}
		err := h.engine.SubmitAnswer(ctx, userID, payload.QuestionIndex, payload.Selected)
		switch {
		case errors.Is(err, domain.ErrStaleAnswer):
			// Late answer for an already-resolved question: drop silently.
		case errors.Is(err, domain.ErrNoActiveSession):
			c.enqueue(errorMsg("no test in progress"))
		case err != nil:
			c.enqueue(errorMsg(err.Error()))
		}

	case "cancel":
		h.engine.Cancel(userID)
		c.enqueue(outboundMessage[any]{Type: "cancelled", Payload: struct{}{}})

	case "ranking":
		c.enqueue(outboundMessage[any]{Type: "ranking", Payload: h.rankings.Current()})

	default:
		c.enqueue(errorMsg("unsupported message type"))
	}
}

// ServeAdminWS is the administrator endpoint: test authoring, result views and
// leaderboards. Completion notices arrive unsolicited via the hub.
func (h *WSHandler) ServeAdminWS(w http.ResponseWriter, r *http.Request) {
	adminID := r.URL.Query().Get("adminId")
	if adminID == "" {
		http.Error(w, "missing adminId", http.StatusBadRequest)
		return
	}
	if !h.admins[adminID] {
		http.Error(w, "not an administrator", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	c := newClient(conn)
	go c.writeLoop()
	h.hub.addAdmin(c)
	defer func() {
		h.hub.removeAdmin(c)
		c.close()
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		h.handleAdmin(r.Context(), c, adminID, inbound)
	}
}

func (h *WSHandler) handleAdmin(ctx context.Context, c *client, adminID string, inbound inboundMessage) {
	switch inbound.Type {
	case "create":
		c.enqueue(outboundMessage[any]{Type: "prompt", Payload: textPayload{Text: h.wizard.Begin(adminID)}})

	case "abort":
		h.wizard.Abort(adminID)
		c.enqueue(outboundMessage[any]{Type: "prompt", Payload: textPayload{Text: "Draft discarded."}})

	case "message":
		var payload textPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			c.enqueue(errorMsg("invalid message payload"))
			return
		}
		reply, test := h.wizard.HandleMessage(adminID, payload.Text)
		if test == nil {
			c.enqueue(outboundMessage[any]{Type: "prompt", Payload: textPayload{Text: reply}})
			return
		}
		published := h.catalog.Publish(*test)
		if err := h.store.UpsertTest(ctx, published); err != nil {
			log.Printf("admin: persist test %s: %v", published.Code, err)
		}
		c.enqueue(outboundMessage[any]{Type: "published", Payload: published})

	case "tests":
		c.enqueue(outboundMessage[any]{Type: "tests", Payload: h.catalog.ListTests()})

	case "results":
		var payload resultsPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Code == "" {
			c.enqueue(errorMsg("invalid results payload"))
			return
		}
		c.enqueue(outboundMessage[any]{Type: "results", Payload: h.archive.ResultsByTest(payload.Code)})

	case "ranking":
		c.enqueue(outboundMessage[any]{Type: "ranking", Payload: h.rankings.Current()})

	case "previousRanking":
		c.enqueue(outboundMessage[any]{Type: "previousRanking", Payload: h.rankings.Previous()})

	case "compare":
		c.enqueue(outboundMessage[any]{Type: "compare", Payload: h.rankings.Compare()})

	case "users":
		c.enqueue(outboundMessage[any]{Type: "users", Payload: h.archive.Users()})

	default:
		c.enqueue(errorMsg("unsupported message type"))
	}
}

func errorMsg(text string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: text}}
}

func startError(err error) string {
	switch {
	case errors.Is(err, domain.ErrTestNotFound):
		return "no test with that code"
	case errors.Is(err, domain.ErrInvalidTest):
		return "that test has no questions"
	default:
		return err.Error()
	}
}
