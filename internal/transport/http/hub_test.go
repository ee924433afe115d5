package http

import (
	"testing"

	"quizrank-service/internal/domain"
)

func TestEnqueueAfterCloseIsDropped(t *testing.T) {
	c := newClient(nil)
	c.close()

	// An engine callback may hold the client after its connection went away;
	// a late enqueue must be a silent drop, not a send on a closed channel.
	c.enqueue(errorMsg("late"))
	c.close() // idempotent
}

func TestHubDeliveryAfterDisconnect(t *testing.T) {
	hub := NewHub()
	c := newClient(nil)
	hub.addParticipant("u1", c)
	hub.addAdmin(c)

	// Teardown in the reader's order: unregister, then close.
	hub.removeParticipant("u1", c)
	hub.removeAdmin(c)
	c.close()

	// Callbacks racing the teardown must be harmless no-ops.
	hub.PresentQuestion("u1", domain.QuestionView{Text: "late"})
	hub.NotifyTimeout("u1", 0)
	hub.PresentResult("u1", domain.ResultView{})
	hub.NotifyAdmins(domain.AdminSummary{})
}

func TestHubReplaceClosesDisplacedClient(t *testing.T) {
	hub := NewHub()
	old := newClient(nil)
	hub.addParticipant("u1", old)

	next := newClient(nil)
	hub.addParticipant("u1", next)

	// The displaced client is closed; enqueues against it are dropped while
	// the replacement still receives.
	old.enqueue(errorMsg("late"))
	hub.PresentQuestion("u1", domain.QuestionView{Text: "current"})

	select {
	case msg := <-next.send:
		if msg.Type != "question" {
			t.Fatalf("expected question for replacement client, got %s", msg.Type)
		}
	default:
		t.Fatalf("expected message delivered to replacement client")
	}
	select {
	case msg, ok := <-old.send:
		if ok {
			t.Fatalf("displaced client received %s", msg.Type)
		}
	default:
	}
}
