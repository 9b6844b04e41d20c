// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package planclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/plansync/plansync/models"
	"github.com/plansync/plansync/realtime"
)

func newDisconnectedClient(t *testing.T, serverURL string) *Client {
	t.Helper()

	c, err := New(Config{ServerURL: serverURL})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func samplePlanView(planID string, voteCount int) *models.PlanView {
	votes := make([]models.VoteView, 0, voteCount)
	for i := 0; i < voteCount; i++ {
		votes = append(votes, models.VoteView{
			ID:     "v" + string(rune('1'+i)),
			UserID: "u" + string(rune('1'+i)),
			User:   models.User{ID: "u" + string(rune('1'+i)), Name: "User"},
		})
	}
	return &models.PlanView{
		ID:        planID,
		Title:     "Dinner spot",
		CreatedBy: models.User{ID: "creator", Name: "Alice"},
		Options: []models.OptionView{
			{ID: "opt-1", OptionText: "Tacos", Votes: votes},
			{ID: "opt-2", OptionText: "Sushi", Votes: []models.VoteView{}},
		},
		Comments: []models.CommentView{},
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	if _, err := New(Config{ServerURL: "not a url"}); err == nil {
		t.Error("Expected error for invalid server URL")
	}
	if _, err := New(Config{ServerURL: "ftp://example.com"}); err == nil {
		t.Error("Expected error for non-http scheme")
	}
}

func TestFallbackVoteRefetchesAuthoritativeView(t *testing.T) {
	var posted atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("POST /votes", func(w http.ResponseWriter, r *http.Request) {
		var req realtime.VotePayload
		json.NewDecoder(r.Body).Decode(&req)
		if req.UserID != "u1" || req.OptionID != "opt-2" {
			t.Errorf("Unexpected vote request: %+v", req)
		}
		posted.Store(true)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.Vote{ID: "v1", UserID: "u1", OptionID: "opt-2", PlanID: "p1"})
	})
	mux.HandleFunc("GET /plans/{id}", func(w http.ResponseWriter, r *http.Request) {
		pv := samplePlanView("p1", 0)
		pv.Options[1].Votes = []models.VoteView{{ID: "v1", UserID: "u1", User: models.User{ID: "u1"}}}
		json.NewEncoder(w).Encode(pv)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := newDisconnectedClient(t, ts.URL)
	c.mu.Lock()
	c.committed["p1"] = samplePlanView("p1", 0)
	c.mu.Unlock()

	if err := c.Vote(context.Background(), "u1", "opt-2", "p1"); err != nil {
		t.Fatalf("Vote failed: %v", err)
	}
	if !posted.Load() {
		t.Error("Expected a fallback POST /votes")
	}

	// The committed view is the refetched server state and no overlay remains.
	pv := c.View("p1")
	if pv == nil || len(pv.Options[1].Votes) != 1 || pv.Options[1].Votes[0].ID != "v1" {
		t.Errorf("Expected authoritative refetched view, got %+v", pv)
	}
	c.mu.Lock()
	if len(c.pending) != 0 {
		t.Error("Pending overlay should be cleared after refetch")
	}
	c.mu.Unlock()
}

func TestFallbackErrorRevertsOptimism(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /comments", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(models.ErrorResponse{Error: "You can only comment once per plan"})
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := newDisconnectedClient(t, ts.URL)
	c.mu.Lock()
	c.committed["p1"] = samplePlanView("p1", 0)
	c.mu.Unlock()

	err := c.Comment(context.Background(), "again!", "u1", "p1")
	if err == nil {
		t.Fatal("Expected error from fallback API")
	}
	if err.Error() != "You can only comment once per plan" {
		t.Errorf("Expected server error message to surface, got %q", err)
	}

	// The optimistic comment is gone; the view is back to committed state.
	pv := c.View("p1")
	if len(pv.Comments) != 0 {
		t.Errorf("Optimistic comment should be reverted, got %+v", pv.Comments)
	}
}

func TestOptimisticVoteMovesNotDuplicates(t *testing.T) {
	c := newDisconnectedClient(t, "http://localhost:0")
	c.mu.Lock()
	c.committed["p1"] = samplePlanView("p1", 1) // u1 already voted on opt-1
	c.mu.Unlock()

	c.applyOptimistic("p1", func(pv *models.PlanView) {
		moveVote(pv, "u1", "opt-2")
	})

	pv := c.View("p1")
	if len(pv.Options[0].Votes) != 0 {
		t.Errorf("Old option should lose the vote, got %+v", pv.Options[0].Votes)
	}
	if len(pv.Options[1].Votes) != 1 || pv.Options[1].Votes[0].UserID != "u1" {
		t.Errorf("New option should hold the single vote, got %+v", pv.Options[1].Votes)
	}

	// The committed layer is untouched until an authoritative message lands.
	c.mu.Lock()
	committed := c.committed["p1"]
	c.mu.Unlock()
	if len(committed.Options[0].Votes) != 1 {
		t.Error("Committed state must not be mutated by the overlay")
	}
}

func TestDispatchPlanUpdatedReplacesOverlay(t *testing.T) {
	c := newDisconnectedClient(t, "http://localhost:0")
	c.mu.Lock()
	c.committed["p1"] = samplePlanView("p1", 0)
	c.pending["p1"] = samplePlanView("p1", 1)
	c.mu.Unlock()

	var delivered atomic.Bool
	c.OnPlanUpdated(func(p realtime.PlanUpdatedPayload) { delivered.Store(true) })

	authoritative := samplePlanView("p1", 2)
	msg, _ := realtime.NewMessage(realtime.EventPlanUpdated, realtime.PlanUpdatedPayload{
		PlanID: "p1", Action: realtime.ActionVote, Plan: authoritative,
	})
	c.dispatch(msg)

	if !delivered.Load() {
		t.Error("Expected registered handler to fire")
	}

	// The broadcast wins over local optimism.
	pv := c.View("p1")
	if len(pv.Options[0].Votes) != 2 {
		t.Errorf("Expected authoritative view with 2 votes, got %+v", pv.Options[0].Votes)
	}
	c.mu.Lock()
	if _, ok := c.pending["p1"]; ok {
		t.Error("Overlay should be cleared by the broadcast")
	}
	c.mu.Unlock()
}

func TestDispatchPlanDeletedDropsState(t *testing.T) {
	c := newDisconnectedClient(t, "http://localhost:0")
	c.mu.Lock()
	c.committed["p1"] = samplePlanView("p1", 0)
	c.joined["p1"] = true
	c.mu.Unlock()

	msg, _ := realtime.NewMessage(realtime.EventPlanDeleted, realtime.PlanDeletedPayload{
		PlanID:  "p1",
		Message: "Plan and all related data deleted successfully",
		DeletedData: models.DeletedData{
			PlanID: "p1", OptionsCount: 2, VotesCount: 1, CommentsCount: 0,
		},
	})
	c.dispatch(msg)

	if c.View("p1") != nil {
		t.Error("Deleted plan should have no view")
	}
	c.mu.Lock()
	if c.joined["p1"] {
		t.Error("Deleted plan should not be re-joined on reconnect")
	}
	c.mu.Unlock()
}

func TestActionErrorClearsOverlays(t *testing.T) {
	c := newDisconnectedClient(t, "http://localhost:0")
	c.mu.Lock()
	c.committed["p1"] = samplePlanView("p1", 0)
	c.pending["p1"] = samplePlanView("p1", 1)
	c.mu.Unlock()

	var gotEvent, gotMessage string
	c.OnActionError(func(event, message string) {
		gotEvent, gotMessage = event, message
	})

	msg, _ := realtime.NewMessage(realtime.EventVoteError, models.ErrorResponse{Error: "Failed to process vote"})
	c.dispatch(msg)

	if gotEvent != realtime.EventVoteError || gotMessage != "Failed to process vote" {
		t.Errorf("Expected error handler call, got %q %q", gotEvent, gotMessage)
	}
	pv := c.View("p1")
	if len(pv.Options[0].Votes) != 0 {
		t.Error("Rejected action should revert to committed state")
	}
}

func TestRejectedLiveDeleteRestoresView(t *testing.T) {
	c := newDisconnectedClient(t, "http://localhost:0")
	c.mu.Lock()
	c.committed["p1"] = samplePlanView("p1", 1)
	c.mu.Unlock()

	c.stashForDelete("p1")
	if c.View("p1") != nil {
		t.Error("Deletion in flight should hide the plan")
	}

	msg, _ := realtime.NewMessage(realtime.EventPlanDeleteError, models.ErrorResponse{
		Error: "Plan not found or you don't have permission to delete it",
	})
	c.dispatch(msg)

	pv := c.View("p1")
	if pv == nil || len(pv.Options[0].Votes) != 1 {
		t.Errorf("Rejected delete must restore the committed view, got %+v", pv)
	}
}

func TestSendFailureRevertsOptimism(t *testing.T) {
	c := newDisconnectedClient(t, "http://localhost:0")
	c.mu.Lock()
	c.committed["p1"] = samplePlanView("p1", 0)
	// Connected but with no conn underneath: every live send fails.
	c.connected = true
	c.mu.Unlock()
	ctx := context.Background()

	if err := c.Vote(ctx, "u1", "opt-1", "p1"); err == nil {
		t.Fatal("Expected send error")
	}
	if got := len(c.View("p1").Options[0].Votes); got != 0 {
		t.Errorf("Failed vote send must revert the overlay, got %d votes", got)
	}

	if err := c.Comment(ctx, "hello", "u1", "p1"); err == nil {
		t.Fatal("Expected send error")
	}
	if got := len(c.View("p1").Comments); got != 0 {
		t.Errorf("Failed comment send must revert the overlay, got %d comments", got)
	}

	if err := c.DeletePlan(ctx, "p1", "u1"); err == nil {
		t.Fatal("Expected send error")
	}
	if c.View("p1") == nil {
		t.Error("Failed delete send must restore the view")
	}
}

func TestHandlerRegistrationDedupes(t *testing.T) {
	c := newDisconnectedClient(t, "http://localhost:0")

	var first, second atomic.Int32
	c.OnPlanUpdated(func(realtime.PlanUpdatedPayload) { first.Add(1) })
	c.OnPlanUpdated(func(realtime.PlanUpdatedPayload) { second.Add(1) })

	msg, _ := realtime.NewMessage(realtime.EventPlanUpdated, realtime.PlanUpdatedPayload{
		PlanID: "p1", Plan: samplePlanView("p1", 0),
	})
	c.dispatch(msg)
	c.dispatch(msg)

	if got := first.Load(); got != 2 {
		t.Errorf("First handler should see every event, got %d", got)
	}
	if got := second.Load(); got != 0 {
		t.Errorf("Second registration must be ignored, got %d deliveries", got)
	}
}

func TestReconnectExhaustionGoesOffline(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))

	c, err := New(Config{
		ServerURL:            ts.URL,
		MaxReconnectAttempts: 3,
		ReconnectDelay:       5 * time.Millisecond,
		MaxReconnectDelay:    10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer c.Close()

	offline := make(chan struct{})
	c.OnOffline(func() { close(offline) })

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	if !c.Connected() {
		t.Fatal("Expected connected client")
	}

	// Kill the server; every reconnection attempt must now fail.
	ts.Close()

	select {
	case <-offline:
	case <-time.After(3 * time.Second):
		t.Fatal("Client never went offline")
	}

	if !c.Offline() {
		t.Error("Expected Offline after exhausted attempts")
	}
	if err := c.Connect(context.Background()); err != ErrOffline {
		t.Errorf("Expected ErrOffline from Connect, got %v", err)
	}
}
