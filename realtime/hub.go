// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/plansync/plansync/actions"
	"github.com/plansync/plansync/models"
	"github.com/plansync/plansync/store"
	"github.com/plansync/plansync/view"
)

// Hub owns the authoritative mutation path for live-connected clients.
// Each accepted action is applied to the store, the plan view is recomputed,
// and the result is broadcast to the plan's room. Actions on the same plan
// serialize end-to-end behind a per-plan mutex, so broadcasts within a room
// arrive in commit order; actions on different plans run in parallel.
type Hub struct {
	actions *actions.Actions
	views   *view.Aggregator
	rooms   *RoomRegistry

	register   chan *Client
	unregister chan *Client

	mu      sync.Mutex
	clients map[*Client]bool

	planMu sync.Map // plan ID -> *sync.Mutex
}

func NewHub(act *actions.Actions, views *view.Aggregator) *Hub {
	return &Hub{
		actions:    act,
		views:      views,
		rooms:      NewRoomRegistry(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Rooms exposes the registry for membership inspection.
func (h *Hub) Rooms() *RoomRegistry {
	return h.rooms
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Run processes client lifecycle events until the context is canceled,
// then closes every remaining connection. Run must be started before the
// hub accepts websocket upgrades.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			total := len(h.clients)
			h.mu.Unlock()
			slog.Info("websocket client connected", "total_clients", total)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				h.rooms.Disconnect(c)
				c.closeSend()
			}
			total := len(h.clients)
			h.mu.Unlock()
			slog.Info("websocket client disconnected", "total_clients", total)

		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				h.rooms.Disconnect(c)
				c.closeSend()
				delete(h.clients, c)
			}
			h.mu.Unlock()
			slog.Info("realtime hub stopped")
			return ctx.Err()
		}
	}
}

// lockPlan serializes processing for one plan and returns the unlock func.
func (h *Hub) lockPlan(planID string) func() {
	v, _ := h.planMu.LoadOrStore(planID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// HandleMessage dispatches one inbound action from a client connection.
// Errors are reported to the originating connection only; a failure is
// never broadcast to the room.
func (h *Hub) HandleMessage(c *Client, msg Message) {
	switch msg.Type {
	case EventJoinPlan:
		var p RoomPayload
		if decode(c, msg, &p, EventVoteError) && p.PlanID != "" {
			h.rooms.Subscribe(c, p.PlanID)
		}

	case EventLeavePlan:
		var p RoomPayload
		if decode(c, msg, &p, EventVoteError) && p.PlanID != "" {
			h.rooms.Unsubscribe(c, p.PlanID)
		}

	case EventNewVote:
		var p VotePayload
		if decode(c, msg, &p, EventVoteError) {
			h.handleVote(c, p)
		}

	case EventDeleteVote:
		var p DeleteVotePayload
		if decode(c, msg, &p, EventVoteError) {
			h.handleDeleteVote(c, p)
		}

	case EventNewComment:
		var p CommentPayload
		if decode(c, msg, &p, EventCommentError) {
			h.handleComment(c, p)
		}

	case EventDeletePlan:
		var p DeletePlanPayload
		if decode(c, msg, &p, EventPlanDeleteError) {
			h.handleDeletePlan(c, p)
		}

	default:
		slog.Debug("ignoring unknown event", "event", msg.Type)
	}
}

func decode(c *Client, msg Message, v interface{}, errEvent string) bool {
	if len(msg.Data) == 0 {
		unicastError(c, errEvent, "Invalid message payload")
		return false
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		unicastError(c, errEvent, "Invalid message payload")
		return false
	}
	return true
}

func (h *Hub) handleVote(c *Client, p VotePayload) {
	if p.UserID == "" || p.OptionID == "" || p.PlanID == "" {
		unicastError(c, EventVoteError, "userId, optionId, and planId are required")
		return
	}

	unlock := h.lockPlan(p.PlanID)
	defer unlock()

	ctx := context.Background()
	v, created, err := h.actions.Vote(ctx, p.UserID, p.OptionID, p.PlanID)
	if err != nil {
		slog.Error("failed to process vote", "error", err, "plan_id", p.PlanID, "user_id", p.UserID)
		unicastError(c, EventVoteError, "Failed to process vote")
		return
	}
	slog.Info("vote recorded", "plan_id", p.PlanID, "vote_id", v.ID, "created", created)

	h.broadcastPlanUpdate(ctx, p.PlanID, ActionVote)
}

func (h *Hub) handleDeleteVote(c *Client, p DeleteVotePayload) {
	if p.VoteID == "" || p.UserID == "" || p.PlanID == "" {
		unicastError(c, EventVoteError, "voteId, userId, and planId are required")
		return
	}

	unlock := h.lockPlan(p.PlanID)
	defer unlock()

	ctx := context.Background()
	if _, err := h.actions.RetractVote(ctx, p.VoteID, p.UserID, p.PlanID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			unicastError(c, EventVoteError, "Vote not found or unauthorized")
		} else {
			slog.Error("failed to delete vote", "error", err, "vote_id", p.VoteID)
			unicastError(c, EventVoteError, "Failed to delete vote")
		}
		return
	}
	slog.Info("vote retracted", "plan_id", p.PlanID, "vote_id", p.VoteID)

	h.broadcastPlanUpdate(ctx, p.PlanID, ActionVoteDeleted)
}

func (h *Hub) handleComment(c *Client, p CommentPayload) {
	if p.Text == "" || p.UserID == "" || p.PlanID == "" {
		unicastError(c, EventCommentError, "text, userId, and planId are required")
		return
	}

	unlock := h.lockPlan(p.PlanID)
	defer unlock()

	ctx := context.Background()
	cm, err := h.actions.Comment(ctx, p.Text, p.UserID, p.PlanID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			unicastError(c, EventCommentError, "You can only comment once per plan")
		case errors.Is(err, store.ErrNotFound):
			unicastError(c, EventCommentError, "Plan not found")
		default:
			slog.Error("failed to process comment", "error", err, "plan_id", p.PlanID)
			unicastError(c, EventCommentError, "Failed to process comment")
		}
		return
	}
	slog.Info("comment created", "plan_id", p.PlanID, "comment_id", cm.ID)

	h.broadcastPlanUpdate(ctx, p.PlanID, ActionComment)
}

func (h *Hub) handleDeletePlan(c *Client, p DeletePlanPayload) {
	if p.PlanID == "" || p.UserID == "" {
		unicastError(c, EventPlanDeleteError, "planId and userId are required")
		return
	}

	unlock := h.lockPlan(p.PlanID)
	defer unlock()

	ctx := context.Background()
	counts, err := h.actions.DeletePlan(ctx, p.PlanID, p.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			unicastError(c, EventPlanDeleteError, "Plan not found or you don't have permission to delete it")
		} else {
			slog.Error("failed to delete plan", "error", err, "plan_id", p.PlanID)
			unicastError(c, EventPlanDeleteError, "Failed to delete plan")
		}
		return
	}
	slog.Info("plan deleted", "plan_id", p.PlanID,
		"options", counts.Options, "votes", counts.Votes, "comments", counts.Comments)

	deleted, err := NewMessage(EventPlanDeleted, PlanDeletedPayload{
		PlanID:  p.PlanID,
		Message: "Plan and all related data deleted successfully",
		DeletedData: models.DeletedData{
			PlanID:        p.PlanID,
			OptionsCount:  counts.Options,
			VotesCount:    counts.Votes,
			CommentsCount: counts.Comments,
		},
	})
	if err == nil {
		h.rooms.Broadcast(p.PlanID, deleted)
	}

	// The room is closed: no further view broadcasts will follow for this
	// identifier, and all members are implicitly unsubscribed.
	h.rooms.CloseRoom(p.PlanID)
	h.planMu.Delete(p.PlanID)

	success, err := NewMessage(EventPlanDeleteSuccess, PlanDeleteSuccessPayload{
		PlanID:  p.PlanID,
		Message: "Plan deleted successfully",
	})
	if err == nil {
		c.enqueue(success)
	}
}

// broadcastPlanUpdate recomputes the plan view and sends it to the room.
// A NotFound during recompute means the plan was deleted concurrently;
// the deletion broadcast covers that case, so nothing is sent here.
func (h *Hub) broadcastPlanUpdate(ctx context.Context, planID, action string) {
	pv, err := h.views.ComputePlanView(ctx, planID)
	if errors.Is(err, store.ErrNotFound) {
		slog.Info("plan gone before broadcast", "plan_id", planID)
		return
	}
	if err != nil {
		slog.Error("failed to recompute plan view", "error", err, "plan_id", planID)
		return
	}

	msg, err := NewMessage(EventPlanUpdated, PlanUpdatedPayload{
		PlanID: planID,
		Action: action,
		Plan:   pv,
	})
	if err != nil {
		slog.Error("failed to encode plan update", "error", err, "plan_id", planID)
		return
	}
	slog.Info("broadcasting plan update",
		"plan_id", planID, "action", action, "clients", h.rooms.Count(planID))
	h.rooms.Broadcast(planID, msg)
}

func unicastError(c *Client, eventType, message string) {
	msg, err := NewMessage(eventType, models.ErrorResponse{Error: message})
	if err != nil {
		return
	}
	c.enqueue(msg)
}

// ServeWS upgrades an HTTP request to a websocket connection and attaches
// it to the hub. An empty allowedOrigin accepts any origin.
func ServeWS(h *Hub, allowedOrigin string) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			origin := r.Header.Get("Origin")
			return origin == "" || origin == allowedOrigin
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
			return
		}
		c := NewClient(h, conn)
		h.register <- c
		c.Start()
	}
}
