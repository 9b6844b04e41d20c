// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/plansync/plansync/actions"
	"github.com/plansync/plansync/middleware"
	"github.com/plansync/plansync/models"
	"github.com/plansync/plansync/store"
)

type VoteHandler struct {
	actions *actions.Actions
}

func NewVoteHandler(act *actions.Actions) *VoteHandler {
	return &VoteHandler{actions: act}
}

// CreateVote handles POST /votes
// Re-vote semantics: a voter's choice is singular per plan, so an existing
// vote is moved to the new option (200) rather than duplicated (201).
func (h *VoteHandler) CreateVote(w http.ResponseWriter, r *http.Request) {
	var req models.VoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.UserID == "" || req.OptionID == "" || req.PlanID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "userId, optionId, and planId are required")
		return
	}

	vote, created, err := h.actions.Vote(r.Context(), req.UserID, req.OptionID, req.PlanID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Plan or option not found")
		return
	}
	if err != nil {
		slog.Error("failed to process vote", "error", err, "plan_id", req.PlanID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create vote")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	slog.Info("vote recorded", "plan_id", req.PlanID, "vote_id", vote.ID, "created", created)

	middleware.JSONResponse(w, status, vote)
}

// DeleteVote handles DELETE /votes?voteId=...&userId=...
func (h *VoteHandler) DeleteVote(w http.ResponseWriter, r *http.Request) {
	voteID := r.URL.Query().Get("voteId")
	userID := r.URL.Query().Get("userId")
	if voteID == "" || userID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "voteId and userId are required")
		return
	}

	if _, err := h.actions.RetractVote(r.Context(), voteID, userID, ""); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			middleware.ErrorResponse(w, http.StatusNotFound, "Vote not found or you don't have permission to delete it")
			return
		}
		slog.Error("failed to delete vote", "error", err, "vote_id", voteID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete vote")
		return
	}

	slog.Info("vote retracted", "vote_id", voteID)
	middleware.JSONResponse(w, http.StatusOK, models.DeleteResponse{Success: true})
}

type CommentHandler struct {
	actions *actions.Actions
}

func NewCommentHandler(act *actions.Actions) *CommentHandler {
	return &CommentHandler{actions: act}
}

// CreateComment handles POST /comments
func (h *CommentHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	var req models.CommentRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Text == "" || req.UserID == "" || req.PlanID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "text, userId, and planId are required")
		return
	}

	comment, err := h.actions.Comment(r.Context(), req.Text, req.UserID, req.PlanID)
	if errors.Is(err, store.ErrConflict) {
		middleware.ErrorResponse(w, http.StatusConflict, "You can only comment once per plan")
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Plan not found")
		return
	}
	if err != nil {
		slog.Error("failed to create comment", "error", err, "plan_id", req.PlanID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create comment")
		return
	}

	slog.Info("comment created", "plan_id", req.PlanID, "comment_id", comment.ID)
	middleware.JSONResponse(w, http.StatusCreated, comment)
}

// DeleteComment handles DELETE /comments?commentId=...&userId=...
func (h *CommentHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	commentID := r.URL.Query().Get("commentId")
	userID := r.URL.Query().Get("userId")
	if commentID == "" || userID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "commentId and userId are required")
		return
	}

	if err := h.actions.DeleteComment(r.Context(), commentID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			middleware.ErrorResponse(w, http.StatusNotFound, "Comment not found or you don't have permission to delete it")
			return
		}
		slog.Error("failed to delete comment", "error", err, "comment_id", commentID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete comment")
		return
	}

	slog.Info("comment deleted", "comment_id", commentID)
	middleware.JSONResponse(w, http.StatusOK, models.DeleteResponse{Success: true})
}
