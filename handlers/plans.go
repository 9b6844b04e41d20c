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
	"github.com/plansync/plansync/view"
)

type PlanHandler struct {
	store   store.Store
	actions *actions.Actions
	views   *view.Aggregator
}

func NewPlanHandler(st store.Store, act *actions.Actions, views *view.Aggregator) *PlanHandler {
	return &PlanHandler{store: st, actions: act, views: views}
}

// CreatePlan handles POST /plans
func (h *PlanHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePlanRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Title == "" || req.CreatedByID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Title and createdById are required")
		return
	}

	plan, options, err := h.actions.CreatePlan(r.Context(), req.Title, req.CreatedByID, req.Options)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		slog.Error("failed to create plan", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create plan")
		return
	}

	slog.Info("plan created", "plan_id", plan.ID, "created_by", plan.CreatedByID)

	middleware.JSONResponse(w, http.StatusCreated, models.PlanWithOptions{
		Plan:    plan,
		Options: options,
	})
}

// ListPlans handles GET /plans
// Returns the full view of every plan, newest first.
func (h *PlanHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	ids, err := h.store.ListPlanIDs(r.Context())
	if err != nil {
		slog.Error("failed to list plans", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to fetch plans")
		return
	}

	views := []*models.PlanView{}
	for _, id := range ids {
		pv, err := h.views.ComputePlanView(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			// Deleted between the listing and this read; skip it.
			continue
		}
		if err != nil {
			slog.Error("failed to compute plan view", "error", err, "plan_id", id)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to fetch plans")
			return
		}
		views = append(views, pv)
	}

	middleware.JSONResponse(w, http.StatusOK, views)
}

// GetPlan handles GET /plans/{id}
func (h *PlanHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	planID := r.PathValue("id")
	if planID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "plan id is required")
		return
	}

	pv, err := h.views.ComputePlanView(r.Context(), planID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Plan not found")
		return
	}
	if err != nil {
		slog.Error("failed to compute plan view", "error", err, "plan_id", planID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to fetch plan")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, pv)
}

// DeletePlan handles DELETE /plans?planId=...&userId=...
// Same rules as the live channel, but no broadcast: other viewers see the
// deletion on their next refetch.
func (h *PlanHandler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	planID := r.URL.Query().Get("planId")
	userID := r.URL.Query().Get("userId")
	if planID == "" || userID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "planId and userId are required")
		return
	}

	counts, err := h.actions.DeletePlan(r.Context(), planID, userID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Plan not found or you don't have permission to delete it")
		return
	}
	if err != nil {
		slog.Error("failed to delete plan", "error", err, "plan_id", planID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete plan")
		return
	}

	slog.Info("plan deleted", "plan_id", planID,
		"options", counts.Options, "votes", counts.Votes, "comments", counts.Comments)

	middleware.JSONResponse(w, http.StatusOK, models.DeletePlanResponse{
		Success: true,
		Message: "Plan and all related data deleted successfully",
		DeletedData: models.DeletedData{
			PlanID:        planID,
			OptionsCount:  counts.Options,
			VotesCount:    counts.Votes,
			CommentsCount: counts.Comments,
		},
	})
}
