// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/plansync/plansync/actions"
	"github.com/plansync/plansync/cliparse"
	"github.com/plansync/plansync/handlers"
	"github.com/plansync/plansync/middleware"
	"github.com/plansync/plansync/realtime"
	"github.com/plansync/plansync/store"
	"github.com/plansync/plansync/view"
)

func NewRouter(st store.Store, hub *realtime.Hub, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	act := actions.New(st)
	views := view.NewAggregator(st)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(st)
	planHandler := handlers.NewPlanHandler(st, act, views)
	voteHandler := handlers.NewVoteHandler(act)
	commentHandler := handlers.NewCommentHandler(act)
	healthHandler := handlers.NewHealthHandler()

	// Health check
	mux.HandleFunc("GET /health", healthHandler.Health)

	// Authentication
	mux.HandleFunc("POST /auth/login", middleware.WithLogging(authHandler.Login))
	mux.HandleFunc("POST /auth/register", middleware.WithLogging(authHandler.Register))

	// Plans
	mux.HandleFunc("GET /plans", middleware.WithLogging(planHandler.ListPlans))
	mux.HandleFunc("POST /plans", middleware.WithLogging(planHandler.CreatePlan))
	mux.HandleFunc("GET /plans/{id}", middleware.WithLogging(planHandler.GetPlan))
	mux.HandleFunc("DELETE /plans", middleware.WithLogging(planHandler.DeletePlan))

	// Votes
	mux.HandleFunc("POST /votes", middleware.WithLogging(voteHandler.CreateVote))
	mux.HandleFunc("DELETE /votes", middleware.WithLogging(voteHandler.DeleteVote))

	// Comments
	mux.HandleFunc("POST /comments", middleware.WithLogging(commentHandler.CreateComment))
	mux.HandleFunc("DELETE /comments", middleware.WithLogging(commentHandler.DeleteComment))

	// Live channel
	mux.HandleFunc("GET /ws", realtime.ServeWS(hub, cfg.AllowedOrigin))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plansync API v1"))
	})

	return mux
}
