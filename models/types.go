// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Domain types

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	CreatedAt    time.Time `json:"createdAt"`
}

type Plan struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	CreatedByID string    `json:"createdById"`
	CreatedAt   time.Time `json:"createdAt"`
}

type PlanOption struct {
	ID         string `json:"id"`
	PlanID     string `json:"planId"`
	OptionText string `json:"optionText"`
}

// Vote carries a denormalized PlanID alongside the OptionID so the
// one-vote-per-(user, plan) rule can be a plain uniqueness constraint.
// The store keeps PlanID consistent with the option's plan at write time.
type Vote struct {
	ID       string `json:"id"`
	UserID   string `json:"userId"`
	OptionID string `json:"optionId"`
	PlanID   string `json:"planId"`
}

type Comment struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	UserID    string    `json:"userId"`
	PlanID    string    `json:"planId"`
	CreatedAt time.Time `json:"createdAt"`
}

type PlanWithOptions struct {
	Plan
	Options []PlanOption `json:"options"`
}

// View types: the denormalized read model broadcast on every update.

type PlanView struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	CreatedAt time.Time     `json:"createdAt"`
	CreatedBy User          `json:"createdBy"`
	Options   []OptionView  `json:"options"`
	Comments  []CommentView `json:"comments"`
}

type OptionView struct {
	ID         string     `json:"id"`
	OptionText string     `json:"optionText"`
	Votes      []VoteView `json:"votes"`
}

type VoteView struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	User   User   `json:"user"`
}

type CommentView struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	User      User      `json:"user"`
}

// Request types

type CreatePlanRequest struct {
	Title       string   `json:"title"`
	CreatedByID string   `json:"createdById"`
	Options     []string `json:"options"`
}

type VoteRequest struct {
	UserID   string `json:"userId"`
	OptionID string `json:"optionId"`
	PlanID   string `json:"planId"`
}

type CommentRequest struct {
	Text   string `json:"text"`
	UserID string `json:"userId"`
	PlanID string `json:"planId"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Response types

type DeletedData struct {
	PlanID        string `json:"planId"`
	OptionsCount  int    `json:"optionsCount"`
	VotesCount    int    `json:"votesCount"`
	CommentsCount int    `json:"commentsCount"`
}

type DeletePlanResponse struct {
	Success     bool        `json:"success"`
	Message     string      `json:"message"`
	DeletedData DeletedData `json:"deletedData"`
}

type DeleteResponse struct {
	Success bool `json:"success"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Started string `json:"started"`
}

// ErrorResponse is the single error shape used by both the fallback API
// and the live channel's unicast error events.
type ErrorResponse struct {
	Error string `json:"error"`
}
