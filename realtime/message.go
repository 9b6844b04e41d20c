// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"encoding/json"

	"github.com/plansync/plansync/models"
)

// Client -> hub event types
const (
	EventJoinPlan   = "join-plan"
	EventLeavePlan  = "leave-plan"
	EventNewVote    = "new-vote"
	EventDeleteVote = "delete-vote"
	EventNewComment = "new-comment"
	EventDeletePlan = "delete-plan"
)

// Hub -> client event types
const (
	EventPlanUpdated       = "plan-updated"
	EventPlanDeleted       = "plan-deleted"
	EventVoteError         = "vote-error"
	EventCommentError      = "comment-error"
	EventPlanDeleteError   = "plan-delete-error"
	EventPlanDeleteSuccess = "plan-delete-success"
)

// Action tags carried on plan-updated broadcasts
const (
	ActionVote        = "vote"
	ActionVoteDeleted = "vote-deleted"
	ActionComment     = "comment"
)

// Message is the envelope for every frame on the live channel.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewMessage wraps a payload in an envelope.
func NewMessage(eventType string, payload interface{}) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: eventType, Data: data}, nil
}

// Inbound payloads

type RoomPayload struct {
	PlanID string `json:"planId"`
}

type VotePayload struct {
	UserID   string `json:"userId"`
	OptionID string `json:"optionId"`
	PlanID   string `json:"planId"`
}

type DeleteVotePayload struct {
	VoteID string `json:"voteId"`
	UserID string `json:"userId"`
	PlanID string `json:"planId"`
}

type CommentPayload struct {
	Text   string `json:"text"`
	UserID string `json:"userId"`
	PlanID string `json:"planId"`
}

type DeletePlanPayload struct {
	PlanID string `json:"planId"`
	UserID string `json:"userId"`
}

// Outbound payloads

type PlanUpdatedPayload struct {
	PlanID string           `json:"planId"`
	Action string           `json:"action,omitempty"`
	Plan   *models.PlanView `json:"plan"`
}

type PlanDeletedPayload struct {
	PlanID      string             `json:"planId"`
	Message     string             `json:"message"`
	DeletedData models.DeletedData `json:"deletedData"`
}

type PlanDeleteSuccessPayload struct {
	PlanID  string `json:"planId"`
	Message string `json:"message"`
}
