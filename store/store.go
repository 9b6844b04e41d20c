// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"

	"github.com/plansync/plansync/models"
)

var (
	// ErrNotFound is returned when the target row does not exist. Callers
	// deliberately report it the same way as an authorization failure so
	// existence is never leaked.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write would violate a uniqueness rule:
	// duplicate email, second vote for a (user, plan), second comment.
	ErrConflict = errors.New("conflict")
)

// DeletedCounts reports the rows removed by a cascading plan delete.
type DeletedCounts struct {
	Options  int
	Votes    int
	Comments int
}

// PlanTree is a plan and everything reachable from it, loaded in one
// consistent read. Users holds every identity referenced by a vote or
// comment, keyed by user ID; the creator is included.
type PlanTree struct {
	Plan     models.Plan
	Options  []models.PlanOption
	Votes    []models.Vote
	Comments []models.Comment
	Users    map[string]models.User
}

// Store is the durable collaborator for all entities. Implementations must
// enforce the uniqueness invariants (one vote and one comment per user per
// plan, unique emails) and cascade deletes from plans to their options,
// votes, and comments.
type Store interface {
	// Users
	CreateUser(ctx context.Context, email, name, passwordHash string) (models.User, error)
	GetUser(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	// Plans. CreatePlan creates the plan and its options together.
	// DeletePlan cascades and reports what it removed.
	CreatePlan(ctx context.Context, title, createdByID string, optionTexts []string) (models.Plan, []models.PlanOption, error)
	GetPlan(ctx context.Context, id string) (models.Plan, error)
	ListPlanIDs(ctx context.Context) ([]string, error)
	DeletePlan(ctx context.Context, id string) (DeletedCounts, error)

	// Options
	GetOption(ctx context.Context, id string) (models.PlanOption, error)

	// Votes. CreateVote derives and stores the option's plan reference;
	// it fails with ErrNotFound if the option does not belong to planID.
	GetVote(ctx context.Context, id string) (models.Vote, error)
	GetVoteByUserPlan(ctx context.Context, userID, planID string) (models.Vote, error)
	CreateVote(ctx context.Context, userID, optionID, planID string) (models.Vote, error)
	SetVoteOption(ctx context.Context, voteID, optionID string) (models.Vote, error)
	DeleteVote(ctx context.Context, id string) error

	// Comments
	GetComment(ctx context.Context, id string) (models.Comment, error)
	GetCommentByUserPlan(ctx context.Context, userID, planID string) (models.Comment, error)
	CreateComment(ctx context.Context, text, userID, planID string) (models.Comment, error)
	DeleteComment(ctx context.Context, id string) error

	// GetPlanTree loads the plan and all dependent rows in one consistent
	// read for view recomputation.
	GetPlanTree(ctx context.Context, planID string) (PlanTree, error)
}
