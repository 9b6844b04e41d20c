// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package actions

import (
	"context"
	"errors"

	"github.com/plansync/plansync/models"
	"github.com/plansync/plansync/store"
)

// Actions applies the validated mutations shared by the realtime hub and
// the fallback API. Both surfaces must behave identically against the
// store; only what happens after the mutation (broadcast vs. response)
// differs, and that stays with the caller.
type Actions struct {
	store store.Store
}

func New(st store.Store) *Actions {
	return &Actions{store: st}
}

// Vote records or moves a user's ballot on a plan. A voter's choice is
// singular per plan: if a vote already exists its option is overwritten,
// otherwise one is created. The returned bool reports whether a new row
// was created.
func (a *Actions) Vote(ctx context.Context, userID, optionID, planID string) (models.Vote, bool, error) {
	existing, err := a.store.GetVoteByUserPlan(ctx, userID, planID)
	if err == nil {
		v, err := a.store.SetVoteOption(ctx, existing.ID, optionID)
		return v, false, err
	}
	if !errors.Is(err, store.ErrNotFound) {
		return models.Vote{}, false, err
	}

	v, err := a.store.CreateVote(ctx, userID, optionID, planID)
	if errors.Is(err, store.ErrConflict) {
		// Lost a race against another request from the same user. The
		// uniqueness constraint kept the ballot singular; apply the
		// re-vote against the row that won.
		existing, lookupErr := a.store.GetVoteByUserPlan(ctx, userID, planID)
		if lookupErr != nil {
			return models.Vote{}, false, lookupErr
		}
		v, err := a.store.SetVoteOption(ctx, existing.ID, optionID)
		return v, false, err
	}
	return v, err == nil, err
}

// RetractVote deletes a vote after verifying it exists and belongs to
// userID. Absence and wrong ownership are both store.ErrNotFound. A
// non-empty planID must additionally match the vote's plan (the live
// channel supplies it; the fallback API has no plan in its request and
// passes "").
func (a *Actions) RetractVote(ctx context.Context, voteID, userID, planID string) (models.Vote, error) {
	v, err := a.store.GetVote(ctx, voteID)
	if err != nil {
		return models.Vote{}, err
	}
	if v.UserID != userID {
		return models.Vote{}, store.ErrNotFound
	}
	if planID != "" && v.PlanID != planID {
		return models.Vote{}, store.ErrNotFound
	}
	if err := a.store.DeleteVote(ctx, voteID); err != nil {
		return models.Vote{}, err
	}
	return v, nil
}

// Comment creates a user's single comment on a plan. A second comment by
// the same user is store.ErrConflict, whether caught by the pre-check or
// by the store's uniqueness constraint.
func (a *Actions) Comment(ctx context.Context, text, userID, planID string) (models.Comment, error) {
	if _, err := a.store.GetCommentByUserPlan(ctx, userID, planID); err == nil {
		return models.Comment{}, store.ErrConflict
	} else if !errors.Is(err, store.ErrNotFound) {
		return models.Comment{}, err
	}
	return a.store.CreateComment(ctx, text, userID, planID)
}

// DeleteComment removes a comment after verifying authorship.
func (a *Actions) DeleteComment(ctx context.Context, commentID, userID string) error {
	c, err := a.store.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if c.UserID != userID {
		return store.ErrNotFound
	}
	return a.store.DeleteComment(ctx, commentID)
}

// DeletePlan removes a plan and everything under it after verifying the
// requester created it, and reports the cascaded row counts.
func (a *Actions) DeletePlan(ctx context.Context, planID, userID string) (store.DeletedCounts, error) {
	p, err := a.store.GetPlan(ctx, planID)
	if err != nil {
		return store.DeletedCounts{}, err
	}
	if p.CreatedByID != userID {
		return store.DeletedCounts{}, store.ErrNotFound
	}
	return a.store.DeletePlan(ctx, planID)
}

// CreatePlan creates a plan with its options in one step.
func (a *Actions) CreatePlan(ctx context.Context, title, createdByID string, options []string) (models.Plan, []models.PlanOption, error) {
	if _, err := a.store.GetUser(ctx, createdByID); err != nil {
		return models.Plan{}, nil, err
	}
	return a.store.CreatePlan(ctx, title, createdByID, options)
}
