// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package view

import (
	"context"

	"github.com/plansync/plansync/models"
	"github.com/plansync/plansync/store"
)

// Aggregator recomputes the denormalized plan view from the store. It holds
// no cache: every call reflects all mutations committed before it returned.
type Aggregator struct {
	store store.Store
}

func NewAggregator(st store.Store) *Aggregator {
	return &Aggregator{store: st}
}

// ComputePlanView builds the full read model for one plan: options with
// their votes and voter identities, comments with their authors, and the
// creator. Returns store.ErrNotFound if the plan no longer exists; callers
// racing a concurrent delete treat that as a normal outcome.
func (a *Aggregator) ComputePlanView(ctx context.Context, planID string) (*models.PlanView, error) {
	tree, err := a.store.GetPlanTree(ctx, planID)
	if err != nil {
		return nil, err
	}

	votesByOption := make(map[string][]models.VoteView, len(tree.Options))
	for _, v := range tree.Votes {
		votesByOption[v.OptionID] = append(votesByOption[v.OptionID], models.VoteView{
			ID:     v.ID,
			UserID: v.UserID,
			User:   tree.Users[v.UserID],
		})
	}

	pv := &models.PlanView{
		ID:        tree.Plan.ID,
		Title:     tree.Plan.Title,
		CreatedAt: tree.Plan.CreatedAt,
		CreatedBy: tree.Users[tree.Plan.CreatedByID],
		Options:   make([]models.OptionView, 0, len(tree.Options)),
		Comments:  make([]models.CommentView, 0, len(tree.Comments)),
	}

	for _, opt := range tree.Options {
		votes := votesByOption[opt.ID]
		if votes == nil {
			votes = []models.VoteView{}
		}
		pv.Options = append(pv.Options, models.OptionView{
			ID:         opt.ID,
			OptionText: opt.OptionText,
			Votes:      votes,
		})
	}

	for _, c := range tree.Comments {
		pv.Comments = append(pv.Comments, models.CommentView{
			ID:        c.ID,
			Text:      c.Text,
			CreatedAt: c.CreatedAt,
			User:      tree.Users[c.UserID],
		})
	}

	return pv, nil
}
