// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package planclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/plansync/plansync/models"
	"github.com/plansync/plansync/realtime"
)

// User actions. Each one applies an optimistic update to the local view
// first, then sends the event on the live channel when connected, or goes
// through the fallback API otherwise. Live-channel sends return
// immediately; the authoritative plan-updated broadcast (or an error
// unicast) settles the outcome. Fallback calls are synchronous: on error
// the optimistic update is reverted and the error returned, on success
// the plan is refetched so the committed view is authoritative again.

// Vote casts or moves the user's vote on a plan.
func (c *Client) Vote(ctx context.Context, userID, optionID, planID string) error {
	c.applyOptimistic(planID, func(pv *models.PlanView) {
		moveVote(pv, userID, optionID)
	})

	payload := realtime.VotePayload{UserID: userID, OptionID: optionID, PlanID: planID}
	if c.Connected() {
		// A failed send means no authoritative message will follow for
		// this action, so the overlay must not outlive it.
		if err := c.send(realtime.EventNewVote, payload); err != nil {
			c.revertOptimistic(planID)
			return err
		}
		return nil
	}
	if err := c.postJSON(ctx, "/votes", payload, nil); err != nil {
		c.revertOptimistic(planID)
		return err
	}
	return c.RefreshPlan(ctx, planID)
}

// RetractVote removes the user's vote from a plan.
func (c *Client) RetractVote(ctx context.Context, voteID, userID, planID string) error {
	c.applyOptimistic(planID, func(pv *models.PlanView) {
		removeVote(pv, voteID, userID)
	})

	if c.Connected() {
		err := c.send(realtime.EventDeleteVote, realtime.DeleteVotePayload{
			VoteID: voteID, UserID: userID, PlanID: planID,
		})
		if err != nil {
			c.revertOptimistic(planID)
		}
		return err
	}
	q := url.Values{"voteId": {voteID}, "userId": {userID}}
	if err := c.deleteReq(ctx, "/votes", q, nil); err != nil {
		c.revertOptimistic(planID)
		return err
	}
	return c.RefreshPlan(ctx, planID)
}

// Comment adds the user's single comment on a plan.
func (c *Client) Comment(ctx context.Context, text, userID, planID string) error {
	c.applyOptimistic(planID, func(pv *models.PlanView) {
		pv.Comments = append(pv.Comments, models.CommentView{
			Text:      text,
			CreatedAt: time.Now().UTC(),
			User:      knownUser(pv, userID),
		})
	})

	payload := realtime.CommentPayload{Text: text, UserID: userID, PlanID: planID}
	if c.Connected() {
		if err := c.send(realtime.EventNewComment, payload); err != nil {
			c.revertOptimistic(planID)
			return err
		}
		return nil
	}
	if err := c.postJSON(ctx, "/comments", payload, nil); err != nil {
		c.revertOptimistic(planID)
		return err
	}
	return c.RefreshPlan(ctx, planID)
}

// DeletePlan removes a plan the user created. The local view is dropped
// optimistically and stashed; if the deletion is rejected (whether by a
// failed send, a fallback error, or a plan-delete-error event) the stash
// is restored.
func (c *Client) DeletePlan(ctx context.Context, planID, userID string) error {
	c.stashForDelete(planID)

	if c.Connected() {
		err := c.send(realtime.EventDeletePlan, realtime.DeletePlanPayload{
			PlanID: planID, UserID: userID,
		})
		if err != nil {
			c.restoreStashed(planID)
		}
		return err
	}

	q := url.Values{"planId": {planID}, "userId": {userID}}
	if err := c.deleteReq(ctx, "/plans", q, nil); err != nil {
		c.restoreStashed(planID)
		return err
	}
	c.mu.Lock()
	delete(c.deleteStash, planID)
	c.mu.Unlock()
	return nil
}

// stashForDelete removes the plan's local state but keeps it restorable
// while the deletion is in flight.
func (c *Client) stashForDelete(planID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := planStash{}
	st.committed, st.hadCommitted = c.committed[planID]
	st.pending, st.hadPending = c.pending[planID]
	c.deleteStash[planID] = st
	delete(c.committed, planID)
	delete(c.pending, planID)
}

// restoreStashed puts a stashed plan back after a rejected deletion.
func (c *Client) restoreStashed(planID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.deleteStash[planID]
	if !ok {
		return
	}
	if st.hadCommitted {
		c.committed[planID] = st.committed
	}
	if st.hadPending {
		c.pending[planID] = st.pending
	}
	delete(c.deleteStash, planID)
}

// RefreshPlan fetches the authoritative plan view over the fallback API
// and installs it as the committed state, clearing any optimistic overlay.
func (c *Client) RefreshPlan(ctx context.Context, planID string) error {
	var pv models.PlanView
	if err := c.getJSON(ctx, "/plans/"+planID, &pv); err != nil {
		return err
	}
	c.mu.Lock()
	c.committed[planID] = &pv
	delete(c.pending, planID)
	c.mu.Unlock()
	return nil
}

// applyOptimistic clones the current view of the plan, mutates the clone,
// and installs it as the pending overlay. No-op when the plan is unknown.
func (c *Client) applyOptimistic(planID string, mutate func(*models.PlanView)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	base, ok := c.pending[planID]
	if !ok {
		base, ok = c.committed[planID]
	}
	if !ok {
		return
	}
	clone := cloneView(base)
	mutate(clone)
	c.pending[planID] = clone
}

func (c *Client) revertOptimistic(planID string) {
	c.mu.Lock()
	delete(c.pending, planID)
	c.mu.Unlock()
}

// moveVote removes any existing vote by the user and adds one on the
// target option, mirroring the server's one-vote-per-plan rule.
func moveVote(pv *models.PlanView, userID, optionID string) {
	voter := knownUser(pv, userID)
	for i := range pv.Options {
		kept := pv.Options[i].Votes[:0]
		for _, v := range pv.Options[i].Votes {
			if v.UserID != userID {
				kept = append(kept, v)
			} else if voter.ID == "" {
				voter = v.User
			}
		}
		pv.Options[i].Votes = kept
	}
	for i := range pv.Options {
		if pv.Options[i].ID == optionID {
			pv.Options[i].Votes = append(pv.Options[i].Votes, models.VoteView{
				UserID: userID,
				User:   voter,
			})
			return
		}
	}
}

func removeVote(pv *models.PlanView, voteID, userID string) {
	for i := range pv.Options {
		kept := pv.Options[i].Votes[:0]
		for _, v := range pv.Options[i].Votes {
			if v.ID == voteID || (voteID == "" && v.UserID == userID) {
				continue
			}
			kept = append(kept, v)
		}
		pv.Options[i].Votes = kept
	}
}

// knownUser finds the user's record anywhere in the view so the overlay
// can show a name before the authoritative broadcast arrives.
func knownUser(pv *models.PlanView, userID string) models.User {
	if pv.CreatedBy.ID == userID {
		return pv.CreatedBy
	}
	for _, opt := range pv.Options {
		for _, v := range opt.Votes {
			if v.UserID == userID {
				return v.User
			}
		}
	}
	for _, cm := range pv.Comments {
		if cm.User.ID == userID {
			return cm.User
		}
	}
	return models.User{ID: userID}
}

func cloneView(pv *models.PlanView) *models.PlanView {
	clone := *pv
	clone.Options = make([]models.OptionView, len(pv.Options))
	for i, opt := range pv.Options {
		clone.Options[i] = opt
		clone.Options[i].Votes = append([]models.VoteView(nil), opt.Votes...)
	}
	clone.Comments = append([]models.CommentView(nil), pv.Comments...)
	return &clone
}

// Fallback API helpers.

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) deleteReq(ctx context.Context, path string, q url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e models.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Error != "" {
			return fmt.Errorf("%s", e.Error)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
