// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/plansync/plansync/actions"
	"github.com/plansync/plansync/models"
	"github.com/plansync/plansync/testutil"
)

func TestCreateVote(t *testing.T) {
	st := testutil.SetupTestStore(t)
	handler := NewVoteHandler(actions.New(st))

	alice := testutil.CreateTestUser(t, st, "alice@example.com", "Alice")
	plan, opts := testutil.CreateTestPlan(t, st, alice.ID, "Dinner spot", "Tacos", "Sushi")

	// First vote creates.
	req := testutil.MakeRequest("POST", "/votes", models.VoteRequest{
		UserID: alice.ID, OptionID: opts[0].ID, PlanID: plan.ID,
	}, nil)
	w := httptest.NewRecorder()
	handler.CreateVote(w, req)
	testutil.AssertStatus(t, w, http.StatusCreated)

	var first models.Vote
	testutil.AssertJSON(t, w, &first)
	if first.OptionID != opts[0].ID {
		t.Errorf("Expected vote on %s, got %s", opts[0].ID, first.OptionID)
	}

	// Voting again moves the ballot and reports 200.
	req = testutil.MakeRequest("POST", "/votes", models.VoteRequest{
		UserID: alice.ID, OptionID: opts[1].ID, PlanID: plan.ID,
	}, nil)
	w = httptest.NewRecorder()
	handler.CreateVote(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var moved models.Vote
	testutil.AssertJSON(t, w, &moved)
	if moved.ID != first.ID {
		t.Errorf("Re-vote should reuse vote %s, got %s", first.ID, moved.ID)
	}
	if moved.OptionID != opts[1].ID {
		t.Errorf("Expected vote moved to %s, got %s", opts[1].ID, moved.OptionID)
	}
}

func TestCreateVoteRejections(t *testing.T) {
	st := testutil.SetupTestStore(t)
	handler := NewVoteHandler(actions.New(st))

	alice := testutil.CreateTestUser(t, st, "alice@example.com", "Alice")
	plan, opts := testutil.CreateTestPlan(t, st, alice.ID, "Dinner spot", "Tacos")

	tests := []struct {
		name           string
		requestBody    interface{}
		expectedStatus int
	}{
		{
			name:           "missing fields",
			requestBody:    models.VoteRequest{UserID: alice.ID},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown option",
			requestBody:    models.VoteRequest{UserID: alice.ID, OptionID: "missing", PlanID: plan.ID},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "option from wrong plan",
			requestBody:    models.VoteRequest{UserID: alice.ID, OptionID: opts[0].ID, PlanID: "other-plan"},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/votes", tt.requestBody, nil)
			w := httptest.NewRecorder()
			handler.CreateVote(w, req)
			testutil.AssertStatus(t, w, tt.expectedStatus)
		})
	}
}

func TestDeleteVote(t *testing.T) {
	st := testutil.SetupTestStore(t)
	handler := NewVoteHandler(actions.New(st))

	alice := testutil.CreateTestUser(t, st, "alice@example.com", "Alice")
	bob := testutil.CreateTestUser(t, st, "bob@example.com", "Bob")
	plan, opts := testutil.CreateTestPlan(t, st, alice.ID, "Dinner spot", "Tacos")
	vote := testutil.CastTestVote(t, st, alice.ID, opts[0].ID, plan.ID)

	// Wrong owner is a 404.
	req := testutil.MakeRequest("DELETE", "/votes?voteId="+vote.ID+"&userId="+bob.ID, nil, nil)
	w := httptest.NewRecorder()
	handler.DeleteVote(w, req)
	testutil.AssertStatus(t, w, http.StatusNotFound)

	req = testutil.MakeRequest("DELETE", "/votes?voteId="+vote.ID+"&userId="+alice.ID, nil, nil)
	w = httptest.NewRecorder()
	handler.DeleteVote(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.DeleteResponse
	testutil.AssertJSON(t, w, &resp)
	if !resp.Success {
		t.Error("Expected success true")
	}

	// Deleting again is a 404.
	req = testutil.MakeRequest("DELETE", "/votes?voteId="+vote.ID+"&userId="+alice.ID, nil, nil)
	w = httptest.NewRecorder()
	handler.DeleteVote(w, req)
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestCreateComment(t *testing.T) {
	st := testutil.SetupTestStore(t)
	handler := NewCommentHandler(actions.New(st))

	alice := testutil.CreateTestUser(t, st, "alice@example.com", "Alice")
	plan, _ := testutil.CreateTestPlan(t, st, alice.ID, "Dinner spot", "Tacos")

	req := testutil.MakeRequest("POST", "/comments", models.CommentRequest{
		Text: "first!", UserID: alice.ID, PlanID: plan.ID,
	}, nil)
	w := httptest.NewRecorder()
	handler.CreateComment(w, req)
	testutil.AssertStatus(t, w, http.StatusCreated)

	// One comment per user per plan.
	req = testutil.MakeRequest("POST", "/comments", models.CommentRequest{
		Text: "second!", UserID: alice.ID, PlanID: plan.ID,
	}, nil)
	w = httptest.NewRecorder()
	handler.CreateComment(w, req)
	testutil.AssertStatus(t, w, http.StatusConflict)

	var errResp models.ErrorResponse
	testutil.AssertJSON(t, w, &errResp)
	if errResp.Error != "You can only comment once per plan" {
		t.Errorf("Unexpected error message: %q", errResp.Error)
	}
}

func TestCreateCommentPlanNotFound(t *testing.T) {
	st := testutil.SetupTestStore(t)
	handler := NewCommentHandler(actions.New(st))

	alice := testutil.CreateTestUser(t, st, "alice@example.com", "Alice")

	req := testutil.MakeRequest("POST", "/comments", models.CommentRequest{
		Text: "hello", UserID: alice.ID, PlanID: "missing",
	}, nil)
	w := httptest.NewRecorder()
	handler.CreateComment(w, req)
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestDeleteComment(t *testing.T) {
	st := testutil.SetupTestStore(t)
	handler := NewCommentHandler(actions.New(st))

	alice := testutil.CreateTestUser(t, st, "alice@example.com", "Alice")
	bob := testutil.CreateTestUser(t, st, "bob@example.com", "Bob")
	plan, _ := testutil.CreateTestPlan(t, st, alice.ID, "Dinner spot", "Tacos")
	comment := testutil.AddTestComment(t, st, "mine", alice.ID, plan.ID)

	req := testutil.MakeRequest("DELETE", "/comments?commentId="+comment.ID+"&userId="+bob.ID, nil, nil)
	w := httptest.NewRecorder()
	handler.DeleteComment(w, req)
	testutil.AssertStatus(t, w, http.StatusNotFound)

	req = testutil.MakeRequest("DELETE", "/comments?commentId="+comment.ID+"&userId="+alice.ID, nil, nil)
	w = httptest.NewRecorder()
	handler.DeleteComment(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)
}
