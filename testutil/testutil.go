// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/plansync/plansync/cliparse"
	"github.com/plansync/plansync/models"
	"github.com/plansync/plansync/store/sqlstore"
)

// SetupTestStore opens a fresh in-memory sqlite database with the full
// schema. Each call gets its own database; cleanup is registered on t.
func SetupTestStore(t *testing.T) *sqlstore.Store {
	t.Helper()

	db, dialect, err := sqlstore.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := sqlstore.CreateSchema(db); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return sqlstore.New(db, dialect)
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:         3318,
		DatabaseType: "sqlite",
		DatabaseURL:  ":memory:",
	}
}

// CreateTestUser registers a user and returns it
func CreateTestUser(t *testing.T, st *sqlstore.Store, email, name string) models.User {
	t.Helper()

	u, err := st.CreateUser(context.Background(), email, name, "x")
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return u
}

// CreateTestPlan creates a plan with options and returns the plan and its options
func CreateTestPlan(t *testing.T, st *sqlstore.Store, creatorID, title string, optionTexts ...string) (models.Plan, []models.PlanOption) {
	t.Helper()

	if len(optionTexts) == 0 {
		optionTexts = []string{"Option A", "Option B"}
	}
	plan, opts, err := st.CreatePlan(context.Background(), title, creatorID, optionTexts)
	if err != nil {
		t.Fatalf("Failed to create test plan: %v", err)
	}
	return plan, opts
}

// CastTestVote records a vote for a user on an option
func CastTestVote(t *testing.T, st *sqlstore.Store, userID, optionID, planID string) models.Vote {
	t.Helper()

	v, err := st.CreateVote(context.Background(), userID, optionID, planID)
	if err != nil {
		t.Fatalf("Failed to create test vote: %v", err)
	}
	return v
}

// AddTestComment records a comment for a user on a plan
func AddTestComment(t *testing.T, st *sqlstore.Store, text, userID, planID string) models.Comment {
	t.Helper()

	c, err := st.CreateComment(context.Background(), text, userID, planID)
	if err != nil {
		t.Fatalf("Failed to create test comment: %v", err)
	}
	return c
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
