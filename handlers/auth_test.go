// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/plansync/plansync/models"
	"github.com/plansync/plansync/testutil"
)

func TestRegister(t *testing.T) {
	st := testutil.SetupTestStore(t)
	handler := NewAuthHandler(st)

	tests := []struct {
		name           string
		requestBody    interface{}
		expectedStatus int
	}{
		{
			name: "valid registration",
			requestBody: models.RegisterRequest{
				Email: "alice@example.com", Name: "Alice", Password: "supersecret",
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "duplicate email",
			requestBody: models.RegisterRequest{
				Email: "alice@example.com", Name: "Alice Again", Password: "supersecret",
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "invalid email",
			requestBody: models.RegisterRequest{
				Email: "not-an-email", Name: "Bob", Password: "supersecret",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "weak password",
			requestBody: models.RegisterRequest{
				Email: "bob@example.com", Name: "Bob", Password: "short",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "missing fields",
			requestBody: models.RegisterRequest{
				Email: "bob@example.com",
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/auth/register", tt.requestBody, nil)
			w := httptest.NewRecorder()

			handler.Register(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)

			if tt.expectedStatus == http.StatusCreated {
				var user models.User
				testutil.AssertJSON(t, w, &user)
				if user.ID == "" {
					t.Error("Expected non-empty user id")
				}
				// The hash never leaves the server.
				if strings.Contains(w.Body.String(), "password") {
					t.Error("Response must not carry password material")
				}
			}
		})
	}
}

func TestLogin(t *testing.T) {
	st := testutil.SetupTestStore(t)
	handler := NewAuthHandler(st)

	// Register through the handler so the stored hash is real.
	req := testutil.MakeRequest("POST", "/auth/register", models.RegisterRequest{
		Email: "alice@example.com", Name: "Alice", Password: "supersecret",
	}, nil)
	w := httptest.NewRecorder()
	handler.Register(w, req)
	testutil.AssertStatus(t, w, http.StatusCreated)

	tests := []struct {
		name           string
		requestBody    interface{}
		expectedStatus int
	}{
		{
			name:           "valid login",
			requestBody:    models.LoginRequest{Email: "alice@example.com", Password: "supersecret"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "case-insensitive email",
			requestBody:    models.LoginRequest{Email: "ALICE@example.com", Password: "supersecret"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "wrong password",
			requestBody:    models.LoginRequest{Email: "alice@example.com", Password: "wrong"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "unknown email",
			requestBody:    models.LoginRequest{Email: "nobody@example.com", Password: "supersecret"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "missing password",
			requestBody:    models.LoginRequest{Email: "alice@example.com"},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/auth/login", tt.requestBody, nil)
			w := httptest.NewRecorder()

			handler.Login(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)

			if tt.expectedStatus == http.StatusOK {
				var user models.User
				testutil.AssertJSON(t, w, &user)
				if user.Email != "alice@example.com" {
					t.Errorf("Expected alice, got %q", user.Email)
				}
			}
		})
	}
}

func TestHealth(t *testing.T) {
	handler := NewHealthHandler()

	req := testutil.MakeRequest("GET", "/health", nil, nil)
	w := httptest.NewRecorder()

	handler.Health(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.HealthResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Status != "ok" {
		t.Errorf("Expected status ok, got %q", resp.Status)
	}
	if resp.Started == "" {
		t.Error("Expected human-readable start time")
	}
}
