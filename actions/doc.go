// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package actions holds the mutation rules for plans, votes, and comments.
// The realtime hub and the fallback API both route through it so the two
// surfaces can never drift in validation or error behavior.
package actions
