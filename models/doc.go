// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines the domain entities, request/response types, and the
denormalized plan view shared by the fallback API and the live channel.

# Type Categories

Domain types mirror the stored rows:

  - User: identity with a bcrypt credential (never serialized)
  - Plan: a poll owned by its creator
  - PlanOption: one choice under a plan
  - Vote: one ballot per (user, plan); re-voting moves it
  - Comment: one per (user, plan)

View types form the read model broadcast on every update. PlanView nests
options with their votes (and voter identities) and comments with their
authors, so a client never needs a follow-up query to render a plan.

Request and response types define the JSON wire contract. Both surfaces
report failures with the same ErrorResponse shape.
*/
package models
