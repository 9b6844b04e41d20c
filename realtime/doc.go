// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package realtime implements the live channel: a websocket hub that applies
client actions against the store, recomputes the affected plan's view, and
broadcasts it to every connection subscribed to that plan's room.

# Protocol

Every frame is a JSON envelope {"type": ..., "data": ...}. Clients send
join-plan, leave-plan, new-vote, delete-vote, new-comment, and delete-plan.
The hub answers with room-wide plan-updated and plan-deleted events, and
with unicast vote-error, comment-error, plan-delete-error, and
plan-delete-success events to the originating connection only. Failures
never broadcast.

# Ordering

Actions targeting the same plan serialize behind a per-plan mutex covering
the store mutation, the view recompute, and the broadcast, so a room
observes updates in commit order. There is no ordering across plans.

# Delivery

Broadcast is best-effort with no confirmation or retry. A slow or
disconnected member misses the message and resynchronizes by refetching
the plan when it reconnects and re-joins its rooms; the registry never
persists membership.

There is exactly one Hub per process, created at startup and handed to the
router, and stopped by canceling the context passed to Run.
*/
package realtime
