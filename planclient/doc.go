// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package planclient is the client-side sync adapter for plansync.

A Client keeps a per-plan view in two layers: the committed state, which
only authoritative server messages may replace, and a pending overlay
applied immediately when the user acts. View returns the overlay when one
is in flight so the UI never waits on a network round-trip; the next
plan-updated broadcast (or a fallback refetch) replaces the committed
state and clears the overlay, so the server always wins.

Actions go over the live channel when it is up, and through the fallback
REST API otherwise. A dropped connection is retried with increasing
delays up to a bounded number of attempts; after that the client stays on
the fallback API for the rest of the session.
*/
package planclient
