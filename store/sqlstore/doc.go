// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package sqlstore implements the store.Store contract over database/sql.

Two dialects are supported: sqlite (default, via modernc.org/sqlite) and
postgres (via lib/pq). Queries are written once with ? placeholders and
rewritten for postgres.

# Invariant Enforcement

The one-vote and one-comment per (user, plan) rules are enforced by UNIQUE
constraints, not by application-level checks alone, so concurrent duplicate
requests surface as store.ErrConflict instead of a second row. Plan deletion
relies on ON DELETE CASCADE and reports the dependent row counts it removed.
*/
package sqlstore
