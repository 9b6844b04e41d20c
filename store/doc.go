// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package store defines the persistence contract and error taxonomy shared
// by the realtime hub, the fallback API, and the state aggregator. The SQL
// implementation lives in store/sqlstore; tests use the in-memory fake from
// the testutil package.
package store
