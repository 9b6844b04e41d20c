// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package router defines the HTTP route table using Go 1.22+ method
// patterns: the fallback API, the websocket upgrade endpoint, and the
// health check.
package router
