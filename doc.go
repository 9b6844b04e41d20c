// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the plansync API server.

plansync is a small group-polling service: users authenticate by email,
create plans with options, cast one vote per plan, and comment once per
plan. Every mutation is broadcast live to all viewers of that plan over a
websocket room, with a stateless REST fallback for clients without a live
connection.

# Starting the Server

The server runs on sqlite out of the box:

	go run main.go

Or against PostgreSQL:

	DATABASE_TYPE=postgres DATABASE_URL=postgres://... go run main.go

# Configuration

  - PORT (-p): server port (default: 3000)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - DATABASE_URL (-d): connection string (default: plansync.db)
  - ALLOWED_ORIGIN (--origin): CORS/websocket origin (default: any)

# Architecture

The server uses a handler-based architecture with dependency injection:

  - store: persistence contract; store/sqlstore is the SQL implementation
  - view: recomputes the denormalized plan view after every mutation
  - actions: mutation rules shared by both surfaces
  - realtime: websocket hub, rooms, and the live-channel protocol
  - handlers: the fallback REST API
  - planclient: client-side sync adapter with optimistic updates
  - router, middleware, cliparse, models, auth: supporting packages

See package documentation for each component.
*/
package main
