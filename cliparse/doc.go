// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse parses server configuration from CLI flags with
environment variable fallback.

Settings:

  - PORT (-p): server port (default: 3000)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - DATABASE_URL (-d): connection string; defaults to plansync.db for
    sqlite, required for postgres
  - ALLOWED_ORIGIN (--origin): CORS and websocket origin check
    (default: any origin)
*/
package cliparse
