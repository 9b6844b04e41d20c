// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers implements the fallback HTTP API.

Each live-channel action has a stateless request/response twin here with
identical validation and error behavior, routed through the same actions
package. The one difference is intentional: these handlers never broadcast.
A client that mutates through this surface gets the result (or error) in
the response body, and other viewers stay stale until their next refetch.

Status classes: 400 malformed input, 401 bad credentials, 404
not-found-or-unauthorized (deliberately conflated), 409 conflict,
500 backend failure. All error bodies share the {error} shape.
*/
package handlers
