// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package view recomputes the denormalized plan read model after every
// mutation. It is a pure read over the store with no staleness window,
// which is what lets both surfaces broadcast or return authoritative state.
package view
