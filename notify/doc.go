// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package notify carries user-facing messages. Feed logs every notification
// through slog, keeps the most recent ones for the HTTP API and publishes them
// to subscribers.
package notify
