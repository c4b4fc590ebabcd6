// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /session", middleware.WithLogging(handler))

Each request gets an id, reused from X-Request-ID when the client sends
one, echoed in the response and available through RequestID(ctx). Start and
completion are logged with method, path, status and duration_ms.

# Operator Key

Mutating routes require the operator key in X-API-Key:

	mux.HandleFunc("POST /contract/pause",
		middleware.WithLogging(middleware.RequireAPIKey(salt, handler)))

Rejected keys are logged with a salted hash of the client IP.

# CORS Middleware

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

Allows methods GET, POST, PUT, DELETE, OPTIONS with headers
Content-Type, Authorization, X-API-Key, X-Request-ID.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

	var req models.VoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# Client IP Extraction

	ip := middleware.GetClientIP(r)
*/
package middleware
