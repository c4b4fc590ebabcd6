// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/votechain/auth"
	"github.com/danielhkuo/votechain/cliparse"
	"github.com/danielhkuo/votechain/contract"
)

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:            3318,
		DatabaseURL:     ":memory:",
		DatabaseType:    "sqlite",
		APIKeySalt:      "test-api-salt",
		ContractAddress: contract.DefaultAddress,
		SupportedChains: []uint64{ChainMainnet, ChainSepolia},
		Networks: []cliparse.Network{
			{ChainID: ChainSepolia, Name: "Sepolia Testnet"},
		},
		IndexerBackend: cliparse.BackendSQL,
		PairingTimeout: time.Second,
	}
}

// OperatorKey returns the X-API-Key accepted for cfg.
func OperatorKey(cfg cliparse.Config) string {
	return auth.GenerateAPIKey(auth.OperatorScope, cfg.APIKeySalt)
}

// OperatorHeaders returns request headers carrying the operator key.
func OperatorHeaders(cfg cliparse.Config) map[string]string {
	return map[string]string{"X-API-Key": OperatorKey(cfg)}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
