// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sinkgraph

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/sinkgraph/services/sinkgraph/graph"
)

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewRouter(NewHandlers(newTestEngine(t), time.Minute, "test"), RouterOptions{})
}

func postJSON(t *testing.T, router http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleGenerate(t *testing.T) {
	router := setupTestRouter(t)
	path := writeFile(t, t.TempDir(), "A.java", readerSource)

	body, err := json.Marshal(GenerateRequest{Files: []string{path}, Sanitizers: "FileReadWrite"})
	require.NoError(t, err)
	w := postJSON(t, router, "/v1/callgraph", string(body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var resp struct {
		Graph       json.RawMessage `json:"graph"`
		Diagnostics Diagnostics     `json:"diagnostics"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Diagnostics.AcceptedFiles)

	g, err := graph.ReadJSON(bytes.NewReader(resp.Graph))
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 2)
	require.Len(t, g.HookTargets, 1)
	assert.Equal(t, "FileSystemTraversal", g.HookTargets[0].HookName)
}

func TestHandleGenerate_Errors(t *testing.T) {
	router := setupTestRouter(t)
	missing := filepath.Join(t.TempDir(), "Missing.java")

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"malformed body", `{"files":`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"no files", `{"sanitizers":"FileReadWrite"}`, http.StatusBadRequest, "MISSING_PARAMETER"},
		{"nothing accepted", `{"files":["` + missing + `"]}`, http.StatusUnprocessableEntity, "NO_INPUT_FILES"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, router, "/v1/callgraph", tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantErr, resp.Code)
		})
	}
}

func TestHandleHealth(t *testing.T) {
	router := setupTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)
}

func TestHandleCatalogue(t *testing.T) {
	router := setupTestRouter(t)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/catalogue", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp CatalogueResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "FileSystemTraversal", resp.Aliases["FileReadWrite"])
	require.NotEmpty(t, resp.Categories)
	assert.Equal(t, "OsCommandInjection", resp.Categories[0].Name)
	assert.Equal(t, 2, resp.Categories[0].Entries)
}

func TestMetricsEndpoint(t *testing.T) {
	router := setupTestRouter(t)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sinkgraph_engine_run_duration_seconds")
}

func TestNewHandlers_DefaultTimeout(t *testing.T) {
	h := NewHandlers(nil, 0, "")
	assert.Equal(t, DefaultRequestTimeout, h.timeout)
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(NewHandlers(newTestEngine(t), time.Minute, "test"),
		RouterOptions{RateLimit: 0.001, RateBurst: 1})

	first := postJSON(t, router, "/v1/callgraph", `{"files":[]}`)
	assert.Equal(t, http.StatusBadRequest, first.Code)

	second := postJSON(t, router, "/v1/callgraph", `{"files":[]}`)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// Health is never limited.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(NewHandlers(newTestEngine(t), time.Minute, "test"),
		RouterOptions{RateLimit: 0.001, RateBurst: 1})

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		wantCode int
	}{
		{"health", http.MethodGet, "/v1/health", "", http.StatusOK},
		{"catalogue", http.MethodGet, "/v1/catalogue", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK},
		{"callgraph", http.MethodPost, "/v1/callgraph", `{"files":[]}`, http.StatusBadRequest},
		{"callgraph rate limited", http.MethodPost, "/v1/callgraph", `{"files":[]}`, http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Request-ID", "req-"+tt.name)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, "req-"+tt.name, w.Header().Get("X-Request-ID"))
		})
	}

	t.Run("generated when absent", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
		assert.Len(t, w.Header().Get("X-Request-ID"), 36)
	})
}
