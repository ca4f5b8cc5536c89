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
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/sinkgraph/services/sinkgraph/graph"
	"github.com/AleutianAI/sinkgraph/services/sinkgraph/hooks"
)

// DefaultRequestTimeout bounds one graph request when none is configured.
const DefaultRequestTimeout = 2 * time.Minute

// GenerateRequest is the body of POST /v1/callgraph.
type GenerateRequest struct {
	Files        []string `json:"files"`
	Sanitizers   string   `json:"sanitizers"`
	MergeUnknown bool     `json:"merge_unknown"`
}

// GenerateResponse carries the wire-format graph and the run diagnostics.
type GenerateResponse struct {
	Graph       *graph.CallGraph `json:"graph"`
	Diagnostics Diagnostics      `json:"diagnostics"`
}

// CatalogueResponse describes the loaded sink catalogue.
type CatalogueResponse struct {
	Categories []CategoryInfo     `json:"categories"`
	Aliases    map[string]string `json:"aliases"`
}

// CategoryInfo is one catalogue category.
type CategoryInfo struct {
	Name    string `json:"name"`
	Entries int    `json:"entries"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Handlers serves the HTTP API on top of an Engine.
type Handlers struct {
	engine  *Engine
	timeout time.Duration
	version string
}

// NewHandlers creates Handlers. A non-positive timeout means
// DefaultRequestTimeout.
func NewHandlers(engine *Engine, timeout time.Duration, version string) *Handlers {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Handlers{engine: engine, timeout: timeout, version: version}
}

// HandleGenerate handles POST /v1/callgraph.
//
// Response:
//
//	200 OK: GenerateResponse
//	400 Bad Request: Malformed body or no files
//	422 Unprocessable Entity: No file survived deduplication
//	504 Gateway Timeout: The request deadline expired
func (h *Handlers) HandleGenerate(c *gin.Context) {
	logger := slog.With("request_id", c.GetString(requestIDKey), "handler", "HandleGenerate")

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
		return
	}
	if len(req.Files) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "files must not be empty", Code: "MISSING_PARAMETER"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	res, err := h.engine.Generate(ctx, Request{
		Files:        req.Files,
		Categories:   hooks.ParseCategories(req.Sanitizers),
		MergeUnknown: req.MergeUnknown,
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrNoInputFiles):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: "NO_INPUT_FILES"})
		return
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("request deadline exceeded", slog.Duration("timeout", h.timeout))
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{Error: err.Error(), Code: "TIMEOUT"})
		return
	default:
		logger.Error("call graph generation failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "GENERATION_FAILED"})
		return
	}

	logger.Info("call graph served",
		slog.String("run_id", res.Diagnostics.RunID),
		slog.Int("nodes", len(res.Graph.Nodes)),
		slog.Int("hook_targets", len(res.Graph.HookTargets)),
	)
	c.JSON(http.StatusOK, GenerateResponse{Graph: res.Graph, Diagnostics: res.Diagnostics})
}

// HandleCatalogue handles GET /v1/catalogue.
func (h *Handlers) HandleCatalogue(c *gin.Context) {
	cat := h.engine.Catalogue()
	resp := CatalogueResponse{Aliases: cat.Aliases()}
	for _, name := range cat.Categories() {
		entries, _ := cat.Entries(name)
		resp.Categories = append(resp.Categories, CategoryInfo{Name: name, Entries: len(entries)})
	}
	c.JSON(http.StatusOK, resp)
}

// HandleHealth handles GET /v1/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": h.version,
	})
}

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestIDMiddleware echoes the caller's X-Request-ID, or a new one, on
// every response and stores it in the context under "request_id".
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(requestIDKey, getOrCreateRequestID(c))
		c.Next()
	}
}

// getOrCreateRequestID returns the caller's X-Request-ID or a new one, and
// echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	id := c.GetHeader(requestIDHeader)
	if id == "" {
		id = uuid.New().String()
	}
	c.Header(requestIDHeader, id)
	return id
}
