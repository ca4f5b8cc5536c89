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
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// Debug enables per-request gin logging.
	Debug bool

	// RateLimit caps graph requests per second. Zero disables limiting.
	RateLimit float64

	// RateBurst is the limiter bucket size. Values below 1 mean 1.
	RateBurst int
}

// RegisterRoutes registers the API under the given group.
//
// Endpoints:
//
//	POST /v1/callgraph - Generate a call graph
//	GET  /v1/catalogue - Describe the sink catalogue
//	GET  /v1/health    - Health check
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers, generate ...gin.HandlerFunc) {
	rg.POST("/callgraph", append(generate, handlers.HandleGenerate)...)
	rg.GET("/catalogue", handlers.HandleCatalogue)
	rg.GET("/health", handlers.HandleHealth)
}

// NewRouter builds the service router. Recovery, tracing and request IDs
// apply to every route; rate limiting applies to graph requests only.
func NewRouter(handlers *Handlers, opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("sinkgraph"))
	router.Use(RequestIDMiddleware())
	if opts.Debug {
		router.Use(gin.Logger())
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var generate []gin.HandlerFunc
	if opts.RateLimit > 0 {
		generate = append(generate, RateLimitMiddleware(rate.NewLimiter(rate.Limit(opts.RateLimit), max(opts.RateBurst, 1))))
	}
	v1 := router.Group("/v1")
	RegisterRoutes(v1, handlers, generate...)
	return router
}

// RateLimitMiddleware rejects requests beyond the limiter's rate with 429.
func RateLimitMiddleware(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			rejectedRequestsTotal.Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "rate limit exceeded",
				Code:  "RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}
