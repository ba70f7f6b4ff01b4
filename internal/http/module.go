// Package http provides HTTP server infrastructure including the Module interface
// that all domain modules must implement for route registration.
package http

import (
	"cotizador_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module represents a bounded context that can register its HTTP routes.
// Each domain module implements this interface to encapsulate its own
// route setup, keeping the main router decoupled from specific endpoints.
type Module interface {
	// Name returns the module's identifier for logging purposes.
	Name() string
	// RegisterRoutes mounts the module's routes on the provided router context.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext provides shared dependencies for module route registration.
type RouterContext struct {
	// Engine is the root Gin engine for modules that need engine-level access.
	Engine *gin.Engine
	// Root is the unprefixed route group used by the automation callers.
	Root *gin.RouterGroup
	// API is the /api route group for diagnostic endpoints.
	API *gin.RouterGroup
	// SyncRateLimiter throttles catalog refresh requests per client IP.
	SyncRateLimiter *httpkit.IPRateLimiter
	// QuoteRateLimiter throttles quote generation per client IP.
	QuoteRateLimiter *httpkit.IPRateLimiter
}
