package main

import (
	"context"
	"net/http"

	"invoicing-edge/internal/httpapi"
	"invoicing-edge/internal/rbac"

	"github.com/gin-gonic/gin"
)

type routeDeps struct {
	handlers httpapi.Handlers
	authMW   gin.HandlerFunc
	limiter  *httpapi.RateLimiter
	guard    gin.HandlerFunc
	// frontend may be nil; allowed navigations then get the decision as JSON.
	frontend http.Handler
	metrics  http.Handler
	health   func(ctx context.Context) error
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	h := d.handlers

	// public
	r.GET("/healthz", func(c *gin.Context) {
		if d.health != nil {
			if err := d.health(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.metrics != nil {
		r.GET("/metrics", gin.WrapH(d.metrics))
	}

	v1 := r.Group("/v1")
	v1.Use(httpapi.ClientIP())
	{
		// AUTH routes (rate limited per client IP)
		authGroup := v1.Group("/auth")
		authGroup.Use(d.limiter.Middleware())
		{
			authGroup.POST("/register", h.Register)
			authGroup.POST("/login", h.Login)
			authGroup.POST("/refresh", h.Refresh)
			authGroup.POST("/verify-email", h.VerifyEmail)
			authGroup.POST("/verify-email/resend", d.authMW, h.ResendVerification)
			authGroup.POST("/logout", d.authMW, h.Logout)
		}

		v1.GET("/me", d.authMW, h.Me)

		// ACCESS routes: the client-evaluated guard and the shared route table.
		accessGroup := v1.Group("/access")
		{
			accessGroup.POST("/evaluate", h.EvaluateAccess)
			accessGroup.GET("/routes", h.AccessRoutes)
		}

		// ADMIN routes
		admin := v1.Group("/admin")
		admin.Use(d.authMW, rbac.RequireVerifiedEmail(), rbac.RequireAnyRole(rbac.RoleAdmin))
		{
			admin.GET("/ping", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"status": "ok"})
			})
		}
	}

	// Everything else is a page navigation: server guard, then the frontend.
	r.NoRoute(d.guard, httpapi.Frontend(d.frontend))
}
