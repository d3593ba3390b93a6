package api

import (
	"fmt"
	"io/fs"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	iauth "github.com/vitalboard/server/internal/auth"
	"github.com/vitalboard/server/internal/credentials"
	"github.com/vitalboard/server/internal/handlers"
	"github.com/vitalboard/server/internal/middleware"
	"github.com/vitalboard/server/internal/services"
	"github.com/vitalboard/server/web"
)

// Deps bundles the services the router wires into handlers.
type Deps struct {
	Credentials *credentials.Service
	Profiles    *services.ProfileService
	JWT         *iauth.JWTService
	Cookies     iauth.CookieWriter
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.Credentials == nil {
		return nil, fmt.Errorf("credential service must be provided")
	}
	if deps.Profiles == nil {
		return nil, fmt.Errorf("profile service must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())

	// Health endpoint (public)
	r.GET("/health", handlers.Health())

	// Metrics endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handlers.NewAuthHandler(deps.Credentials, deps.JWT, deps.Cookies)

	// Public auth routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/send-verification", authHandler.SendVerification)
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", authHandler.Logout)
		auth.POST("/reset-password", authHandler.ResetPassword)
		auth.GET("/session", authHandler.Session)
	}

	// Protected routes
	requireSession := middleware.Session(deps.JWT)

	profileHandler := handlers.NewProfileHandler(deps.Profiles)
	profile := r.Group("/api/profile", requireSession)
	{
		profile.GET("", profileHandler.Get)
		profile.PUT("/favorites", profileHandler.PutFavorites)
	}

	// Everything outside /api falls through to the embedded frontend.
	staticFS, err := web.FS()
	if err != nil {
		return nil, fmt.Errorf("load embedded frontend: %w", err)
	}
	r.NoRoute(spaFallback(staticFS))

	return r, nil
}

// spaFallback serves the embedded frontend for non-API routes. Unknown
// paths get index.html so client-side routing works; unknown API routes
// stay JSON 404s.
func spaFallback(staticFS fs.FS) gin.HandlerFunc {
	fileServer := http.FileServer(http.FS(staticFS))

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/") || path == "/api" {
			middleware.NotFoundHandler(c)
			return
		}

		trimmed := strings.TrimPrefix(path, "/")
		if trimmed != "" {
			if f, err := staticFS.Open(trimmed); err == nil {
				f.Close()
				fileServer.ServeHTTP(c.Writer, c.Request)
				return
			}
		}

		c.Request.URL.Path = "/"
		fileServer.ServeHTTP(c.Writer, c.Request)
	}
}
