package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/acreage/api/handler"
)

type Handlers struct {
	Auth    *apiHandler.AuthHandler
	Profile *apiHandler.ProfileHandler
	Health  *apiHandler.HealthHandler
	// Metrics is mounted on /metrics when set.
	Metrics fasthttp.RequestHandler
}

func New(handlers Handlers, requireSession func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)
	if handlers.Metrics != nil {
		r.GET("/metrics", handlers.Metrics)
	}

	// Auth routes
	r.GET("/api/v1/auth/state", handlers.Auth.State)
	r.POST("/api/v1/auth/signup", handlers.Auth.SignUp)
	r.POST("/api/v1/auth/signin", handlers.Auth.SignIn)
	r.POST("/api/v1/auth/signout", handlers.Auth.SignOut)
	r.POST("/api/v1/auth/password/reset", handlers.Auth.ResetPassword)

	// Protected routes
	r.PUT("/api/v1/auth/profile", requireSession(handlers.Profile.UpdateProfile))
	r.PUT("/api/v1/auth/user", handlers.Profile.SetUser)

	return r
}
