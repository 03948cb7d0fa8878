package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/zinlatt/courseware/internal/config"
	"github.com/zinlatt/courseware/internal/handler"
	"github.com/zinlatt/courseware/internal/middleware"
	"github.com/zinlatt/courseware/internal/model"
)

// Handlers bundles every HTTP handler the router mounts.
type Handlers struct {
	Auth      *handler.AuthHandler
	Profile   *handler.ProfileHandler
	Users     *handler.UserHandler
	Catalog   *handler.CatalogHandler
	Providers *handler.ProviderHandler
	Series    *handler.SeriesHandler
	Courses   *handler.CourseHandler
}

// Register mounts all routes on the Echo instance. Layout:
//
//	/healthz                unauthenticated liveness probe
//	/v1/auth/...            session endpoints, rate limited
//	/v1/...                 public catalog reads, response cached
//	/v1/api/...             any authenticated user
//	/v1/admin/...           ADMIN role only
func Register(e *echo.Echo, cfg config.Config, rdb *redis.Client, users middleware.UserStore, h Handlers) {
	e.GET("/healthz", handler.Health)

	if cfg.StorageDriver == "local" {
		e.Static(cfg.UploadBaseURL, cfg.UploadDir)
	}

	authGate := middleware.Auth(middleware.AuthConfig{
		AccessSecret:   cfg.AccessSecret,
		RefreshSecret:  cfg.RefreshSecret,
		AccessTTLMin:   cfg.AccessTTLMin,
		RefreshTTLDays: cfg.RefreshTTLDays,
		Secure:         cfg.IsProd(),
		SameSite:       cfg.CookieSameSite,
	}, users)

	// Session endpoints carry the tightest rate limit since they do
	// bcrypt work and mint tokens.
	auth := e.Group("/v1/auth")
	if rdb != nil {
		auth.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	}
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/check-email", h.Auth.CheckEmail)
	auth.POST("/check-username", h.Auth.CheckUsername)
	auth.POST("/logout", h.Auth.Logout)
	auth.GET("/auth-check", h.Auth.AuthCheck, authGate)
	auth.GET("/me", h.Profile.Me, authGate)

	// Public catalog reads. A redis response cache fronts these since
	// they dominate traffic and change only on admin writes.
	pub := e.Group("/v1")
	if rdb != nil {
		pub.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	}
	pub.GET("/providers", h.Catalog.ListProviders)
	pub.GET("/providers/:id/series", h.Catalog.ListProviderSeries)
	pub.GET("/series/:id", h.Catalog.GetSeries)
	pub.GET("/series/:id/courses", h.Catalog.ListSeriesCourses)
	pub.GET("/courses/:id", h.Catalog.GetCourse)

	api := e.Group("/v1/api")
	api.Use(authGate)
	api.GET("/profile", h.Profile.Me)
	api.PATCH("/profile/upload", h.Profile.UploadAvatar)

	admin := e.Group("/v1/admin")
	admin.Use(authGate)
	admin.Use(middleware.Authorize(users, true, model.RoleAdmin))
	admin.GET("/users", h.Users.List)

	admin.POST("/providers", h.Providers.Create)
	admin.PATCH("/providers/:id", h.Providers.Update)
	admin.DELETE("/providers/:id", h.Providers.Delete)

	admin.POST("/series", h.Series.Create)
	admin.PATCH("/series/:id", h.Series.Update)
	admin.DELETE("/series/:id", h.Series.Delete)

	admin.POST("/courses", h.Courses.Create)
	admin.PATCH("/courses/:id", h.Courses.Update)
	admin.DELETE("/courses/:id", h.Courses.Delete)
}
