package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authapi "docmgmt-backend/internal/auth"
	"docmgmt-backend/internal/documents"
	"docmgmt-backend/internal/ingestion"
	"docmgmt-backend/internal/permissions"
	"docmgmt-backend/internal/services/health"
	"docmgmt-backend/internal/shared/config"
	"docmgmt-backend/internal/shared/metrics"
	"docmgmt-backend/internal/shared/server/middleware"
	"docmgmt-backend/internal/shared/server/respond"
	"docmgmt-backend/internal/users"
)

const authRateLimitGroup = "AUTH"

// RouterDeps holds handlers and middleware dependencies for the router.
type RouterDeps struct {
	Config            config.Config
	Verifier          middleware.TokenVerifier
	Limiter           middleware.Limiter
	Health            *health.Service
	AuthHandler       *authapi.Handler
	GoogleAuth        *authapi.GoogleService
	UserHandler       *users.Handler
	PermissionHandler *permissions.Handler
	DocumentHandler   *documents.Handler
	IngestionHandler  *ingestion.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if config.IsDevLike(deps.Config.Env) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/health", func(c *gin.Context) {
		status := deps.Health.Status(c.Request.Context())
		code := http.StatusOK
		if !status.OK {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, status)
	})
	r.GET("/metrics", metrics.Handler())

	authn := middleware.Authenticate(deps.Verifier)

	authGroup := r.Group("/auth", middleware.RateLimit(middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			authRateLimitGroup: {
				Rate:  deps.Config.AuthRateLimitRPS,
				Burst: deps.Config.AuthRateLimitBurst,
			},
		},
		DefaultGroup: authRateLimitGroup,
		Limiter:      deps.Limiter,
	}))
	if deps.AuthHandler != nil {
		deps.AuthHandler.RegisterRoutes(authGroup, authn)
	}
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(authGroup)
	}

	private := r.Group("", authn)
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(private)
	}
	if deps.PermissionHandler != nil {
		deps.PermissionHandler.RegisterRoutes(private)
	}
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(r.Group("/documents", authn))
	}
	if deps.IngestionHandler != nil {
		deps.IngestionHandler.RegisterRoutes(r.Group("/ingestion"))
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":3000"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
