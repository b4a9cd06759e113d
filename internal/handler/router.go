package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/medverify-api/internal/middleware"
	"github.com/noah-isme/medverify-api/internal/service"
	"github.com/noah-isme/medverify-api/pkg/config"
	"github.com/noah-isme/medverify-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/medverify-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/medverify-api/pkg/middleware/requestid"
)

// RouterDependencies carries everything the router needs.
type RouterDependencies struct {
	Config   *config.Config
	Logger   *zap.Logger
	Auth     *AuthHandler
	Verify   *VerifyHandler
	Report   *ReportHandler
	Registry *RegistryHandler
	Guide    *GuideHandler
	WS       *WSHandler
	Metrics  *MetricsHandler

	AuthService    *service.AuthService
	MetricsService *service.MetricsService
}

// NewRouter assembles the gin engine with all middleware and routes.
func NewRouter(deps RouterDependencies) *gin.Engine {
	if deps.Config.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(deps.Config.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.MetricsService))

	r.GET("/health", deps.Metrics.Health)
	r.GET("/ready", deps.Metrics.Health)
	if deps.Config.Metrics.Enabled {
		r.GET("/metrics", deps.Metrics.Prometheus)
	}

	cookieName := deps.Config.Session.CookieName
	requireUser := middleware.RequireUser(deps.AuthService, cookieName)
	requireAdmin := middleware.RequireAdmin(deps.AuthService, cookieName)
	optionalUser := middleware.OptionalUser(deps.AuthService, cookieName)

	api := r.Group("/api")
	{
		api.POST("/register", deps.Auth.Register)
		api.POST("/login", deps.Auth.Login)
		api.POST("/logout", deps.Auth.Logout)
		api.GET("/user", requireUser, deps.Auth.CurrentUser)

		api.POST("/verify", optionalUser, deps.Verify.Verify)
		api.GET("/drugs/:registrationNumber", optionalUser, deps.Verify.Lookup)
		api.GET("/verifications/mine", requireUser, deps.Verify.ListMine)

		api.POST("/reports", optionalUser, deps.Report.Submit)
		api.GET("/reports/mine", requireUser, deps.Report.ListMine)

		api.GET("/downloads/safety-guidelines", deps.Guide.SafetyGuidelines)

		admin := api.Group("/admin", requireAdmin)
		{
			admin.GET("/drugs", deps.Registry.ListDrugs)
			admin.POST("/drugs", deps.Registry.CreateDrug)
			admin.POST("/batches", deps.Registry.CreateBatch)
			admin.GET("/verifications", deps.Verify.ListRecent)
			admin.GET("/reports", deps.Report.List)
			admin.PATCH("/reports/:id", deps.Report.UpdateStatus)
		}
	}

	r.GET("/ws", deps.WS.Serve)

	return r
}
