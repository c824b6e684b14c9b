package main

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/dayplan-api/internal/middleware"
	"github.com/noah-isme/dayplan-api/internal/models"
	"github.com/noah-isme/dayplan-api/pkg/config"
	"github.com/noah-isme/dayplan-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/dayplan-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/dayplan-api/pkg/middleware/requestid"
)

const tokenIssuer = "dayplan-api"

func newRouter(cfg *config.Config, logr *zap.Logger, app *application) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(app.metrics))

	r.GET("/health", app.probes.Health)
	r.GET("/ready", app.probes.Ready)
	r.GET("/metrics", app.probes.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := "/" + strings.Trim(cfg.APIPrefix, "/")
	if prefix == "/" {
		prefix = "/api/v1"
	}
	api := r.Group(prefix)
	api.Use(middleware.WithResponseMeta())
	api.GET("/metrics/summary", app.probes.Summary)
	// Download links carry their own signature and stay reachable without a bearer token.
	api.GET("/export/:token", app.exports.Download)

	secured := api.Group("")
	planWrite := func(c *gin.Context) { c.Next() }
	listWrite := planWrite
	if cfg.AuthEnabled {
		secured.Use(middleware.JWT(app.tokens))
		planWrite = middleware.RequireScope(models.ScopePlansWrite)
		listWrite = middleware.RequireScope(models.ScopeTaskListsWrite)
	}

	plans := secured.Group("/plans")
	plans.POST("", planWrite, app.planner.Generate)
	plans.POST("/compare", planWrite, app.planner.Compare)
	plans.GET("/:id", app.planner.Get)
	plans.POST("/:id/exports", planWrite, app.exports.Create)
	secured.GET("/exports/jobs/:id", app.exports.Status)

	if app.taskLists != nil {
		lists := secured.Group("/task-lists")
		lists.POST("", listWrite, app.taskLists.Create)
		lists.GET("", app.taskLists.List)
		lists.GET("/:id", app.taskLists.Get)
		lists.DELETE("/:id", listWrite, app.taskLists.Delete)
	}

	return r
}
