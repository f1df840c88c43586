package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/Kre8ivTech/client-portal-sub002/internal/classify"
	"github.com/Kre8ivTech/client-portal-sub002/internal/config"
	"github.com/Kre8ivTech/client-portal-sub002/internal/http/handlers"
	"github.com/Kre8ivTech/client-portal-sub002/internal/http/middleware"
	"github.com/Kre8ivTech/client-portal-sub002/internal/service"

	_ "github.com/Kre8ivTech/client-portal-sub002/docs"
)

type Services struct {
	Store      handlers.Store
	Classifier *classify.Classifier
	Completion *service.CompletionService
	Heuristic  *service.HeuristicEstimateService
}

func Router(cfg config.Config, svc Services, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	r.MaxMultipartMemory = cfg.MaxUploadSizeMB << 20

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:      svc.Store,
		Classifier: svc.Classifier,
		Completion: svc.Completion,
		Heuristic:  svc.Heuristic,
		Validator:  validator.New(),
		Logger:     logger,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.POST("/classify", h.Classify)
		api.POST("/tickets/:id/estimate", h.EstimateTicket)
		api.GET("/tickets/:id/estimate", h.GetEstimate)
		api.POST("/tickets/:id/heuristic-estimate", h.HeuristicEstimate)
		api.GET("/organizations/:org/staff/:id/workload", h.StaffWorkload)
		api.GET("/organizations/:org/staff/:id/availability", h.StaffAvailability)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/organizations/:org/recompute", h.Recompute)
		admin.GET("/runs/latest", h.RunsLatest)
		admin.POST("/schedules/import", h.ImportSchedules)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
