package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/escolalink/escola-api/api/swagger"
	"github.com/escolalink/escola-api/internal/handler"
	"github.com/escolalink/escola-api/internal/middleware"
	"github.com/escolalink/escola-api/internal/repository"
	"github.com/escolalink/escola-api/internal/service"
	"github.com/escolalink/escola-api/pkg/cache"
	"github.com/escolalink/escola-api/pkg/config"
	"github.com/escolalink/escola-api/pkg/database"
	"github.com/escolalink/escola-api/pkg/logger"
	corsmiddleware "github.com/escolalink/escola-api/pkg/middleware/cors"
	reqidmiddleware "github.com/escolalink/escola-api/pkg/middleware/requestid"
)

// @title EscolaLink API
// @version 1.0.0
// @description Grade composition and rubric evaluation engine
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	rubricRepo := repository.NewRubricRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)
	gradeRepo := repository.NewGradeRecordRepository(db)

	rubricSvc := service.NewRubricService(rubricRepo, nil, cfg.Grading.CatalogCacheTTL, false, metricsSvc, nil, logr)
	if cfg.Grading.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			// The catalog cache is an optimization; run without it.
			logr.Sugar().Warnw("redis unavailable, catalog cache disabled", "error", err)
		} else {
			defer redisClient.Close()
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			rubricSvc = service.NewRubricService(rubricRepo, cacheRepo, cfg.Grading.CatalogCacheTTL, true, metricsSvc, nil, logr)
		}
	}

	templateSvc := service.NewTemplateService(templateRepo, nil, logr)
	evaluationSvc := service.NewEvaluationService(evaluationRepo, nil, logr)
	gradeSvc := service.NewGradeService(gradeRepo, templateRepo, evaluationRepo, rubricSvc, nil, logr)

	rubricHandler := handler.NewRubricHandler(rubricSvc)
	templateHandler := handler.NewTemplateHandler(templateSvc)
	evaluationHandler := handler.NewEvaluationHandler(evaluationSvc)
	gradeHandler := handler.NewGradeHandler(gradeSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(cfg.JWT.Secret))

	api.GET("/rubrics", rubricHandler.List)
	api.POST("/rubrics", rubricHandler.Create)
	api.GET("/rubrics/:id", rubricHandler.Get)
	api.PUT("/rubrics/:id", rubricHandler.Update)
	api.DELETE("/rubrics/:id", rubricHandler.Deactivate)

	api.GET("/templates", templateHandler.Get)
	api.PUT("/templates", templateHandler.Save)
	api.POST("/templates/toggle-rubric", templateHandler.ToggleRubric)

	api.GET("/evaluations", evaluationHandler.ListByStudent)
	api.POST("/evaluations/flush", evaluationHandler.Flush)

	api.GET("/grades/cell", gradeHandler.Cell)
	api.GET("/grades/breakdown", gradeHandler.Breakdown)
	api.POST("/grades", gradeHandler.Save)
	api.POST("/grades/bulk", gradeHandler.BulkSave)
	api.GET("/grades/sheet", gradeHandler.Sheet)
	api.GET("/grades/sheet/export", gradeHandler.ExportSheet)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
