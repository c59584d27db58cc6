// internal/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"escpr-service/internal/config"
	"escpr-service/internal/handler"
	"escpr-service/internal/middleware"
	"escpr-service/internal/service"
	"escpr-service/internal/utils"
)

// Router holds all dependencies for routing
type Router struct {
	config        *config.Config
	logger        *zap.Logger
	printService  *service.PrintService
	decodeService *service.DecodeService
}

// NewRouter creates a new router instance
func NewRouter(
	config *config.Config,
	logger *zap.Logger,
	printService *service.PrintService,
	decodeService *service.DecodeService,
) *Router {
	return &Router{
		config:        config,
		logger:        logger,
		printService:  printService,
		decodeService: decodeService,
	}
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	if r.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else if r.config.IsDebugEnabled() {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	r.addMiddleware(router)
	r.addRoutes(router)
	return router
}

func (r *Router) addMiddleware(router *gin.Engine) {
	router.Use(middleware.RecoveryMiddleware(r.logger))
	router.Use(middleware.RequestIDMiddleware())

	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))

	router.Use(middleware.CORSMiddleware(&r.config.Server))

	r.logger.Info("Middleware configured")
}

func (r *Router) addRoutes(router *gin.Engine) {
	maxBody := r.config.Server.MaxBodySize

	healthHandler := handler.NewHealthHandler(r.config, r.logger)
	decodeHandler := handler.NewDecodeHandler(r.decodeService, maxBody, r.logger)
	jobHandler := handler.NewJobHandler(r.printService, maxBody, r.logger)

	// Health check routes
	healthHandler.RegisterRoutes(&router.RouterGroup)

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	decodeHandler.RegisterRoutes(apiV1)
	jobHandler.RegisterRoutes(apiV1)

	r.logger.Info("All routes configured successfully")
}
