package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "invoicer/docs"
	"invoicer/internal/handler"
	"invoicer/internal/middleware"
	"invoicer/internal/service"
)

// Handlers groups the HTTP handlers mounted by Setup.
type Handlers struct {
	Command *handler.CommandHandler
	Engine  *handler.EngineHandler
	Health  *handler.HealthHandler
}

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	tokens service.TokenService,
	h Handlers,
	allowedOrigins []string,
	logger *zap.Logger,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks
	r.GET("/healthz", h.Health.Liveness)
	r.GET("/readyz", h.Health.Readiness)

	// API documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")

	// Protected routes - require valid JWT
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(tokens))

	commands := protected.Group("/commands")
	commands.POST("", h.Command.Interpret)
	commands.POST("/export", h.Command.Export)

	protected.GET("/engine", h.Engine.Status)

	return r
}
