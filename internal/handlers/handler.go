package handlers

import (
	"appliance_status/internal/logger"
	"appliance_status/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health endpoint
	router.GET("/health", h.health)

	// Auth endpoints
	h.registerAuthRoutes(router)

	// Versioned API endpoints (protected)
	h.registerAPIRoutes(router)

	// Live status stream, upgraded on the same port.
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.userIdMiddleware)
	{
		h.registerApplianceRoutes(api)
		h.registerEventRoutes(api)
		api.GET("/status", h.getStatusAll)
	}
}

func (h *Handler) registerApplianceRoutes(api *gin.RouterGroup) {
	appliances := api.Group("/appliances")
	{
		appliances.POST("/", h.createAppliance)
		appliances.GET("/", h.listAppliances)
		appliances.GET("/:id", h.getAppliance)
		appliances.DELETE("/:id", h.deleteAppliance)
		// Body example: {"running_threshold_w":12,"start_delay_s":120}
		appliances.PATCH("/:id/config", h.updateConfig)
		appliances.POST("/:id/power", h.reportPower)
		appliances.POST("/:id/energy", h.reportEnergy)
		appliances.GET("/:id/status", h.getStatus)
	}
}

func (h *Handler) registerEventRoutes(api *gin.RouterGroup) {
	events := api.Group("/events")
	{
		events.GET("/", h.getEvents)
	}
}
