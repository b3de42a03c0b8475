package handlers

import (
	"diagnostic_assistant/internal/logger"
	"diagnostic_assistant/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

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
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", h.health)

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// Live feed: sensor frames, state-change events and periodic status.
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
		h.registerSessionRoutes(api)
		h.registerVehicleRoutes(api)
		h.registerScanRoutes(api)
		h.registerECURoutes(api)
		h.registerStreamRoutes(api)
		h.registerRunRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerSessionRoutes(api *gin.RouterGroup) {
	session := api.Group("/session")
	{
		session.POST("/connect", h.connect)
		session.POST("/disconnect", h.disconnect)
		session.GET("/state", h.getSessionState)
	}
}

func (h *Handler) registerVehicleRoutes(api *gin.RouterGroup) {
	vehicle := api.Group("/vehicle")
	{
		vehicle.GET("", h.getVehicle)
		// Body example: {"vin":"MA1NS2NVPR2DS1667","model_code":"AS22XPNV5TP03D00ZY"}
		vehicle.PUT("", h.setVehicle)
		vehicle.DELETE("", h.clearVehicle)
		vehicle.POST("/fetch", h.fetchVehicle)
	}
}

func (h *Handler) registerScanRoutes(api *gin.RouterGroup) {
	scan := api.Group("/scan")
	{
		scan.POST("", h.startScan)
		scan.POST("/cancel", h.cancelScan)
		scan.GET("", h.getScan)
	}
}

func (h *Handler) registerECURoutes(api *gin.RouterGroup) {
	ecus := api.Group("/ecus")
	{
		ecus.GET("", h.listECUs)
		ecus.GET("/summary", h.getSummary)
		ecus.POST("/refresh", h.refreshECUs)
		ecus.GET("/:id", h.getECU)
		ecus.POST("/:id/refresh", h.refreshECU)
	}
}

func (h *Handler) registerStreamRoutes(api *gin.RouterGroup) {
	stream := api.Group("/stream")
	{
		stream.POST("/start", h.startStream)
		stream.POST("/stop", h.stopStream)
		stream.GET("/latest", h.latestSensors)
	}
}

func (h *Handler) registerRunRoutes(api *gin.RouterGroup) {
	runs := api.Group("/runs")
	{
		runs.GET("", h.listRuns)
		runs.GET("/last", h.lastRun)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/", h.getLogs)
	}
}
