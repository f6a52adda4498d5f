package handlers

import (
	_ "room_controller/docs"
	"room_controller/internal/logger"
	"room_controller/internal/metrics"
	"room_controller/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	metrics  *metrics.Recorder
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies. m may be nil.
func NewHandler(services *service.Service, m *metrics.Recorder, log *logger.Logger) *Handler {
	return &Handler{services: services, metrics: m, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.SetHTMLTemplate(panelTemplate)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)
	router.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)
	h.registerPanelRoutes(router)

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
		h.registerRoomRoutes(api)
		h.registerLogRoutes(api)
		if h.services.Simulation != nil {
			h.registerSimRoutes(api)
		}
	}
}

func (h *Handler) registerRoomRoutes(api *gin.RouterGroup) {
	room := api.Group("/room")
	{
		room.GET("/state", h.getState)
		// Body example: {"command":"light:on"}
		room.POST("/commands", h.postCommand)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/", h.getLogs)
	}
}

func (h *Handler) registerSimRoutes(api *gin.RouterGroup) {
	sim := api.Group("/sim", h.adminMiddleware)
	{
		sim.POST("/distance", h.simDistance)
		sim.POST("/climate", h.simClimate)
		sim.POST("/card", h.simCard)
	}
}

// registerPanelRoutes serves the status page and its command links. Any other
// GET outside the API renders the page too.
func (h *Handler) registerPanelRoutes(r *gin.Engine) {
	r.GET("/", h.panel)
	for _, target := range []service.Target{service.TargetLight, service.TargetFanManual} {
		for _, on := range []bool{true, false} {
			cmd := service.Command{Target: target, On: on}
			r.GET(panelPath(cmd), h.panelCommand(cmd))
		}
	}
	r.NoRoute(h.notFound)
}
