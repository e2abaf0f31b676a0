package routes

import (
	"chat-relay-service/internal/api/handlers"
	"chat-relay-service/internal/api/middleware"
	"chat-relay-service/internal/auth"
	"chat-relay-service/internal/relay"

	"github.com/gin-gonic/gin"
)

type Router struct {
	engine       *gin.Engine
	wsHandler    *handlers.WSHandler
	roomsHandler *handlers.RoomsHandler
	authHandler  *handlers.AuthHandler
}

func NewRouter(
	hub *relay.Hub,
	registry *relay.Registry,
	verifier handlers.TokenVerifier,
	accounts handlers.AccountFinder,
	authService *auth.Service,
	allowedOrigins string,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS())
	engine.Use(middleware.LogApi())

	upgrader := relay.NewUpgrader(allowedOrigins)

	return &Router{
		engine:       engine,
		wsHandler:    handlers.NewWSHandler(hub, verifier, accounts, upgrader),
		roomsHandler: handlers.NewRoomsHandler(registry),
		authHandler:  handlers.NewAuthHandler(authService),
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	authGroup := r.engine.Group("/auth")
	{
		authGroup.POST("/register", r.authHandler.Register)
		authGroup.POST("/login", r.authHandler.Login)
	}

	chat := r.engine.Group("/chat")
	{
		chat.GET("/ws", r.wsHandler.HandleWebSocket)
		chat.GET("/rooms", r.roomsHandler.GetRooms)
		chat.GET("/rooms/:id", r.roomsHandler.GetRoomDetail)
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
