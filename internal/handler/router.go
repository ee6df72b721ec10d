package handler

import (
	"github.com/gin-gonic/gin"

	"campus_chat/internal/config"
	"campus_chat/internal/domain"
	"campus_chat/internal/middleware"
	"campus_chat/pkg/logger"
)

func NewRouter(
	handlers *Handlers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Realtime.AllowedOrigins))
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler())

	router.GET("/health", handlers.Health.Check)

	// Токен для websocket передается в ?token=
	router.GET("/ws", authMiddleware.RequireAuth(), handlers.WebSocket.Handle)

	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware.RequireAuth())
	{
		chats := v1.Group("/chats")
		{
			chats.GET("", handlers.Chat.List)
			chats.POST("/direct", handlers.Chat.AccessDirect)
			chats.POST("/group", handlers.Chat.CreateGroup)
			chats.POST("/course", authMiddleware.RequireRoles(domain.RoleFaculty, domain.RoleAdmin), handlers.Chat.CreateCourse)
			chats.POST("/role-room", authMiddleware.RequireRoles(domain.RoleRoomCreatorRoles...), handlers.Chat.CreateRoleRoom)
			chats.GET("/:id", handlers.Chat.Get)
			chats.GET("/:id/messages", handlers.Message.List)
			chats.POST("/:id/messages", rateLimitMiddleware.Limit(), handlers.Message.Send)
		}

		direct := v1.Group("/direct")
		{
			direct.GET("/conversations", handlers.Direct.Conversations)
			direct.GET("/conversations/:userId/messages", handlers.Direct.Messages)
			direct.POST("/conversations/:userId/messages", rateLimitMiddleware.Limit(), handlers.Direct.Send)
			direct.GET("/unread", handlers.Direct.Unread)
		}
	}

	return router
}
