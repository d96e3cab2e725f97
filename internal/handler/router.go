package handler

import (
	"docbrain-go/internal/middleware"
	"docbrain-go/internal/service"
	"docbrain-go/pkg/log"
	"docbrain-go/pkg/metrics"
	"docbrain-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// Services are the dependencies of the HTTP API.
type Services struct {
	Documents     service.DocumentService
	Chat          service.ChatService
	Search        service.SearchService
	Personalities service.PersonalityService
	Conversations service.ConversationService
	Auth          service.AuthService
}

// RouterOptions tune the HTTP API.
type RouterOptions struct {
	JWTManager     *token.JWTManager
	MaxUploadBytes int64
	ChatPerSecond  float64
	ChatBurst      int
}

// NewRouter registers every route on a new gin engine.
func NewRouter(s Services, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(), middleware.Metrics(), gin.Recovery())
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	documentHandler := NewDocumentHandler(s.Documents, opts.MaxUploadBytes)
	chatHandler := NewChatHandler(s.Chat)
	personalityHandler := NewPersonalityHandler(s.Personalities)
	conversationHandler := NewConversationHandler(s.Conversations)

	api := r.Group("/api")
	{
		api.GET("/health", NewHealthHandler(s.Search, s.Personalities).Health)
		api.POST("/auth/login", NewAuthHandler(s.Auth).Login)
		api.GET("/personalities", personalityHandler.List)
		api.GET("/search", NewSearchHandler(s.Search).Search)

		documents := api.Group("/documents")
		{
			documents.GET("", documentHandler.List)
			documents.POST("/upload", documentHandler.Upload)
			documents.DELETE("/:id", documentHandler.Delete)
			documents.GET("/:id/download", documentHandler.Download)
		}

		chat := api.Group("/chat", middleware.RateLimit(opts.ChatPerSecond, opts.ChatBurst))
		{
			chat.POST("", chatHandler.Chat)
			chat.GET("/ws", chatHandler.Stream)
		}

		api.GET("/conversation", conversationHandler.GetConversation)
		api.DELETE("/conversation", conversationHandler.ClearConversation)

		admin := api.Group("")
		if s.Auth.Enabled() && opts.JWTManager != nil {
			admin.Use(middleware.AuthMiddleware(opts.JWTManager), middleware.AdminAuthMiddleware())
		} else {
			log.Warnf("no admin account configured, admin routes are open")
		}
		{
			admin.POST("/personality", personalityHandler.Set)
			admin.DELETE("/documents", documentHandler.Clear)
			admin.DELETE("/documents/clear", documentHandler.Clear)
			admin.POST("/documents/rebuild", documentHandler.Rebuild)
		}
	}
	return r
}
