package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/loopchat/loopchat-server/internal/auth"
	"github.com/loopchat/loopchat-server/internal/config"
	"github.com/loopchat/loopchat-server/internal/core"
	"github.com/loopchat/loopchat-server/internal/store"
)

// NewServer builds the HTTP server exposing the REST API and the
// WebSocket endpoint.
func NewServer(
	cfg config.Config,
	authService *auth.Service,
	st store.Store,
	router *core.Router,
	presence *core.Presence,
	unread *core.Ledger,
	logger *zerolog.Logger,
) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), LoggerMiddleware(logger))

	engine.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	authHandlers := NewAuthHandlers(authService, logger)
	userHandlers := NewUserHandlers(st, logger)
	messageHandlers := NewMessageHandlers(st, logger)
	privateHandlers := NewPrivateHandlers(st, logger)

	engine.POST("/auth/register", authHandlers.Register)
	engine.POST("/auth/login", authHandlers.Login)
	engine.POST("/auth/logout", AuthMiddleware(authService, logger), authHandlers.Logout)

	api := engine.Group("/api", AuthMiddleware(authService, logger))
	{
		api.GET("/users", userHandlers.ListUsers)
		api.GET("/users/:id", userHandlers.GetUser)

		api.GET("/messages", messageHandlers.ListMessages)
		api.GET("/messages/user/:id", messageHandlers.ListUserMessages)
		api.POST("/messages", messageHandlers.SendMessage)

		api.POST("/private", privateHandlers.SendPrivate)
		api.GET("/private/:peerID", privateHandlers.Conversation)
	}

	wsHandler := NewWSHandler(router, presence, unread, st, logger)
	engine.GET("/ws", gin.WrapH(wsHandler))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
