// Package api exposes the chat gateway over HTTP and websockets.
package api

import (
	"log"
	"net/http"
	"os"

	"github.com/Desarso/datarex/sessions"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Config configures the HTTP layer.
type Config struct {
	// UploadDir receives uploaded files as <uuid>_<original name>.
	UploadDir string
	// MaxUploadBytes rejects larger uploads; zero disables the limit.
	MaxUploadBytes int64
	Auth           Authenticator
}

// Server holds the gin handlers of the gateway.
type Server struct {
	manager  *sessions.ChatManager
	cfg      Config
	logger   *log.Logger
	upgrader websocket.Upgrader
}

func NewServer(manager *sessions.ChatManager, cfg Config) *Server {
	return &Server{
		manager: manager,
		cfg:     cfg,
		logger:  log.New(os.Stdout, "[API] ", log.LstdFlags),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler builds the gin engine with every route registered.
func (s *Server) Handler() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	if s.cfg.MaxUploadBytes > 0 {
		router.MaxMultipartMemory = s.cfg.MaxUploadBytes
	}

	api := router.Group("/api")
	api.GET("/health", s.health)

	authed := api.Group("", BearerAuth(s.cfg.Auth))
	authed.GET("/providers", s.listProviders)
	authed.POST("/threads", s.createThread)
	authed.GET("/threads", s.listThreads)
	authed.PATCH("/threads/:id", s.updateThread)
	authed.DELETE("/threads/:id", s.deleteThread)
	authed.GET("/threads/:id/messages", s.getMessages)
	authed.POST("/threads/:id/messages", s.sendMessage)
	authed.POST("/analyze-image", s.analyzeImage)
	authed.GET("/ws", s.websocket)

	return router
}
