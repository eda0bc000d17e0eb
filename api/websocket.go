package api

import (
	"github.com/Desarso/datarex/sessions"
	"github.com/gin-gonic/gin"
)

// websocket upgrades the request and serves chat frames until the client
// goes away.
func (s *Server) websocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Printf("Failed to upgrade to websocket: %v", err)
		return
	}
	defer conn.Close()

	session := sessions.NewChatSession(currentUser(c), conn, s.manager)
	if err := session.Run(c.Request.Context()); err != nil {
		session.Logger.Printf("Websocket session ended: %v", err)
	}
}
