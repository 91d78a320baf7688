// Package httpapi exposes the chat service over a JSON HTTP API.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/easeaico/ensemble/internal/chat"
)

// NewRouter builds the gin engine with all routes registered.
func NewRouter(svc *chat.Service) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	h := NewHandler(svc)

	r.GET("/ping", h.Ping)

	// Characters
	r.POST("/characters", h.CreateCharacter)
	r.GET("/characters", h.ListCharacters)
	r.GET("/characters/:id", h.GetCharacter)
	r.DELETE("/characters/:id", h.DeleteCharacter)
	r.POST("/characters/:id/chat", h.SoloChat)

	// Group chats
	r.POST("/groups", h.CreateGroup)
	r.GET("/groups", h.ListGroups)
	r.GET("/groups/:id", h.GetGroup)
	r.DELETE("/groups/:id", h.DeleteGroup)
	r.GET("/groups/:id/stats", h.GroupStats)
	r.GET("/groups/:id/recall", h.RecallMessages)
	r.POST("/groups/:id/messages", h.SendMessage)

	// Autonomous conversations
	r.POST("/groups/:id/autonomous/tick", h.Tick)
	r.GET("/groups/:id/autonomous", h.AutonomousStatus)
	r.DELETE("/groups/:id/autonomous", h.StopAutonomous)

	return r
}
