package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/atozlegal/legalchat/internal/common"
	"github.com/atozlegal/legalchat/internal/httpapi/handlers"
	"github.com/atozlegal/legalchat/internal/httpapi/middleware"
)

// NewRouter wires the UI-facing intents: send, upload, select, delete,
// reset, plus state reads, transcript export, and async job polling.
func NewRouter(h *handlers.Handler, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.GET("/ping", h.Ping)

	api := r.Group("/api")
	api.GET("/state", h.GetState)

	api.GET("/sessions", h.ListSessions)
	api.POST("/sessions", h.ResetSession)
	api.POST("/sessions/:session_id/select", h.SelectSession)
	api.DELETE("/sessions/:session_id", h.DeleteSession)
	api.GET("/sessions/:session_id/export", h.ExportTranscript)
	api.GET("/export", h.ExportTranscript)

	api.POST("/messages", h.SendMessage)
	api.POST("/messages/stream", h.SendMessageStream)
	api.POST("/messages/async", h.SendMessageAsync)
	api.GET("/jobs/:job_id", h.GetJob)

	api.POST("/documents", h.UploadDocument)

	return r
}
