// Package http exposes the assistant as a chat page and a JSON API.
package http

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"destination_assistant/internal/http/handlers"
	"destination_assistant/internal/http/middleware"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

func NewRouter(chat *handlers.ChatHandler) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logging())
	r.SetHTMLTemplate(template.Must(template.New("").ParseFS(templateFS, "templates/*.gohtml")))

	r.GET("/", chat.Page)
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api/sessions")
	api.POST("", chat.CreateSession)
	api.GET("/:id", chat.GetSession)
	api.POST("/:id/messages", chat.SendMessage)
	api.POST("/:id/listen", chat.Listen)
	api.POST("/:id/voice", chat.UploadVoice)
	api.POST("/:id/stop", chat.Stop)
	api.POST("/:id/reset", chat.Reset)

	return r
}
