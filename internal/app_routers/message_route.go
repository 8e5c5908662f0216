package approuters

import (
	"github.com/gin-gonic/gin"

	"Chatline/internal/configuration"
)

func MessageRouters(router *gin.Engine, container *configuration.Container) {
	messages := router.Group("/api/messages")
	messages.Use(container.Auth.RequireAuth())
	{
		messages.GET("/direct/:peerId", container.MessageHandler.GetDirectMessages)
	}
}
