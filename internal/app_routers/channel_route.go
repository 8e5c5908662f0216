package approuters

import (
	"github.com/gin-gonic/gin"

	"Chatline/internal/configuration"
)

func ChannelRouters(router *gin.Engine, container *configuration.Container) {
	channels := router.Group("/api/channels")
	channels.Use(container.Auth.RequireAuth())
	{
		channels.POST("", container.ChannelHandler.CreateChannel)
		channels.GET("", container.ChannelHandler.GetUserChannels)
		channels.GET("/:channelId/members", container.ChannelHandler.GetChannelMembers)
		channels.GET("/:channelId/messages", container.ChannelHandler.GetChannelMessages)
	}
}
