package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"Chatline/internal/hub"
	"Chatline/internal/middleware"
	"Chatline/internal/repo"
	apperrors "Chatline/pkg/errors"
)

// ChannelHandler is the channel management surface. Creation happens
// here over REST; the hub's broadcaster then pushes the result to every
// member's live connections.
type ChannelHandler interface {
	CreateChannel(c *gin.Context)
	GetUserChannels(c *gin.Context)
	GetChannelMembers(c *gin.Context)
	GetChannelMessages(c *gin.Context)
}

type channelHandler struct {
	channels repo.ChannelRepository
	users    repo.UserRepository
	messages repo.MessageRepository
	hub      *hub.Hub
	logger   *zap.Logger
}

func NewChannelHandler(channels repo.ChannelRepository, users repo.UserRepository, messages repo.MessageRepository, h *hub.Hub, logger *zap.Logger) ChannelHandler {
	return &channelHandler{
		channels: channels,
		users:    users,
		messages: messages,
		hub:      h,
		logger:   logger,
	}
}

type createChannelRequest struct {
	Name    string   `json:"name" binding:"required"`
	Members []string `json:"members" binding:"required,min=1"`
}

func (h *channelHandler) CreateChannel(c *gin.Context) {
	adminID := c.GetString(middleware.ContextUserID)

	var req createChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and members are required"})
		return
	}

	ok, err := h.users.AllExist(c.Request.Context(), req.Members)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": "could not validate members"})
		return
	}
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "some members are not valid users"})
		return
	}

	channel, err := h.channels.Create(c.Request.Context(), req.Name, adminID, req.Members)
	if err != nil {
		h.logger.Error("channel creation failed",
			zap.String("admin_id", adminID),
			zap.Error(err),
		)
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": "could not create channel"})
		return
	}

	h.hub.NotifyChannelAdded(channel)

	c.JSON(http.StatusCreated, gin.H{"channel": channel})
}

func (h *channelHandler) GetUserChannels(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	channels, err := h.channels.ListForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": "could not list channels"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

func (h *channelHandler) GetChannelMembers(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	channelID := c.Param("channelId")

	channel, err := h.channels.Get(c.Request.Context(), channelID)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": "channel not found"})
		return
	}
	if !channel.HasMember(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a channel member"})
		return
	}

	members, err := h.channels.ListMembers(c.Request.Context(), channelID)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": "could not list members"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}

func (h *channelHandler) GetChannelMessages(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	channelID := c.Param("channelId")

	channel, err := h.channels.Get(c.Request.Context(), channelID)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": "channel not found"})
		return
	}
	if !channel.HasMember(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a channel member"})
		return
	}

	page := pageNumber(c)
	msgs, err := h.messages.ChannelHistory(c.Request.Context(), channelID, page)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": "could not load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs.Data, "totalPages": msgs.TotalPages})
}
