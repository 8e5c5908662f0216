package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"Chatline/internal/model"
	"Chatline/internal/repo"
	apperrors "Chatline/pkg/errors"

	"Chatline/internal/middleware"
)

// MessageHandler serves message history over REST for clients catching up
// outside the live socket.
type MessageHandler interface {
	GetDirectMessages(c *gin.Context)
}

type messageHandler struct {
	conversations repo.ConversationRepository
	messages      repo.MessageRepository
}

func NewMessageHandler(conversations repo.ConversationRepository, messages repo.MessageRepository) MessageHandler {
	return &messageHandler{conversations: conversations, messages: messages}
}

// GetDirectMessages returns one page of the conversation between the
// caller and a peer, chronological. An absent conversation is an empty
// history, not an error.
func (h *messageHandler) GetDirectMessages(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	peerID := c.Param("peerId")
	if peerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "peer id is required"})
		return
	}

	conversation, err := h.conversations.FindByPair(c.Request.Context(), userID, peerID)
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"messages": []model.Message{}})
		return
	}
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": "could not load messages"})
		return
	}

	msgs, err := h.messages.History(c.Request.Context(), conversation.ID.Hex(), pageNumber(c))
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": "could not load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs.Data, "totalPages": msgs.TotalPages})
}

// pageNumber reads the page query parameter, defaulting to the first page.
func pageNumber(c *gin.Context) int64 {
	page, err := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	if err != nil || page < 1 {
		return 1
	}
	return page
}
