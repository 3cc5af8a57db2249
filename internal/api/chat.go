package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/YEJIN-DEV/yejingram-sub001/internal/models"
	"github.com/YEJIN-DEV/yejingram-sub001/internal/service"
	"github.com/YEJIN-DEV/yejingram-sub001/pkg/errors"
)

// Chat is the part of the chat service the handlers drive
type Chat interface {
	SendUserMessage(ctx context.Context, roomID string, req models.SendMessageRequest) (*models.Message, bool, error)
	TriggerProactive(ctx context.Context, roomID string, characterID uint) error
}

var _ Chat = (*service.ChatService)(nil)

type ChatHandler struct {
	chat Chat
	repo service.Repository
}

func NewChatHandler(chat Chat, repo service.Repository) *ChatHandler {
	return &ChatHandler{chat: chat, repo: repo}
}

// SendMessageResponse is returned once the human message is committed
type SendMessageResponse struct {
	Message    *models.Message `json:"message"`
	Responding bool            `json:"responding"`
}

type proactiveRequest struct {
	CharacterID uint `json:"characterId"`
}

// SendMessage commits the persona's message and starts the room's reply.
// The reply itself arrives over the websocket.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewBadRequestError("INVALID_REQUEST", err.Error()))
		return
	}

	msg, responding, err := h.chat.SendUserMessage(c.Request.Context(), c.Param("roomId"), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, SendMessageResponse{Message: msg, Responding: responding})
}

// Proactive lets a character open the conversation; 409 when the room is busy
func (h *ChatHandler) Proactive(c *gin.Context) {
	var req proactiveRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(errors.NewBadRequestError("INVALID_REQUEST", err.Error()))
			return
		}
	}

	if err := h.chat.TriggerProactive(c.Request.Context(), c.Param("roomId"), req.CharacterID); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"responding": true})
}

func (h *ChatHandler) ListMessages(c *gin.Context) {
	roomID := c.Param("roomId")
	if _, err := h.repo.GetRoom(c.Request.Context(), roomID); err != nil {
		c.Error(err)
		return
	}
	messages, err := h.repo.ListMessages(c.Request.Context(), roomID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// RegisterRoutes registers the chat routes. send is applied to the
// endpoints that reach an LLM provider.
func (h *ChatHandler) RegisterRoutes(rg *gin.RouterGroup, send ...gin.HandlerFunc) {
	rooms := rg.Group("/rooms/:roomId")
	rooms.POST("/messages", append(send, h.SendMessage)...)
	rooms.POST("/proactive", append(send, h.Proactive)...)
	rooms.GET("/messages", h.ListMessages)
}
