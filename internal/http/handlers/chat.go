package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/enemia-backend/internal/domain"
	"github.com/yungbote/enemia-backend/internal/http/response"
	"github.com/yungbote/enemia-backend/internal/services"
)

type ChatHandler struct {
	chat services.ChatService
}

func NewChatHandler(chat services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type chatQueryReq struct {
	Query *string `json:"query"`
}

type messageView struct {
	Content string `json:"content"`
	IsUser  bool   `json:"isUser"`
}

func messageViews(msgs []domain.ChatMessage) []messageView {
	out := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageView{Content: m.Content, IsUser: m.IsUser})
	}
	return out
}

func bindQuery(c *gin.Context) (string, bool) {
	var req chatQueryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return "", false
	}
	if req.Query == nil {
		response.RespondError(c, http.StatusBadRequest, "missing_field", errors.New("missing required field: query"))
		return "", false
	}
	return *req.Query, true
}

// POST /v1/questions/:question_id/chat/start
func (h *ChatHandler) Start(c *gin.Context) {
	query, ok := bindQuery(c)
	if !ok {
		return
	}
	turn, err := h.chat.Start(dbcFrom(c), c.Param("question_id"), query)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, "", gin.H{"chat": gin.H{
		"id":       turn.ChatID,
		"question": turn.Question,
		"messages": messageViews(turn.Messages),
	}})
}

// POST /v1/questions/chat/:chat_id/continue
func (h *ChatHandler) Continue(c *gin.Context) {
	query, ok := bindQuery(c)
	if !ok {
		return
	}
	turn, err := h.chat.Continue(dbcFrom(c), c.Param("chat_id"), query)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, "", gin.H{"chat": gin.H{
		"id":       turn.ChatID,
		"messages": messageViews(turn.Messages),
	}})
}

// GET /v1/questions/chat/history?limit=10
func (h *ChatHandler) History(c *gin.Context) {
	chats, err := h.chat.History(dbcFrom(c), queryInt(c, "limit", 10))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, "", gin.H{"chats": chats, "total": len(chats)})
}

// GET /v1/questions/chat/:chat_id
func (h *ChatHandler) Get(c *gin.Context) {
	view, err := h.chat.Get(dbcFrom(c), c.Param("chat_id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, "", gin.H{"chat": gin.H{
		"id":        view.Chat.ID,
		"question":  view.Question,
		"messages":  messageViews(view.Chat.Messages),
		"createdAt": view.Chat.CreatedAt,
		"updatedAt": view.Chat.UpdatedAt,
	}})
}
