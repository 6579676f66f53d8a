package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/enemia-backend/internal/http/response"
	"github.com/yungbote/enemia-backend/internal/services"
)

type FlashcardHandler struct {
	flashcards services.FlashcardService
}

func NewFlashcardHandler(flashcards services.FlashcardService) *FlashcardHandler {
	return &FlashcardHandler{flashcards: flashcards}
}

type createFlashcardReq struct {
	Front            *string  `json:"front"`
	Back             *string  `json:"back"`
	Tags             []string `json:"tags"`
	MediaAttachments []string `json:"mediaAttachments"`
	UserNotes        string   `json:"userNotes"`
}

// POST /v1/flashcards
func (h *FlashcardHandler) Create(c *gin.Context) {
	var req createFlashcardReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.Front == nil || req.Back == nil {
		field := "front"
		if req.Front != nil {
			field = "back"
		}
		response.RespondError(c, http.StatusBadRequest, "missing_field", errors.New("missing required field: "+field))
		return
	}
	card, err := h.flashcards.Create(dbcFrom(c), services.CreateFlashcardInput{
		Front:            *req.Front,
		Back:             *req.Back,
		Tags:             req.Tags,
		MediaAttachments: req.MediaAttachments,
		UserNotes:        req.UserNotes,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, "Flashcard criado com sucesso.", gin.H{"flashcard": card})
}

// POST /v1/flashcards/from-question/:question_id
func (h *FlashcardHandler) CreateFromQuestion(c *gin.Context) {
	card, err := h.flashcards.CreateFromQuestion(dbcFrom(c), c.Param("question_id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, "Flashcard criado com sucesso.", gin.H{"flashcard": card})
}

// GET /v1/flashcards/:id
func (h *FlashcardHandler) Get(c *gin.Context) {
	card, err := h.flashcards.Get(dbcFrom(c), c.Param("id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, "", gin.H{"flashcard": card})
}

// PUT /v1/flashcards/:id
func (h *FlashcardHandler) Update(c *gin.Context) {
	var patch services.FlashcardPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	card, err := h.flashcards.Update(dbcFrom(c), c.Param("id"), patch)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, "Flashcard atualizado com sucesso.", gin.H{"flashcard": card})
}

// DELETE /v1/flashcards/:id
func (h *FlashcardHandler) Delete(c *gin.Context) {
	if err := h.flashcards.Delete(dbcFrom(c), c.Param("id")); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, "Flashcard excluído com sucesso.", nil)
}

// POST /v1/flashcards/:id/review
func (h *FlashcardHandler) Review(c *gin.Context) {
	var req map[string]any
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	raw, ok := req["quality"]
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "missing_field", errors.New("missing required field: quality"))
		return
	}
	quality, ok := integral(raw)
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_quality", errors.New("quality must be an integer between 0 and 5"))
		return
	}
	card, err := h.flashcards.Review(dbcFrom(c), c.Param("id"), quality)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, "Revisão registrada com sucesso.", gin.H{"flashcard": card})
}

// GET /v1/flashcards?filter=due|new|learning|review&limit=50
func (h *FlashcardHandler) List(c *gin.Context) {
	cards, err := h.flashcards.List(dbcFrom(c), c.Query("filter"), queryInt(c, "limit", 50))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, "", gin.H{"flashcards": cards, "total": len(cards)})
}

// GET /v1/flashcards/due
func (h *FlashcardHandler) Due(c *gin.Context) {
	cards, err := h.flashcards.Due(dbcFrom(c))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, "", gin.H{"flashcards": cards, "total": len(cards)})
}

// GET /v1/flashcards/stats
func (h *FlashcardHandler) Stats(c *gin.Context) {
	stats, err := h.flashcards.Stats(dbcFrom(c))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, "", gin.H{"stats": stats})
}
