package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/enemia-backend/internal/http/response"
	"github.com/yungbote/enemia-backend/internal/services"
)

type QuestionHandler struct {
	questions services.QuestionService
}

func NewQuestionHandler(questions services.QuestionService) *QuestionHandler {
	return &QuestionHandler{questions: questions}
}

// POST /v1/questions/:question_id/rate
func (h *QuestionHandler) Rate(c *gin.Context) {
	var req map[string]any
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	raw, ok := req["rating"]
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "missing_field", errors.New("missing required field: rating"))
		return
	}
	rating, ok := integral(raw)
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_rating", errors.New("rating must be an integer between 1 and 5"))
		return
	}
	q, err := h.questions.Rate(dbcFrom(c), c.Param("question_id"), rating)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, "Questão classificada com sucesso.", gin.H{"question": q})
}

// GET /v1/questions/errors?threshold=3&limit=10
func (h *QuestionHandler) ErrorQuestions(c *gin.Context) {
	out, err := h.questions.ErrorQuestions(dbcFrom(c),
		queryFloat(c, "threshold", services.DefaultErrorThreshold),
		queryInt(c, "limit", 10))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, "", gin.H{"errorQuestions": out, "total": len(out)})
}
