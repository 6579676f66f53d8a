package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/enemia-backend/internal/http/response"
	"github.com/yungbote/enemia-backend/internal/services"
)

type ExamHandler struct {
	exams services.ExamService
}

func NewExamHandler(exams services.ExamService) *ExamHandler {
	return &ExamHandler{exams: exams}
}

// POST /v1/exams/generate
func (h *ExamHandler) Generate(c *gin.Context) {
	var req services.CreateExamInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	exam, err := h.exams.Create(dbcFrom(c), req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, "Simulado gerado com sucesso.", gin.H{"exam": exam})
}

// GET /v1/exams/:exam_id
func (h *ExamHandler) Get(c *gin.Context) {
	exam, err := h.exams.Get(dbcFrom(c), c.Param("exam_id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, "", gin.H{"exam": exam})
}

// POST /v1/exams/:exam_id/start
func (h *ExamHandler) Start(c *gin.Context) {
	exam, err := h.exams.Start(dbcFrom(c), c.Param("exam_id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, "", gin.H{"exam": exam})
}

type submitExamReq struct {
	Answers   map[string]string `json:"answers"`
	TimeSpent int               `json:"timeSpent"`
}

// POST /v1/exams/:exam_id/submit
func (h *ExamHandler) Submit(c *gin.Context) {
	var req submitExamReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	sub, err := h.exams.Submit(dbcFrom(c), c.Param("exam_id"), req.Answers, req.TimeSpent)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, "Simulado finalizado com sucesso.", gin.H{"exam": sub.Exam, "result": sub.Result})
}

// GET /v1/exams/history?status=completed&page=1&limit=10
func (h *ExamHandler) History(c *gin.Context) {
	hist, err := h.exams.History(dbcFrom(c), c.Query("status"), queryInt(c, "page", 1), queryInt(c, "limit", 10))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, "", gin.H{"exams": hist.Exams, "pagination": hist.Pagination})
}
