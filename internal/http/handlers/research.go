package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/enemia-backend/internal/http/response"
	"github.com/yungbote/enemia-backend/internal/services"
)

type ResearchHandler struct {
	research services.ResearchService
}

func NewResearchHandler(research services.ResearchService) *ResearchHandler {
	return &ResearchHandler{research: research}
}

type createResearchReq struct {
	Topic *string `json:"topic"`
}

// POST /v1/research/create
func (h *ResearchHandler) Create(c *gin.Context) {
	var req createResearchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.Topic == nil {
		response.RespondError(c, http.StatusBadRequest, "missing_field", errors.New("missing required field: topic"))
		return
	}
	row, err := h.research.Create(dbcFrom(c), *req.Topic)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, "", gin.H{"research": row})
}

// GET /v1/research?limit=50
func (h *ResearchHandler) List(c *gin.Context) {
	rows, err := h.research.List(dbcFrom(c), queryInt(c, "limit", 50))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, "", gin.H{"researches": rows, "total": len(rows)})
}

// GET /v1/research/:research_id
func (h *ResearchHandler) Get(c *gin.Context) {
	row, err := h.research.Get(dbcFrom(c), c.Param("research_id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, "", gin.H{"research": row})
}
