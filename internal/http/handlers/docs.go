package handlers

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed openapi.yaml
var openAPIDoc []byte

type DocsHandler struct{}

func NewDocsHandler() *DocsHandler { return &DocsHandler{} }

// GET /v1/docs/openapi.yaml
func (h *DocsHandler) OpenAPI(c *gin.Context) {
	c.Data(http.StatusOK, "application/yaml; charset=utf-8", openAPIDoc)
}
