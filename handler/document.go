package handler

import (
	"net/http"

	"github.com/EduardoCane/EmpresaAguaLima-sub000/catalog"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/pdfdoc"
	"github.com/gin-gonic/gin"
)

type DocumentHandler struct {
	catalog *catalog.Catalog
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(c *catalog.Catalog) *DocumentHandler {
	return &DocumentHandler{catalog: c}
}

// List returns the document catalog in export order.
func (h *DocumentHandler) List(c *gin.Context) {
	docs := h.catalog.All()
	out := make([]gin.H, len(docs))
	for i, d := range docs {
		out[i] = gin.H{
			"id":        d.ID,
			"label":     d.Label,
			"pages":     d.Pages,
			"group":     d.Group,
			"landscape": d.Orientation == pdfdoc.Landscape,
			"half_page": d.HalfPage,
		}
	}
	c.JSON(http.StatusOK, gin.H{"documents": out})
}
