package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"propertychat/internal/model"
)

// RegisterCompare mounts the compare-set routes on r
func (h *SessionHandler) RegisterCompare(r gin.IRouter) {
	r.GET("/sessions/:id/compare", h.Compare)
	r.POST("/sessions/:id/compare", h.AddToCompare)
	r.DELETE("/sessions/:id/compare/:property_id", h.RemoveFromCompare)
}

// Compare handles GET /api/v1/sessions/:id/compare
func (h *SessionHandler) Compare(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.Compare())
}

// AddToCompare handles POST /api/v1/sessions/:id/compare
func (h *SessionHandler) AddToCompare(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req model.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	table, err := s.AddToCompare(req.PropertyID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

// RemoveFromCompare handles DELETE /api/v1/sessions/:id/compare/:property_id
func (h *SessionHandler) RemoveFromCompare(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(c.Param("property_id"), 10, 64)
	if err != nil {
		badRequest(c, "Invalid property id")
		return
	}
	c.JSON(http.StatusOK, s.RemoveFromCompare(id))
}
