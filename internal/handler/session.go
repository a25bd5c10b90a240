package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"propertychat/internal/client"
	"propertychat/internal/model"
	"propertychat/internal/service"
)

// SessionHandler handles session and turn HTTP requests
type SessionHandler struct {
	sessions *service.SessionManager
	logger   *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *service.SessionManager, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{sessions: sessions, logger: logger}
}

// Register mounts the session routes on r
func (h *SessionHandler) Register(r gin.IRouter) {
	r.POST("/sessions", h.Create)
	r.GET("/sessions/:id", h.Get)
	r.DELETE("/sessions/:id", h.Delete)
	r.POST("/sessions/:id/turns", h.Submit)
	r.GET("/sessions/:id/properties", h.Properties)
	r.PUT("/sessions/:id/sort", h.SetSort)
}

// Create handles POST /api/v1/sessions. The body is optional; the user id
// may also come from the X-User-ID header.
//
// The user id is trusted as given. An upstream authenticator must set the
// header (and strip any client supplied body value); nothing here checks it.
func (h *SessionHandler) Create(c *gin.Context) {
	var req model.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	if req.UserID == "" {
		req.UserID = c.GetHeader(client.UserHeader)
	}

	s, warning, err := h.sessions.Start(c.Request.Context(), req.UserID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := s.Snapshot()
	if warning != nil {
		resp.Warning = warning.Error()
		h.logger.Warn("session started without saved filters applied",
			zap.String("session_id", s.ID()),
			zap.Error(warning))
	}
	c.JSON(http.StatusCreated, resp)
}

// Get handles GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	resp := s.Snapshot()
	if err := s.HydrationError(); err != nil {
		resp.Warning = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// Delete handles DELETE /api/v1/sessions/:id (logout)
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.Logout(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Submit handles POST /api/v1/sessions/:id/turns
func (h *SessionHandler) Submit(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req model.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	res, err := s.Submit(c.Request.Context(), req.Utterance)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.TurnResponse{
		Message:    res.Message,
		Criteria:   res.Criteria,
		Properties: res.Properties,
		Took:       res.Took.Milliseconds(),
	})
}

// Properties handles GET /api/v1/sessions/:id/properties?sort=price-asc
// A sort parameter orders this response only; without one the session's
// current order is used.
func (h *SessionHandler) Properties(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	sort := s.Sort()
	if raw, present := c.GetQuery("sort"); present {
		parsed, err := model.ParseSortDirective(raw)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		sort = parsed
	}

	props := s.PresentSorted(sort)
	c.JSON(http.StatusOK, model.PropertiesResponse{
		Properties: props,
		Sort:       sort,
		Total:      len(props),
	})
}

// SetSort handles PUT /api/v1/sessions/:id/sort
func (h *SessionHandler) SetSort(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req model.SortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	sort, err := model.ParseSortDirective(req.Sort)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	props := s.SetSort(sort)
	c.JSON(http.StatusOK, model.PropertiesResponse{
		Properties: props,
		Sort:       sort,
		Total:      len(props),
	})
}

func (h *SessionHandler) session(c *gin.Context) (*service.Session, bool) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return nil, false
	}
	return s, true
}

// Health handles GET /health
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}
