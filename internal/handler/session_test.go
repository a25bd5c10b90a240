package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propertychat/internal/model"
	"propertychat/internal/service"
)

type stubInterpreter struct {
	reply *model.Interpretation
	err   error
}

func (s *stubInterpreter) Interpret(context.Context, string, model.Criteria) (*model.Interpretation, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.reply, nil
}

type failingCatalog struct{}

func (failingCatalog) Catalog(context.Context) ([]model.Property, error) {
	return nil, errors.New("down")
}

func testProperties() []model.Property {
	return []model.Property{
		{ID: 1, Title: "A", Price: 900, Location: "Punggol", Bedrooms: 3, SizeSqft: 1000},
		{ID: 2, Title: "B", Price: 300, Location: "Bedok", Bedrooms: 2, SizeSqft: 1200},
		{ID: 3, Title: "C", Price: 600, Location: "Punggol", Bedrooms: 4, SizeSqft: 800},
	}
}

func newRouter(deps service.Deps) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewSessionHandler(service.NewSessionManager(deps, service.SessionOptions{CompareLimit: 2}), nil)
	api := r.Group("/api/v1")
	h.Register(api)
	h.RegisterCompare(api)
	return r
}

func testDeps(interp service.Interpreter) service.Deps {
	mem := service.NewMemoryFilter(testProperties())
	return service.Deps{Interpreter: interp, Filterer: mem, Catalog: mem}
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func startSession(t *testing.T, r http.Handler) model.SessionResponse {
	t.Helper()
	w := do(t, r, http.MethodPost, "/api/v1/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp model.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestSessionHandler_CreateAndGet(t *testing.T) {
	r := newRouter(testDeps(&stubInterpreter{}))

	created := startSession(t, r)
	assert.NotEmpty(t, created.SessionID)
	assert.Equal(t, model.TurnIdle, created.State)
	assert.Len(t, created.Properties, 3)
	require.Len(t, created.Transcript, 1)
	assert.Equal(t, model.GreetingText, created.Transcript[0].Text)

	w := do(t, r, http.MethodGet, "/api/v1/sessions/"+created.SessionID, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/sessions/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionHandler_CreateCatalogFailure(t *testing.T) {
	deps := testDeps(&stubInterpreter{})
	deps.Catalog = failingCatalog{}
	r := newRouter(deps)

	w := do(t, r, http.MethodPost, "/api/v1/sessions", `{"user_id":""}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestSessionHandler_Submit(t *testing.T) {
	interp := &stubInterpreter{reply: &model.Interpretation{
		Message:  "Punggol it is.",
		Criteria: model.Criteria{Location: model.Set("Punggol")},
	}}
	r := newRouter(testDeps(interp))
	s := startSession(t, r)
	path := "/api/v1/sessions/" + s.SessionID + "/turns"

	w := do(t, r, http.MethodPost, path, `{"utterance":"something in Punggol"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp model.TurnResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Punggol it is.", resp.Message)
	assert.Len(t, resp.Properties, 2)
	assert.Equal(t, model.Set("Punggol"), resp.Criteria.Location)
}

func TestSessionHandler_SubmitErrors(t *testing.T) {
	tests := []struct {
		name          string
		interp        *stubInterpreter
		body          string
		wantStatus    int
		wantRetryable bool
	}{
		{name: "blank", interp: &stubInterpreter{}, body: `{"utterance":"   "}`, wantStatus: http.StatusBadRequest},
		{name: "malformed", interp: &stubInterpreter{}, body: `{"utterance":`, wantStatus: http.StatusBadRequest},
		{name: "interpreter down", interp: &stubInterpreter{err: errors.New("timeout")}, body: `{"utterance":"hi"}`, wantStatus: http.StatusBadGateway, wantRetryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(testDeps(tt.interp))
			s := startSession(t, r)

			w := do(t, r, http.MethodPost, "/api/v1/sessions/"+s.SessionID+"/turns", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)

			var resp model.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, tt.wantRetryable, resp.Retryable)
		})
	}
}

func TestSessionHandler_Properties(t *testing.T) {
	r := newRouter(testDeps(&stubInterpreter{}))
	s := startSession(t, r)
	path := "/api/v1/sessions/" + s.SessionID + "/properties"

	w := do(t, r, http.MethodGet, path+"?sort=price-asc", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp model.PropertiesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, model.SortPriceAsc, resp.Sort)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, int64(2), resp.Properties[0].ID)

	// a GET never changes the session's own order
	w = do(t, r, http.MethodGet, path, "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, model.SortNone, resp.Sort)
	assert.Equal(t, []int64{1, 2, 3}, propertyIDs(resp.Properties))

	w = do(t, r, http.MethodGet, path+"?sort=sideways", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandler_SetSort(t *testing.T) {
	r := newRouter(testDeps(&stubInterpreter{}))
	s := startSession(t, r)
	base := "/api/v1/sessions/" + s.SessionID

	w := do(t, r, http.MethodPut, base+"/sort", `{"sort":"size-desc"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp model.PropertiesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, model.SortSizeDesc, resp.Sort)
	assert.Equal(t, []int64{2, 1, 3}, propertyIDs(resp.Properties))

	// the directive sticks to the session
	w = do(t, r, http.MethodGet, base+"/properties", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, model.SortSizeDesc, resp.Sort)

	var snap model.SessionResponse
	w = do(t, r, http.MethodGet, base, "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, model.SortSizeDesc, snap.Sort)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"unknown directive", base + "/sort", `{"sort":"sideways"}`, http.StatusBadRequest},
		{"malformed body", base + "/sort", `{`, http.StatusBadRequest},
		{"unknown session", "/api/v1/sessions/nope/sort", `{"sort":"price-asc"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, do(t, r, http.MethodPut, tt.path, tt.body).Code)
		})
	}
}

func propertyIDs(props []model.Property) []int64 {
	out := make([]int64, 0, len(props))
	for _, p := range props {
		out = append(out, p.ID)
	}
	return out
}

func TestSessionHandler_Delete(t *testing.T) {
	r := newRouter(testDeps(&stubInterpreter{}))
	s := startSession(t, r)
	path := "/api/v1/sessions/" + s.SessionID

	assert.Equal(t, http.StatusNoContent, do(t, r, http.MethodDelete, path, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodDelete, path, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, path, "").Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: x", service.ErrValidation), http.StatusBadRequest},
		{service.ErrTurnInProgress, http.StatusConflict},
		{fmt.Errorf("%w: x", service.ErrCompareFull), http.StatusConflict},
		{fmt.Errorf("%w: x", service.ErrSessionNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: x", service.ErrPropertyNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: x", service.ErrInterpretation), http.StatusBadGateway},
		{fmt.Errorf("%w: x", service.ErrFilterService), http.StatusBadGateway},
		{fmt.Errorf("%w: x", service.ErrCatalog), http.StatusBadGateway},
		{errors.New("other"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
