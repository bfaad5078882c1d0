package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"badgehub/internal/middleware"
	"badgehub/internal/models"
	"badgehub/internal/response"
	"badgehub/internal/services"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubBadgeService struct {
	services.BadgeService
}

func (stubBadgeService) ListBadges(ctx context.Context) ([]*models.Badge, error) {
	return []*models.Badge{{ID: 1, Name: "First Steps"}}, nil
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	builder := response.NewBuilder(response.DefaultConfig(), logger)

	r := mux.NewRouter()
	r.NotFoundHandler = builder.NotFoundHandler()
	r.MethodNotAllowedHandler = builder.MethodNotAllowedHandler()
	r.HandleFunc("/boom", func(w http.ResponseWriter, req *http.Request) {
		panic("kaboom")
	})
	AddAPIv1Routes(r, stubBadgeService{}, builder, logger)

	return applyMiddleware(r, builder, []string{"https://app.example.com"}, logger)
}

func TestRoutes_ListBadges(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/badges", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(middleware.HeaderXRequestID))

	var body struct {
		Success bool            `json:"success"`
		Data    []*models.Badge `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "First Steps", body.Data[0].Name)
}

func TestRoutes_RequestIDPropagated(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set(middleware.HeaderXRequestID, "req-123")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "req-123", rr.Header().Get(middleware.HeaderXRequestID))
	assert.Contains(t, rr.Body.String(), `"req-123"`)
}

func TestRoutes_PanicRecovered(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rr := httptest.NewRecorder()
	require.NotPanics(t, func() { handler.ServeHTTP(rr, req) })

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), `"success":false`)
	assert.NotContains(t, rr.Body.String(), "kaboom")
}

func TestRoutes_NotFound(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), services.ErrorTypeNotFound)
}

func TestRoutes_MethodNotAllowed(t *testing.T) {
	handler := newTestHandler(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/badges/check/1"},
		{http.MethodGet, "/api/v1/badges/check-all/1"},
		{http.MethodDelete, "/api/v1/badges"},
		{http.MethodPost, "/api/v1/badges/users/1/progress"},
		{http.MethodPost, "/api/v1/status"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
			assert.Contains(t, rr.Body.String(), `"METHOD_NOT_ALLOWED"`)
			assert.NotEmpty(t, rr.Header().Get(middleware.HeaderXRequestID))
		})
	}
}

func TestRoutes_UnknownBadgeRoute(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/badges/check/abc", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), services.ErrorTypeNotFound)
}

func TestRoutes_CORS(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/badges", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/badges", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}
