package badges

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"badgehub/internal/models"
	"badgehub/internal/response"
	"badgehub/internal/services"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockBadgeService is a simplified mock implementation for testing
type mockBadgeService struct {
	checkCalls      [][2]int64
	leaderboardArgs []int
	err             error
}

func (m *mockBadgeService) CheckBadge(ctx context.Context, userID, badgeID int64) (*models.AwardResult, error) {
	m.checkCalls = append(m.checkCalls, [2]int64{userID, badgeID})
	if m.err != nil {
		return nil, m.err
	}
	if badgeID == 404 {
		return nil, services.EntityNotFoundError("badge", badgeID)
	}
	return &models.AwardResult{
		Awarded: true,
		Reason:  models.ReasonAwarded,
		Badge:   &models.Badge{ID: badgeID, Name: "b1"},
	}, nil
}

func (m *mockBadgeService) CheckAllBadges(ctx context.Context, userID int64) ([]*models.AwardResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []*models.AwardResult{
		{Awarded: true, Reason: models.ReasonAwarded, Badge: &models.Badge{ID: 1, Name: "first"}},
		{Awarded: true, Reason: models.ReasonAwarded, Badge: &models.Badge{ID: 2, Name: "second"}},
	}, nil
}

func (m *mockBadgeService) ListBadges(ctx context.Context) ([]*models.Badge, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []*models.Badge{{ID: 1, Name: "first"}}, nil
}

func (m *mockBadgeService) ListUserBadges(ctx context.Context, userID int64) ([]*models.UserBadge, error) {
	return []*models.UserBadge{}, m.err
}

func (m *mockBadgeService) GetProgress(ctx context.Context, userID int64) ([]*models.BadgeProgress, error) {
	return []*models.BadgeProgress{{Badge: &models.Badge{ID: 1}, Current: 3, Target: 5, Progress: 60}}, m.err
}

func (m *mockBadgeService) GetLeaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	m.leaderboardArgs = append(m.leaderboardArgs, limit)
	return []*models.LeaderboardEntry{{Rank: 1, UserID: 9, BadgeCount: 4}}, m.err
}

func (m *mockBadgeService) MarkNotified(ctx context.Context, userID, badgeID int64) error {
	return m.err
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
	Meta *struct {
		Count int `json:"count"`
	} `json:"meta"`
}

func setup(t *testing.T) (*mockBadgeService, http.Handler) {
	t.Helper()
	service := &mockBadgeService{}
	builder := response.NewBuilder(response.DefaultConfig(), zap.NewNop())
	controller := NewBadgeController(service, zap.NewNop(), builder)

	router := mux.NewRouter()
	controller.RegisterRoutes(router.PathPrefix("/api/v1/badges").Subrouter())
	return service, router
}

func do(t *testing.T, handler http.Handler, method, path, body string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	return rr, resp
}

func TestCheckBadge(t *testing.T) {
	service, handler := setup(t)

	rr, resp := do(t, handler, http.MethodPost, "/api/v1/badges/check/1", `{"user_id": 42}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, [][2]int64{{42, 1}}, service.checkCalls)

	var result models.AwardResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.True(t, result.Awarded)
	assert.Equal(t, models.ReasonAwarded, result.Reason)
	assert.Equal(t, "b1", result.Badge.Name)
	assert.Equal(t, "no-cache, no-store, must-revalidate", rr.Header().Get("Cache-Control"))
}

func TestCheckBadge_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
	}{
		{"empty body", "/api/v1/badges/check/1", ""},
		{"malformed json", "/api/v1/badges/check/1", `{"user_id":`},
		{"missing user", "/api/v1/badges/check/1", `{}`},
		{"negative user", "/api/v1/badges/check/1", `{"user_id": -4}`},
		{"unknown field", "/api/v1/badges/check/1", `{"user_id": 4, "force": true}`},
		{"zero badge", "/api/v1/badges/check/0", `{"user_id": 4}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, handler := setup(t)
			rr, resp := do(t, handler, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.False(t, resp.Success)
			assert.Equal(t, services.ErrorTypeValidation, resp.Error.Type)
			assert.Empty(t, service.checkCalls)
		})
	}
}

func TestCheckBadge_NotFound(t *testing.T) {
	_, handler := setup(t)

	rr, resp := do(t, handler, http.MethodPost, "/api/v1/badges/check/404", `{"user_id": 1}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, services.ErrorTypeNotFound, resp.Error.Type)
	assert.Equal(t, "badge not found", resp.Error.Message)
}

func TestStorageFailureIsMasked(t *testing.T) {
	service, handler := setup(t)
	service.err = services.NewStorageError("record award", errors.New("pq: connection reset"))

	rr, resp := do(t, handler, http.MethodPost, "/api/v1/badges/check/1", `{"user_id": 1}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "An internal error occurred", resp.Error.Message)
	assert.NotContains(t, rr.Body.String(), "connection reset")
}

func TestCheckAllBadges(t *testing.T) {
	_, handler := setup(t)

	rr, resp := do(t, handler, http.MethodPost, "/api/v1/badges/check-all/7", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 2, resp.Meta.Count)
}

func TestReadEndpoints(t *testing.T) {
	_, handler := setup(t)

	for _, path := range []string{
		"/api/v1/badges",
		"/api/v1/badges/users/7",
		"/api/v1/badges/users/7/progress",
		"/api/v1/badges/leaderboard",
	} {
		t.Run(path, func(t *testing.T) {
			rr, resp := do(t, handler, http.MethodGet, path, "")
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.True(t, resp.Success)
			assert.Equal(t, "public, max-age=60", rr.Header().Get("Cache-Control"))
		})
	}
}

func TestGetLeaderboard_Limit(t *testing.T) {
	service, handler := setup(t)

	rr, _ := do(t, handler, http.MethodGet, "/api/v1/badges/leaderboard?limit=10", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, _ = do(t, handler, http.MethodGet, "/api/v1/badges/leaderboard", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, _ = do(t, handler, http.MethodGet, "/api/v1/badges/leaderboard?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	assert.Equal(t, []int{10, 0}, service.leaderboardArgs)
}

func TestMethodNotAllowed(t *testing.T) {
	service, handler := setup(t)

	rr, resp := do(t, handler, http.MethodGet, "/api/v1/badges/check/1", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "METHOD_NOT_ALLOWED", resp.Error.Code)

	rr, _ = do(t, handler, http.MethodDelete, "/api/v1/badges", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	assert.Empty(t, service.checkCalls, "handlers are not reached")
}

func TestUnknownRoute(t *testing.T) {
	_, handler := setup(t)

	rr, resp := do(t, handler, http.MethodPost, "/api/v1/badges/check/x1", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Type)
}
