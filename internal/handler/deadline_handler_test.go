package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taxengine/internal/apperror"
	"taxengine/internal/service"
	"taxengine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockDeadlineService implements service.DeadlineService for testing.
type mockDeadlineService struct {
	calculateFn func(ctx context.Context, obligationType string, triggerDate time.Time, clientID *uuid.UUID) (*service.CalculateDeadlineResult, error)
}

func (m *mockDeadlineService) CalculateDeadline(ctx context.Context, obligationType string, triggerDate time.Time, clientID *uuid.UUID) (*service.CalculateDeadlineResult, error) {
	return m.calculateFn(ctx, obligationType, triggerDate, clientID)
}

func newDeadlineTestRouter(svc service.DeadlineService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewDeadlineHandler(svc)
	router.GET("/api/deadlines/calculate", h.CalculateDeadline)
	return router
}

func TestCalculateDeadlineEndpoint(t *testing.T) {
	svc := &mockDeadlineService{
		calculateFn: func(ctx context.Context, obligationType string, triggerDate time.Time, clientID *uuid.UUID) (*service.CalculateDeadlineResult, error) {
			assert.Equal(t, "GST", obligationType)
			assert.Equal(t, time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC), triggerDate)
			assert.Nil(t, clientID)
			return &service.CalculateDeadlineResult{
				TaxObligationType: obligationType,
				TriggerDate:       "2025-03-31",
				DeadlineDate:      "2025-04-21",
				TotalDays:         21,
			}, nil
		},
	}
	router := newDeadlineTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/deadlines/calculate?tax_obligation_type=GST&trigger_date=2025-03-31", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)

	data, ok := body.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "2025-04-21", data["deadline_date"])
}

func TestCalculateDeadlineEndpointMissingObligation(t *testing.T) {
	router := newDeadlineTestRouter(&mockDeadlineService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/deadlines/calculate?trigger_date=2025-03-31", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, string(apperror.KindValidation), body.ErrorKind)
}

func TestCalculateDeadlineEndpointBadTriggerDate(t *testing.T) {
	router := newDeadlineTestRouter(&mockDeadlineService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/deadlines/calculate?tax_obligation_type=GST&trigger_date=31-03-2025", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCalculateDeadlineEndpointNoApplicableRule(t *testing.T) {
	svc := &mockDeadlineService{
		calculateFn: func(ctx context.Context, obligationType string, triggerDate time.Time, clientID *uuid.UUID) (*service.CalculateDeadlineResult, error) {
			return nil, apperror.NoApplicableRule("no active deadline rule for %s", obligationType)
		},
	}
	router := newDeadlineTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/deadlines/calculate?tax_obligation_type=FBT&trigger_date=2025-03-31", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, string(apperror.KindNoApplicableRule), body.ErrorKind)
}
