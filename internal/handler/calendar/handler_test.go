package calendar

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduling-api/internal/middleware"
	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository/memory"
	"github.com/jwalitptl/scheduling-api/internal/scheduling"
	"github.com/jwalitptl/scheduling-api/internal/service/calendar"
)

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details json.RawMessage `json:"details"`
}

type testServer struct {
	engine *gin.Engine
	tenant uuid.UUID
	doctor *model.Resource
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, middleware.SetupValidation())

	store := memory.NewStore()
	tenant := uuid.New()
	doctor := &model.Resource{Base: model.Base{ID: uuid.New()}, TenantID: tenant, Kind: model.ResourceKindDoctor, Name: "Dr. Amal", Active: true}
	store.AddResource(doctor)

	svc := calendar.NewService(store.Calendar(), store.Resources(), scheduling.DefaultWeekConvention)
	engine := gin.New()
	api := engine.Group("/api/v1", middleware.Tenant(middleware.TenantConfig{}))
	NewHandler(svc).RegisterRoutes(api)

	return &testServer{engine: engine, tenant: tenant, doctor: doctor}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderXTenantID, s.tenant.String())
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w.Code, env
}

func (s *testServer) overridesPath(day string) string {
	path := "/api/v1/resources/" + s.doctor.ID.String() + "/overrides"
	if day != "" {
		path += "/" + day
	}
	return path
}

func TestBusinessCalendar(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodGet, "/api/v1/calendar", nil)
	require.Equal(t, http.StatusOK, code)
	var days []model.BusinessDay
	require.NoError(t, json.Unmarshal(env.Data, &days))
	require.Len(t, days, model.DaysPerWeek)
	assert.False(t, days[6].IsOpen)

	week := model.DefaultBusinessCalendar(s.tenant)
	week[0].IsOpen = false
	week[6].IsOpen = true
	week[6].StartTime = "14:00"
	code, env = s.do(t, http.MethodPut, "/api/v1/calendar", model.ReplaceCalendarRequest{Days: week})
	require.Equal(t, http.StatusOK, code, env.Message)
	require.NoError(t, json.Unmarshal(env.Data, &days))
	assert.False(t, days[0].IsOpen)
	assert.Equal(t, "14:00", days[6].StartTime)

	t.Run("rejects short week", func(t *testing.T) {
		code, env := s.do(t, http.MethodPut, "/api/v1/calendar", model.ReplaceCalendarRequest{Days: week[:6]})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "error", env.Status)
	})

	t.Run("rejects inverted hours", func(t *testing.T) {
		bad := model.DefaultBusinessCalendar(s.tenant)
		bad[1].StartTime = "22:00"
		code, _ := s.do(t, http.MethodPut, "/api/v1/calendar", model.ReplaceCalendarRequest{Days: bad})
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("rejects malformed clock", func(t *testing.T) {
		bad := model.DefaultBusinessCalendar(s.tenant)
		bad[1].EndTime = "25:00"
		code, env := s.do(t, http.MethodPut, "/api/v1/calendar", model.ReplaceCalendarRequest{Days: bad})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, string(env.Details), "clock")
	})
}

func TestOverridesAndWindow(t *testing.T) {
	s := newTestServer(t)
	available := true

	code, env := s.do(t, http.MethodPut, s.overridesPath("2"), model.UpsertOverrideRequest{
		StartTime: "07:00", EndTime: "12:30", IsAvailable: &available,
	})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = s.do(t, http.MethodGet, s.overridesPath(""), nil)
	require.Equal(t, http.StatusOK, code)
	var overrides []model.ScheduleOverride
	require.NoError(t, json.Unmarshal(env.Data, &overrides))
	require.Len(t, overrides, 1)
	assert.Equal(t, 2, overrides[0].DayIndex)

	// 2026-10-19 is a Monday, index 2.
	code, env = s.do(t, http.MethodGet, "/api/v1/calendar/window?date=2026-10-19&resource_id="+s.doctor.ID.String(), nil)
	require.Equal(t, http.StatusOK, code)
	var window model.DayWindow
	require.NoError(t, json.Unmarshal(env.Data, &window))
	assert.True(t, window.IsOpen)
	assert.Equal(t, "09:00", window.StartTime)
	assert.Equal(t, "12:30", window.EndTime)
	assert.Equal(t, string(scheduling.SourceOverride), window.Source)

	code, env = s.do(t, http.MethodGet, "/api/v1/calendar/window?date=2026-10-16", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &window))
	assert.False(t, window.IsOpen)
	assert.Equal(t, string(scheduling.SourceClosed), window.Source)

	code, _ = s.do(t, http.MethodDelete, s.overridesPath("2"), nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodDelete, s.overridesPath("2"), nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestOverrideValidation(t *testing.T) {
	s := newTestServer(t)
	available := true
	valid := model.UpsertOverrideRequest{StartTime: "10:00", EndTime: "12:00", IsAvailable: &available}

	tests := []struct {
		name string
		path string
		body interface{}
		want int
	}{
		{"day out of range", s.overridesPath("7"), valid, http.StatusBadRequest},
		{"day not a number", s.overridesPath("mon"), valid, http.StatusBadRequest},
		{"bad resource id", "/api/v1/resources/nope/overrides/1", valid, http.StatusBadRequest},
		{"unknown resource", "/api/v1/resources/" + uuid.NewString() + "/overrides/1", valid, http.StatusNotFound},
		{"missing availability", s.overridesPath("1"), map[string]string{"start_time": "10:00", "end_time": "12:00"}, http.StatusBadRequest},
		{"inverted window", s.overridesPath("1"), model.UpsertOverrideRequest{StartTime: "12:00", EndTime: "10:00", IsAvailable: &available}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := s.do(t, http.MethodPut, tt.path, tt.body)
			assert.Equal(t, tt.want, code, env.Message)
		})
	}
}
