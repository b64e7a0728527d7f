package api

import (
	"apexfolio-bot-go/internal/models"
	"apexfolio-bot-go/internal/persistence"
	"apexfolio-bot-go/internal/statemanager"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnvelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields"`
}

// failingService fails every call with err and counts writes.
type failingService struct {
	err    error
	writes int
}

func (f *failingService) GetDashboardData(context.Context) (*models.DashboardData, error) {
	return nil, f.err
}
func (f *failingService) GetTrades(context.Context) ([]models.Trade, error)  { return nil, f.err }
func (f *failingService) GetLogs(context.Context) ([]models.LogEntry, error) { return nil, f.err }
func (f *failingService) GetSettings(context.Context) (*models.BotSettings, error) {
	return nil, f.err
}
func (f *failingService) UpdateSettings(context.Context, models.BotSettings) (*models.BotSettings, error) {
	f.writes++
	return nil, f.err
}
func (f *failingService) SetBotStatus(context.Context, models.BotStatus) error {
	f.writes++
	return f.err
}

func newTestRouter(t *testing.T) (*gin.Engine, *statemanager.StateManager, *Metrics) {
	t.Helper()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sm := statemanager.NewStateManager(persistence.NewMemoryRepository(), zap.NewNop(),
		statemanager.WithClock(func() time.Time { return now }))
	metrics := NewMetrics()
	router := NewRouter(sm, zap.NewNop(), RouterOptions{Mode: gin.TestMode, Metrics: metrics, AllowedOrigins: []string{"http://localhost:3000"}})
	return router, sm, metrics
}

func do(t *testing.T, router http.Handler, method, path, body string) (*httptest.ResponseRecorder, testEnvelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env testEnvelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestGetDashboardSeedsAndDerives(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w, env := do(t, router, http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, env.Success)

	var data models.DashboardData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, models.StatusStopped, data.BotStatus)
	assert.Len(t, data.Performance, 30)
	assert.Len(t, data.RecentTrades, 5)
	last := data.Performance[len(data.Performance)-1].Value
	assert.Equal(t, last, data.PortfolioValue)
	assert.InDelta(t, last-data.Performance[0].Value, data.TotalPL, 1e-9)
}

func TestGetCollections(t *testing.T) {
	router, _, _ := newTestRouter(t)

	_, env := do(t, router, http.MethodGet, "/api/trades", "")
	var trades []models.Trade
	require.NoError(t, json.Unmarshal(env.Data, &trades))
	assert.Len(t, trades, 50)

	_, env = do(t, router, http.MethodGet, "/api/logs", "")
	var logs []models.LogEntry
	require.NoError(t, json.Unmarshal(env.Data, &logs))
	assert.Len(t, logs, 6)

	_, env = do(t, router, http.MethodGet, "/api/settings", "")
	var settings models.BotSettings
	require.NoError(t, json.Unmarshal(env.Data, &settings))
	assert.Equal(t, statemanager.DefaultSettings(), settings)
}

func TestUpdateSettingsNormalizesAndPersists(t *testing.T) {
	router, sm, _ := newTestRouter(t)

	w, env := do(t, router, http.MethodPost, "/api/settings",
		`{"strategy":"arbitrage","riskPercentage":"2.5","targetAssets":"tsla, nvda"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, env.Success)

	var echoed models.BotSettings
	require.NoError(t, json.Unmarshal(env.Data, &echoed))
	want := models.BotSettings{Strategy: models.StrategyArbitrage, RiskPercentage: 2.5, TargetAssets: []string{"TSLA", "NVDA"}}
	assert.Equal(t, want, echoed)

	stored, err := sm.GetSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, *stored)
}

func TestUpdateSettingsRejectsInvalidBody(t *testing.T) {
	router, sm, _ := newTestRouter(t)
	before, err := sm.GetSettings(context.Background())
	require.NoError(t, err)

	w, env := do(t, router, http.MethodPost, "/api/settings",
		`{"strategy":"momentum","riskPercentage":0.05,"targetAssets":" , "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "Validation failed", env.Error)
	assert.Equal(t, "Risk must be at least 0.1%", env.Fields["riskPercentage"])
	assert.Equal(t, "At least one asset is required", env.Fields["targetAssets"])

	after, err := sm.GetSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, after, "rejected settings must not be written")
}

func TestUpdateSettingsRejectsMalformedJSON(t *testing.T) {
	service := &failingService{}
	router := NewRouter(service, zap.NewNop(), RouterOptions{Mode: gin.TestMode})

	w, env := do(t, router, http.MethodPost, "/api/settings", `{"strategy":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
	assert.Zero(t, service.writes)
}

func TestStartStopAcknowledge(t *testing.T) {
	router, sm, _ := newTestRouter(t)

	_, env := do(t, router, http.MethodPost, "/api/bot/start", "")
	assert.JSONEq(t, `{"status":"started"}`, string(env.Data))
	data, err := sm.GetDashboardData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusRunning, data.BotStatus)

	_, env = do(t, router, http.MethodPost, "/api/bot/start", "")
	assert.True(t, env.Success)

	_, env = do(t, router, http.MethodPost, "/api/bot/stop", "")
	assert.JSONEq(t, `{"status":"stopped"}`, string(env.Data))
	data, err = sm.GetDashboardData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusStopped, data.BotStatus)
}

func TestServiceErrorsBecome500(t *testing.T) {
	router := NewRouter(&failingService{err: errors.New("disk on fire")}, zap.NewNop(), RouterOptions{Mode: gin.TestMode})

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/dashboard"},
		{http.MethodGet, "/api/trades"},
		{http.MethodGet, "/api/logs"},
		{http.MethodGet, "/api/settings"},
		{http.MethodPost, "/api/bot/start"},
		{http.MethodPost, "/api/bot/stop"},
	} {
		w, env := do(t, router, tc.method, tc.path, "")
		assert.Equal(t, http.StatusInternalServerError, w.Code, tc.path)
		assert.False(t, env.Success, tc.path)
		assert.Equal(t, "disk on fire", env.Error, tc.path)
		assert.Nil(t, env.Data, tc.path)
	}

	w, env := do(t, router, http.MethodPost, "/api/settings", `{"strategy":"momentum","riskPercentage":1,"targetAssets":"AAPL"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "disk on fire", env.Error)
}

func TestHealth(t *testing.T) {
	router, _, _ := newTestRouter(t)
	w, env := do(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, string(env.Data))

	broken := NewRouter(&failingService{err: errors.New("unreachable")}, zap.NewNop(), RouterOptions{Mode: gin.TestMode})
	w, env = do(t, broken, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unreachable", env.Error)
}

func TestMetricsExposition(t *testing.T) {
	router, _, _ := newTestRouter(t)
	do(t, router, http.MethodGet, "/api/trades", "")
	do(t, router, http.MethodPost, "/api/bot/start", "")

	w, _ := do(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `apexfolio_http_requests_total{method="GET",route="/api/trades",status="200"} 1`)
	assert.Contains(t, body, `apexfolio_bot_status{status="running"} 1`)
	assert.Contains(t, body, `apexfolio_bot_status{status="stopped"} 0`)
	assert.Contains(t, body, "apexfolio_http_request_duration_seconds")
}

func TestMiddleware(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	req.Header.Set("X-Request-ID", "req-42")
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	w, _ = do(t, router, http.MethodGet, "/api/settings", "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w, env := do(t, router, http.MethodGet, "/api/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)
}

func TestRecoveryReturnsEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Recovery(zap.NewNop()))
	router.GET("/boom", func(c *gin.Context) { panic("boom") })

	w, env := do(t, router, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", env.Error)
}
