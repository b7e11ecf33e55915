package internal

import (
	"net/http"
	"net/http/httptest"
	"rankview/internal/controllers"
	"rankview/internal/structures"
	"rankview/internal/testutil"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestHandler(metricsEnabled bool) (http.Handler, *testutil.MockMetrics) {
	conf := &structures.Config{
		Metrics:  structures.MetricsConfig{Enabled: metricsEnabled},
		Upstream: structures.UpstreamConfig{BaseURL: "http://ranking.test"},
	}
	svc := &testutil.MockLeaderboardService{}
	metrics := testutil.NewMockMetrics()
	lc := controllers.NewLeaderboardController(&testutil.MockLogger{}, svc)
	hc := controllers.NewHealthController(svc, conf)
	return NewHandler(hc, conf, InitRoutes(lc), metrics), metrics
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func TestNewHandler_Health(t *testing.T) {
	h, metrics := newTestHandler(false)

	assert.Equal(t, http.StatusOK, get(h, "/health").Code)
	assert.Empty(t, metrics.Requests, "infrastructure endpoints are not instrumented")
}

func TestNewHandler_MetricsToggle(t *testing.T) {
	h, _ := newTestHandler(false)
	assert.Equal(t, http.StatusNotFound, get(h, "/metrics").Code)

	h, _ = newTestHandler(true)
	assert.Equal(t, http.StatusOK, get(h, "/metrics").Code)
}

func TestNewHandler_LabelsByRoutePattern(t *testing.T) {
	h, metrics := newTestHandler(false)

	assert.Equal(t, http.StatusOK, get(h, "/leaderboard/funder?page=2").Code)
	assert.Equal(t, http.StatusOK, get(h, "/leaderboard/reviewer?page=7").Code)
	assert.Equal(t, http.StatusOK, get(h, "/leaderboard/reviewer/me").Code)
	assert.Equal(t, http.StatusNotFound, get(h, "/nowhere").Code)

	assert.Equal(t, 2, metrics.Requests["/leaderboard/{kind}"])
	assert.Equal(t, 1, metrics.Requests["/leaderboard/{kind}/me"])
	assert.Equal(t, 1, metrics.Requests["unmatched"])
}
