package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			if hasLabels(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func hasLabels(metric *dto.Metric, want map[string]string) bool {
	got := make(map[string]string)
	for _, lp := range metric.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	m := New("test")
	app := fiber.New()
	app.Use(m.Middleware())
	app.Get("/things/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})

	for _, path := range []string{"/things/1", "/things/2", "/boom"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		resp.Body.Close()
	}

	assert.Equal(t, 2.0, counterValue(t, m, "test_http_requests_total", map[string]string{"path": "/things/:id", "status": "204"}))
	assert.Equal(t, 1.0, counterValue(t, m, "test_http_requests_total", map[string]string{"path": "/boom", "status": "418"}))
	assert.Equal(t, 2.0, counterValue(t, m, "test_http_status_category_total", map[string]string{"category": "2xx"}))
	assert.Equal(t, 1.0, counterValue(t, m, "test_http_status_category_total", map[string]string{"category": "4xx"}))
}

func TestGuardAndEventCounters(t *testing.T) {
	m := New("test")
	m.GuardOutcome("authorized")
	m.GuardOutcome("authorized")
	m.GuardOutcome("no_header")
	m.EventConsumed("property.created")

	assert.Equal(t, 2.0, counterValue(t, m, "test_auth_guard_outcomes_total", map[string]string{"outcome": "authorized"}))
	assert.Equal(t, 1.0, counterValue(t, m, "test_auth_guard_outcomes_total", map[string]string{"outcome": "no_header"}))
	assert.Equal(t, 1.0, counterValue(t, m, "test_property_events_consumed_total", map[string]string{"event": "property.created"}))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New("test")
	m.GuardOutcome("user_inactive")

	app := fiber.New()
	app.Get("/metrics", m.Handler())
	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `test_auth_guard_outcomes_total{outcome="user_inactive"} 1`)
}
