package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"propverse/internal/config"
	"propverse/internal/docstore"
	"propverse/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeBroker struct {
	mu        sync.Mutex
	published []rabbitmq.PropertyEvent
	handler   func(rabbitmq.PropertyEvent) error
}

func (b *fakeBroker) PublishPropertyEvent(event rabbitmq.PropertyEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, event)
	// Loop the event back as the broker would.
	if b.handler != nil {
		return b.handler(event)
	}
	return nil
}

func (b *fakeBroker) ConsumePropertyEvents(handler func(rabbitmq.PropertyEvent) error) error {
	b.handler = handler
	return nil
}

func (b *fakeBroker) IsConnected() bool { return true }

func appConfig() *config.Config {
	return &config.Config{
		Env:           "test",
		MetricsPrefix: "app_test",
		SeedAmenities: true,
		JWT:           config.JWTConfig{Secret: "app-secret", Expiration: time.Hour},
		Events:        config.EventsConfig{RabbitMQURL: "amqp://unused", Consume: true},
	}
}

func memStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := docstore.New(afero.NewMemMapFs(), "/data")
	require.NoError(t, err)
	return NewDocStorage(store)
}

func post(t *testing.T, a *App, path, token string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.Fiber.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestNewPublishesAndConsumesPropertyEvents(t *testing.T) {
	broker := &fakeBroker{}
	a, err := New(appConfig(), zap.NewNop(), memStorage(t), broker)
	require.NoError(t, err)
	require.NotNil(t, broker.handler)

	resp := post(t, a, "/api/auth/register", "", map[string]any{
		"email": "events@example.com", "password": "secret123", "first_name": "Eve",
	})
	var registered struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&registered))
	resp.Body.Close()

	resp = post(t, a, "/api/properties", registered.Token, map[string]any{
		"title": "Studio", "property_type": "studio", "location": "Indiranagar", "city": "Bengaluru",
		"state": "Karnataka", "built_up_area": 400, "monthly_rent": 18000, "available_from": "2024-08-01",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, broker.published, 1)
	assert.Equal(t, rabbitmq.PropertyCreated, broker.published[0].Event)

	families, err := a.Metrics.Registry().Gather()
	require.NoError(t, err)
	var consumed float64
	for _, f := range families {
		if f.GetName() == "app_test_property_events_consumed_total" {
			consumed = f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, consumed)
}

func TestNewWithoutBroker(t *testing.T) {
	cfg := appConfig()
	cfg.SeedAmenities = false
	a, err := New(cfg, zap.NewNop(), memStorage(t), nil)
	require.NoError(t, err)

	resp, err := a.Fiber.Test(httptest.NewRequest(http.MethodGet, "/api/amenities", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body struct {
		Amenities []any `json:"amenities"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Empty(t, body.Amenities)
}

func TestOpenStorage(t *testing.T) {
	dir := t.TempDir()

	t.Run("file", func(t *testing.T) {
		s, err := OpenStorage(config.StorageConfig{Driver: config.DriverFile, DataDir: filepath.Join(dir, "docs")}, "test", zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, config.DriverFile, s.Name)
		assert.NoError(t, s.Close())
	})

	t.Run("sqlite", func(t *testing.T) {
		s, err := OpenStorage(config.StorageConfig{
			Driver:       config.DriverSQLite,
			DSN:          filepath.Join(dir, "propverse.db"),
			MaxIdleConns: 1,
			MaxOpenConns: 1,
		}, "test", zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, config.DriverSQLite, s.Name)
		amenities, err := s.Amenities.List()
		require.NoError(t, err)
		assert.Empty(t, amenities)
		assert.NoError(t, s.Close())
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := OpenStorage(config.StorageConfig{Driver: "cassandra"}, "test", zap.NewNop())
		assert.Error(t, err)
	})
}

func TestRecoverReturnsEnvelope(t *testing.T) {
	a, err := New(appConfig(), zap.NewNop(), memStorage(t), nil)
	require.NoError(t, err)
	a.Fiber.Get("/panic", func(*fiber.Ctx) error { panic("boom") })

	resp, err := a.Fiber.Test(httptest.NewRequest(http.MethodGet, "/panic", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["error"])
}

func TestGORMLogsGoThroughZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	db, err := gorm.Open(sqlite.Open("file:gormlog?mode=memory&cache=shared"), &gorm.Config{
		Logger: newGORMLogger(zap.New(core), "test"),
	})
	require.NoError(t, err)

	assert.Error(t, db.Exec("SELECT * FROM nowhere").Error)

	var notFound struct{ ID uint }
	require.NoError(t, db.Exec("CREATE TABLE things (id integer primary key)").Error)
	assert.ErrorIs(t, db.Table("things").First(&notFound).Error, gorm.ErrRecordNotFound)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "gorm", entries[0].LoggerName)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Contains(t, entries[0].Message, "no such table")
}
