package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"hydrowangi-backend/config"
	"hydrowangi-backend/internal/actuator"
	"hydrowangi-backend/internal/alert"
	"hydrowangi-backend/internal/db"
	"hydrowangi-backend/internal/ingest"
	"hydrowangi-backend/internal/metrics"
	"hydrowangi-backend/internal/store"
	"hydrowangi-backend/internal/threshold"
)

const (
	deviceSecret = "device-secret"
	jwtSecret    = "jwt-secret"
)

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []alert.Alert
}

func (n *recordingNotifier) Notify(ctx context.Context, a alert.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, a)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

type testServer struct {
	router   *gin.Engine
	handler  *Handler
	store    store.Store
	notifier *recordingNotifier
	token    string
}

func newTestServer(t *testing.T, webpushOpts *webpush.Options) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(gdb))

	cfg := &config.Config{}
	cfg.Auth.DeviceSecret = deviceSecret
	cfg.Auth.JWTSecret = jwtSecret
	cfg.Server.RateLimitPerSec = 1000
	cfg.Server.RateLimitBurst = 1000
	config.ApplyDefaults(cfg)
	low, high := cfg.Telemetry.FallbackBand()

	s := store.NewGormStore(gdb)
	n := &recordingNotifier{}
	m := metrics.New()
	svc := ingest.NewService(s, ingest.Options{
		DeviceID: cfg.Telemetry.DeviceID,
		Evaluator: threshold.Evaluator{
			PHDelta:       cfg.Telemetry.PHDelta,
			PPMDelta:      cfg.Telemetry.PPMDelta,
			TempDelta:     cfg.Telemetry.TempDelta,
			BandHalfWidth: cfg.Telemetry.BandHalfWidth,
			DefaultBand:   threshold.Band{Low: low, High: high},
		},
		Monitor: alert.NewMonitor(alert.Config{Cooldown: cfg.Alert.Cooldown}, n),
		Metrics: m,
	})
	ctrl := actuator.NewController(s, actuator.Options{
		DeviceID: cfg.Telemetry.DeviceID,
		Durations: map[actuator.Name]time.Duration{
			actuator.Nutrient:  20 * time.Millisecond,
			actuator.Pesticide: 20 * time.Millisecond,
		},
	})

	h := NewHandler(Deps{
		Store:     s,
		Ingest:    svc,
		Actuators: ctrl,
		Metrics:   m,
		WebPush:   webpushOpts,
		PageLimit: cfg.Telemetry.PageLimit,
	})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin",
		"aud": cfg.Auth.JWTAudience,
		"iss": cfg.Auth.JWTIssuer,
		"iat": time.Now().Unix(),
	}).SignedString([]byte(jwtSecret))
	require.NoError(t, err)

	return &testServer{
		router:   NewRouter(ctx, h, cfg),
		handler:  h,
		store:    s,
		notifier: n,
		token:    token,
	}
}

type reqOpt func(*http.Request)

func withDevice(r *http.Request) { r.Header.Set("x-secret-key", deviceSecret) }

func (ts *testServer) withBearer(r *http.Request) {
	r.Header.Set("Authorization", "Bearer "+ts.token)
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}, opts ...reqOpt) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for _, o := range opts {
		o(req)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["ok"])
}

func TestTelemetry_Auth(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodPost, "/telemetry", gin.H{"ph": 6.5, "ppm": 1150, "temp": 24})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"ok":false,"message":"Unauthorized"}`, w.Body.String())

	w = ts.do(t, http.MethodGet, "/telemetries", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTelemetry_MissingField(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodPost, "/telemetry", gin.H{"ph": 6.5, "ppm": 1150}, withDevice)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing required fields (ph, ppm, temp)", decode(t, w)["message"])
}

func TestTelemetry_IngestFlow(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodPost, "/planted", gin.H{
		"slot":  1,
		"plant": gin.H{"name": "Selada", "tds": 1200, "harvestDays": 30},
	}, ts.withBearer)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/ppm", nil, withDevice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1200.0, decode(t, w)["ppm"])

	w = ts.do(t, http.MethodPost, "/telemetry", gin.H{"ph": 6.5, "ppm": 1150, "temp": 24}, withDevice)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "saved", body["action"])
	assert.NotEmpty(t, body["id"])
	assert.Equal(t, false, body["danger"].(map[string]interface{})["isDanger"])

	w = ts.do(t, http.MethodPost, "/telemetry", gin.H{"ph": 6.5, "ppm": 1160, "temp": 24}, withDevice)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	assert.Equal(t, "skipped", body["action"])
	assert.Equal(t, 1160.0, body["live"].(map[string]interface{})["ppm"])

	w = ts.do(t, http.MethodPost, "/telemetry", gin.H{"ph": 6.5, "ppm": 950, "temp": 24}, withDevice)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body = decode(t, w)
	assert.Equal(t, true, body["danger"].(map[string]interface{})["isDanger"])
	assert.Equal(t, true, body["alert"].(map[string]interface{})["notified"])
	assert.Equal(t, 1, ts.notifier.count())

	w = ts.do(t, http.MethodGet, "/telemetry/latest", nil, ts.withBearer)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "live", body["source"])
	assert.Equal(t, 950.0, body["data"].(map[string]interface{})["ppm"])

	w = ts.do(t, http.MethodGet, "/telemetries?page=1&limit=1", nil, ts.withBearer)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Len(t, body["data"], 1)
	assert.Equal(t, 950.0, body["data"].([]interface{})[0].(map[string]interface{})["ppm"])
	pagination := body["pagination"].(map[string]interface{})
	assert.Equal(t, 2.0, pagination["totalCount"])
	assert.Equal(t, 2.0, pagination["totalPages"])
	assert.Equal(t, true, pagination["hasNext"])
	assert.Equal(t, false, pagination["hasPrev"])

	w = ts.do(t, http.MethodGet, "/telemetries/download", nil, ts.withBearer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2.0, decode(t, w)["count"])

	w = ts.do(t, http.MethodDelete, "/telemetries", nil, ts.withBearer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2.0, decode(t, w)["deletedCount"])

	w = ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `hydro_telemetry_readings_total{action="saved"} 2`)
	assert.Contains(t, w.Body.String(), `hydro_ppm_alerts_total{outcome="notified"} 1`)
}

func TestTelemetry_LatestFallsBackToStored(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/telemetry/latest", nil, ts.withBearer)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, "/ppm", nil, withDevice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.0, decode(t, w)["ppm"])
}

func TestPlants_CRUD(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/api/plants", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/plants", gin.H{"name": "Selada", "tds": 1200, "harvestDays": 30})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodPost, "/api/plants", gin.H{"tds": 1200}, ts.withBearer)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/plants", gin.H{"name": "Selada", "tds": 1200, "harvestDays": 30}, ts.withBearer)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := int64(decode(t, w)["id"].(float64))

	// The write flushed the cached empty list.
	w = ts.do(t, http.MethodGet, "/api/plants", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var plants []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plants))
	require.Len(t, plants, 1)
	assert.Equal(t, "Selada", plants[0]["name"])

	w = ts.do(t, http.MethodPut, fmt.Sprintf("/api/plants/%d", id), gin.H{"name": "Selada", "tds": 1100, "harvestDays": 28}, ts.withBearer)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1100.0, decode(t, w)["tds"])

	w = ts.do(t, http.MethodGet, fmt.Sprintf("/api/plants/%d", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 28.0, decode(t, w)["harvestDays"])

	w = ts.do(t, http.MethodGet, "/api/plants/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/plants", gin.H{"name": "Selada"}, ts.withBearer)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/plants", gin.H{"name": "Selada"}, ts.withBearer)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Plant not found", decode(t, w)["message"])
}

func TestPlanted_Lifecycle(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/planted", nil, ts.withBearer)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPost, "/api/plants", gin.H{"name": "Bayam", "tds": 1000, "harvestDays": 25}, ts.withBearer)
	require.Equal(t, http.StatusCreated, w.Code)
	plantID := int64(decode(t, w)["id"].(float64))

	w = ts.do(t, http.MethodPost, "/planted", gin.H{"slot": 2, "plantId": plantID}, ts.withBearer)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	cycleID := int64(body["id"].(float64))
	assert.Equal(t, "growing", body["status"])
	assert.Equal(t, "Bayam", body["plant"].(map[string]interface{})["name"])

	w = ts.do(t, http.MethodPost, "/planted", gin.H{"slot": 2, "plantId": plantID}, ts.withBearer)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/planted", gin.H{"slot": 3, "plantId": plantID}, ts.withBearer)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/planted", gin.H{"slot": 1}, ts.withBearer)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/planted/slot/2", nil, ts.withBearer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(cycleID), decode(t, w)["id"])

	w = ts.do(t, http.MethodGet, "/planted/slot/1", nil, ts.withBearer)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPost, "/harvest/2", nil, ts.withBearer)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body = decode(t, w)
	assert.Equal(t, "Belum waktunya panen", body["message"])
	assert.Greater(t, body["remaining"].(float64), float64(24*time.Hour/time.Millisecond))

	past := time.Now().Add(-time.Minute).UTC()
	w = ts.do(t, http.MethodPut, fmt.Sprintf("/planted/%d", cycleID), gin.H{"harvestTime": past}, ts.withBearer)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "ready", decode(t, w)["status"])

	w = ts.do(t, http.MethodGet, fmt.Sprintf("/planted/%d", cycleID), nil, ts.withBearer)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/harvest/2", nil, ts.withBearer)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	assert.Equal(t, "Panen berhasil!", body["message"])
	assert.Equal(t, "Bayam", body["harvestedPlant"].(map[string]interface{})["name"])

	w = ts.do(t, http.MethodPost, "/harvest/2", nil, ts.withBearer)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodDelete, fmt.Sprintf("/planted/%d", cycleID), nil, ts.withBearer)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHarvest_WithoutSlot(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodPost, "/harvest", nil, ts.withBearer)
	assert.Equal(t, http.StatusNotFound, w.Code)

	for slot, name := range map[int]string{1: "Selada", 2: "Bayam"} {
		w = ts.do(t, http.MethodPost, "/planted", gin.H{
			"slot":  slot,
			"plant": gin.H{"name": name, "tds": 1000, "harvestDays": 25},
		}, ts.withBearer)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w = ts.do(t, http.MethodPost, "/harvest", nil, ts.withBearer)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Belum waktunya panen", decode(t, w)["message"])

	w = ts.do(t, http.MethodGet, "/planted/slot/2", nil, ts.withBearer)
	require.Equal(t, http.StatusOK, w.Code)
	bayamID := int64(decode(t, w)["id"].(float64))
	past := time.Now().Add(-time.Minute).UTC()
	w = ts.do(t, http.MethodPut, fmt.Sprintf("/planted/%d", bayamID), gin.H{"harvestTime": past}, ts.withBearer)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Slot 1 is still growing, so the ready slot 2 is harvested.
	w = ts.do(t, http.MethodPost, "/harvest", nil, ts.withBearer)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, float64(2), body["slot"])
	assert.Equal(t, "Bayam", body["harvestedPlant"].(map[string]interface{})["name"])

	w = ts.do(t, http.MethodGet, "/planted/slot/1", nil, ts.withBearer)
	assert.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodGet, "/planted/slot/2", nil, ts.withBearer)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestActuators(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/nutrition-pump", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["nutritionOn"])

	w = ts.do(t, http.MethodPost, "/nutrition-pump", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodPost, "/nutrition-pump", nil, ts.withBearer)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Selesai Dinyalakan ✅", decode(t, w)["message"])

	// By the time the response arrives the pump is off again.
	w = ts.do(t, http.MethodGet, "/nutrition-pump", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["nutritionOn"])
	assert.Equal(t, false, body["on"])

	w = ts.do(t, http.MethodPost, "/pesticide", nil, ts.withBearer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Selesai disemprot ✅", decode(t, w)["message"])

	w = ts.do(t, http.MethodGet, "/pesticide", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["pesticideOn"])
}

func TestActuators_PollDuringActivation(t *testing.T) {
	ts := newTestServer(t, nil)
	require.NoError(t, ts.handler.actuators.SetDuration(actuator.Pesticide, 300*time.Millisecond))

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/pesticide", nil)
		ts.withBearer(req)
		w := httptest.NewRecorder()
		ts.router.ServeHTTP(w, req)
		done <- w
	}()

	// The device keeps polling while the sprayer runs.
	var polled time.Duration
	require.Eventually(t, func() bool {
		start := time.Now()
		w := httptest.NewRecorder()
		ts.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/pesticide", nil))
		polled = time.Since(start)
		var st struct {
			On bool `json:"on"`
		}
		return w.Code == http.StatusOK && json.Unmarshal(w.Body.Bytes(), &st) == nil && st.On
	}, 250*time.Millisecond, 5*time.Millisecond)
	assert.Less(t, polled, 100*time.Millisecond, "status poll must not wait for the activation")

	w := ts.do(t, http.MethodGet, "/nutrition-pump", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["on"])

	select {
	case w := <-done:
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	case <-time.After(2 * time.Second):
		t.Fatal("activation did not complete")
	}
	w = ts.do(t, http.MethodGet, "/pesticide", nil)
	assert.Equal(t, false, decode(t, w)["on"])
}

func TestPumpDuration(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodPost, "/pump-duration", gin.H{"type": "air", "duration": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Jenis pompa tidak valid", decode(t, w)["message"])

	w = ts.do(t, http.MethodPost, "/pump-duration", gin.H{"type": "nutrisi", "duration": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Durasi harus lebih dari 0", decode(t, w)["message"])

	for _, huge := range []float64{3601, 9e9, 1e11} {
		w = ts.do(t, http.MethodPost, "/pump-duration", gin.H{"type": "nutrisi", "duration": huge})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Durasi maksimal 3600 detik", decode(t, w)["message"], "duration %g", huge)
	}
	d, err := ts.handler.actuators.Duration(actuator.Nutrient)
	require.NoError(t, err)
	assert.Equal(t, 20*time.Millisecond, d, "rejected values leave the duration unchanged")

	w = ts.do(t, http.MethodPost, "/pump-duration", gin.H{"type": "pestisida", "duration": 0.05})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"type":"pestisida","duration":0.05}`, w.Body.String())

	d, err = ts.handler.actuators.Duration(actuator.Pesticide)
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, d)
}

func TestSubscriptions(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodPut, "/api/subscriptions", gin.H{"endpoint": "https://push.example.com/abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, decode(t, w)["ok"])

	w = ts.do(t, http.MethodPut, "/api/subscriptions", gin.H{
		"endpoint": "https://push.example.com/abc",
		"p256dh":   "key",
		"auth":     "secret",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(t, http.MethodGet, "/api/subscriptions?endpoint=https://push.example.com/abc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://push.example.com/abc", decode(t, w)["endpoint"])

	w = ts.do(t, http.MethodGet, "/api/subscriptions", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/subscriptions", gin.H{"endpoint": "https://push.example.com/abc"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodGet, "/api/subscriptions?endpoint=https://push.example.com/abc", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVAPIDPublicKey(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.do(t, http.MethodGet, "/api/vapid_public_key", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	ts = newTestServer(t, &webpush.Options{VAPIDPublicKey: "pub"})
	w = ts.do(t, http.MethodGet, "/api/vapid_public_key", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pub", decode(t, w)["public_key"])
}
