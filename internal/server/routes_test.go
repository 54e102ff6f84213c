package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	adactor "github.com/berfenger/goodwe2prom/internal/adapter/actor"
	"github.com/berfenger/goodwe2prom/internal/instrument"
	"github.com/berfenger/goodwe2prom/internal/util"
	"github.com/berfenger/goodwe2prom/internal/util/actorutil"
	"github.com/berfenger/goodwe2prom/pkg/aa55"
	"github.com/berfenger/goodwe2prom/pkg/goodwe"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func createTestServer(t *testing.T, reader goodwe.Reader, sets ...string) http.Handler {
	cfg := util.LoadTestConfig()
	logger := zap.NewNop()
	metrics := instrument.NewMetrics()

	as := actorutil.NewActorSystemWithZapLogger(logger)
	t.Cleanup(as.Shutdown)

	if len(sets) == 0 {
		sets = cfg.Inverter.Sets
	}
	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewInverterActor(reader, sets, 2*time.Second, metrics, logger)
	}))
	t.Cleanup(func() { as.Root.Stop(pid) })

	s := &Server{
		port:     cfg.Port,
		inverter: adactor.NewInverterClient(as.Root, pid, 5*time.Second),
		metrics:  metrics,
		logger:   logger,
	}
	return s.RegisterRoutes()
}

func get(handler http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestMetricsRoute(t *testing.T) {

	assert := assert.New(t)

	handler := createTestServer(t, goodwe.CreateTestReader())
	rec := get(handler, "/metrics")

	assert.Equal(http.StatusOK, rec.Code)
	assert.Equal(CONTENT_TYPE_EXPOSITION, rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(body, "# TYPE goodwe_voltage_pv_volts gauge\n")
	assert.Contains(body, `goodwe_voltage_pv_volts {mppt="pv1"} 352.1`)
	assert.Contains(body, `goodwe_meter_energy_total_kwh {type="export"} 2770.34`)
	assert.Equal(1, strings.Count(body, "# TYPE goodwe_temperature_celsius gauge\n"))
}

func TestMetricsRoutePartial(t *testing.T) {

	assert := assert.New(t)

	reader := goodwe.CreateTestReader()
	reader.MaxRegisters = 8
	handler := createTestServer(t, reader, goodwe.SET_BATTERY)
	rec := get(handler, "/metrics")

	assert.Equal(http.StatusOK, rec.Code)
	assert.Contains(rec.Body.String(), `goodwe_battery_state_ratio {type="State of Charge"} 64`)
	assert.Contains(rec.Body.String(), `goodwe_battery_state_ratio {type="State of Health"} 0`)
	assert.Contains(rec.Body.String(), `goodwe_battery_cell_voltage_volts {type="Min"} NaN`)
}

func TestMetricsRouteUnavailable(t *testing.T) {

	assert := assert.New(t)

	reader := goodwe.CreateTestReader()
	reader.Err = aa55.ErrChecksumMismatch
	handler := createTestServer(t, reader)
	rec := get(handler, "/metrics")

	assert.Equal(http.StatusServiceUnavailable, rec.Code)
	assert.Contains(rec.Body.String(), "base: aa55: crc-16 checksum wrong")
}

func TestHealthCheckRoute(t *testing.T) {

	assert := assert.New(t)

	reader := goodwe.CreateTestReader()
	handler := createTestServer(t, reader)

	rec := get(handler, "/healthcheck")
	assert.Equal(http.StatusOK, rec.Code)
	assert.Equal("health_check: OK", rec.Body.String())

	reader.Err = errors.New("unreachable")
	for i := 0; i < adactor.UNHEALTHY_AFTER_FAILURES; i++ {
		get(handler, "/metrics")
	}
	rec = get(handler, "/healthcheck")
	assert.Equal(http.StatusServiceUnavailable, rec.Code)
}

func TestInternalMetricsRoute(t *testing.T) {

	assert := assert.New(t)

	handler := createTestServer(t, goodwe.CreateTestReader())
	get(handler, "/metrics")
	rec := get(handler, "/internal/metrics")

	assert.Equal(http.StatusOK, rec.Code)
	assert.Contains(rec.Body.String(), `goodwe_exporter_decoded_metrics{set="battery"} 23`)
	assert.Contains(rec.Body.String(), "go_goroutines")
}

func TestRootRouteServesMetrics(t *testing.T) {

	assert := assert.New(t)

	handler := createTestServer(t, goodwe.CreateTestReader())
	rec := get(handler, "/")

	assert.Equal(http.StatusOK, rec.Code)
	assert.Equal(CONTENT_TYPE_EXPOSITION, rec.Header().Get("Content-Type"))
	assert.Contains(rec.Body.String(), `goodwe_voltage_pv_volts {mppt="pv1"} 352.1`)
	assert.Contains(rec.Body.String(), "goodwe_rssi {} ")
}
