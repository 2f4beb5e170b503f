package metrics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itmScreener/internal/domain"
)

func TestMetrics_Observations(t *testing.T) {
	m := NewMetrics()

	m.ObserveRun("SPY", domain.OutcomeCompleted, 2*time.Second)
	m.ObserveRun("SPY", domain.OutcomeCompleted, time.Second)
	m.ObserveRun("SPY", domain.OutcomeNoCandidates, time.Second)
	m.ObserveSignal("SPY", domain.SignalReversalBounce)
	m.ObserveCandidates("SPY", 7)
	m.ObserveNotification("telegram", "sent")
	m.ObserveStage("fetch_bars", 150*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("SPY", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("SPY", "no_candidates")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SignalsTotal.WithLabelValues("SPY", "reversal_bounce")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.Candidates.WithLabelValues("SPY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("telegram", "sent")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.StageDuration))
}

func TestMetrics_ObserveBreaker(t *testing.T) {
	m := NewMetrics()

	m.ObserveBreaker("polygon", gobreaker.StateClosed, gobreaker.StateOpen)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("polygon")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CircuitBreakerTrips.WithLabelValues("polygon")))

	m.ObserveBreaker("polygon", gobreaker.StateOpen, gobreaker.StateHalfOpen)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("polygon")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CircuitBreakerTrips.WithLabelValues("polygon")))
}

func TestExporter_Textfile(t *testing.T) {
	m := NewMetrics()
	m.ObserveRun("SPY", domain.OutcomeCompleted, time.Second)
	path := filepath.Join(t.TempDir(), "screener.prom")

	require.NoError(t, Exporter{TextfilePath: path}.Export(m))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `itm_screener_run_total{outcome="completed",symbol="SPY"} 1`)
}

func TestExporter_Pushgateway(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMetrics()
	m.ObserveRun("SPY", domain.OutcomeCompleted, time.Second)

	require.NoError(t, Exporter{PushgatewayURL: srv.URL, Job: "screener"}.Export(m))
	assert.True(t, strings.HasPrefix(gotPath, "/metrics/job/screener"))
}

func TestExporter_Noop(t *testing.T) {
	assert.NoError(t, Exporter{}.Export(NewMetrics()))
}
