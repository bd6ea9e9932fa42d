package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.IncPatchOutcome("applied", "")
	pr.IncPatchOutcome("failed_fallback", "not_found")
	pr.IncPatchOutcome("failed_fallback", "not_found")
	pr.ObservePatchDuration(3 * time.Millisecond)
	pr.ObserveRegeneration(RegenerationPatched, 4*time.Second)
	pr.SetPending(1)
	pr.IncDroppedCompletion("stale")
	pr.IncInbound("status")
	pr.IncBusyRefusal()
	pr.SetRevision(7)

	require.InDelta(t, 2, valueOf(t, pr.patchOutcomes.WithLabelValues("failed_fallback", "not_found")), 0)
	require.InDelta(t, 1, valueOf(t, pr.pending), 0)
	require.InDelta(t, 7, valueOf(t, pr.revision), 0)
	require.InDelta(t, 1, valueOf(t, pr.busyRefusals), 0)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)
}

func valueOf(t *testing.T, m prom.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	switch {
	case out.Counter != nil:
		return out.Counter.GetValue()
	case out.Gauge != nil:
		return out.Gauge.GetValue()
	}
	t.Fatalf("unsupported metric %v", m.Desc())
	return 0
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.SetRevision(3)

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "docsync_document_revision 3"))
}

func TestNoopRecorderSatisfiesRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.IncPatchOutcome("applied", "")
	r.SetPending(0)
}
