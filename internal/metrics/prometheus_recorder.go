package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "docsync"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	patchOutcomes   *prom.CounterVec
	patchDuration   prom.Histogram
	regenerations   *prom.HistogramVec
	pending         prom.Gauge
	droppedComplete *prom.CounterVec
	inbound         *prom.CounterVec
	busyRefusals    prom.Counter
	revision        prom.Gauge
}

// NewPrometheusRecorder constructs the metrics and registers them on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		patchOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "patch_outcomes_total",
			Help:      "Section patch attempts by outcome and fallback reason",
		}, []string{"outcome", "reason"}),
		patchDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "patch_duration_seconds",
			Help:      "Time spent applying a section patch, fallbacks included",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}),
		regenerations: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "regeneration_seconds",
			Help:      "Time from regenerate request to its resolution",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}, []string{"result"}),
		pending: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_regenerations",
			Help:      "Regeneration requests awaiting a response (0 or 1)",
		}),
		droppedComplete: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_completions_total",
			Help:      "Section completions that matched no pending request",
		}, []string{"reason"}),
		inbound: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_messages_total",
			Help:      "Collaborator messages received by type",
		}, []string{"type"}),
		busyRefusals: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "busy_refusals_total",
			Help:      "Regeneration requests refused because one was already pending",
		}),
		revision: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "document_revision",
			Help:      "Current document revision",
		}),
	}
	reg.MustRegister(pr.patchOutcomes, pr.patchDuration, pr.regenerations, pr.pending,
		pr.droppedComplete, pr.inbound, pr.busyRefusals, pr.revision)
	return pr
}

func (p *PrometheusRecorder) IncPatchOutcome(outcome, reason string) {
	p.patchOutcomes.WithLabelValues(outcome, reason).Inc()
}

func (p *PrometheusRecorder) ObservePatchDuration(d time.Duration) {
	p.patchDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRegeneration(result RegenerationResult, d time.Duration) {
	p.regenerations.WithLabelValues(string(result)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetPending(n int) { p.pending.Set(float64(n)) }

func (p *PrometheusRecorder) IncDroppedCompletion(reason string) {
	p.droppedComplete.WithLabelValues(reason).Inc()
}

func (p *PrometheusRecorder) IncInbound(messageType string) {
	p.inbound.WithLabelValues(messageType).Inc()
}

func (p *PrometheusRecorder) IncBusyRefusal() { p.busyRefusals.Inc() }

func (p *PrometheusRecorder) SetRevision(rev uint64) { p.revision.Set(float64(rev)) }
