package ddex

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	ddexerrors "github.com/daddykev/ddex-suite/errors"
)

type recorder interface {
	operation(op string, elapsed time.Duration, err error)
	diagnostics(list ddexerrors.List)
	iterations(total int, deterministic bool)
}

type nopRecorder struct{}

func (nopRecorder) operation(string, time.Duration, error) {}
func (nopRecorder) diagnostics(ddexerrors.List)            {}
func (nopRecorder) iterations(int, bool)                   {}

type promRecorder struct {
	ops         *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	diags       *prometheus.CounterVec
	determinism *prometheus.CounterVec
}

func newPromRecorder(r prometheus.Registerer) *promRecorder {
	p := &promRecorder{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ddex_operations_total",
			Help: "Operations by outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ddex_operation_duration_seconds",
			Help:    "Operation latency.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"operation"}),
		diags: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ddex_diagnostics_total",
			Help: "Diagnostics reported by parse and preflight.",
		}, []string{"code", "severity"}),
		determinism: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ddex_determinism_iterations_total",
			Help: "Determinism verification runs by outcome.",
		}, []string{"outcome"}),
	}
	p.ops = register(r, p.ops)
	p.duration = register(r, p.duration)
	p.diags = register(r, p.diags)
	p.determinism = register(r, p.determinism)
	return p
}

// register returns the collector already registered under the same
// descriptor, so options sharing a registerer share counters.
func register[C prometheus.Collector](r prometheus.Registerer, c C) C {
	if err := r.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (p *promRecorder) operation(op string, elapsed time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(ddexerrors.CodeOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	p.ops.WithLabelValues(op, outcome).Inc()
	p.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (p *promRecorder) diagnostics(list ddexerrors.List) {
	for _, d := range list {
		p.diags.WithLabelValues(string(d.Code), d.Severity.String()).Inc()
	}
}

func (p *promRecorder) iterations(total int, deterministic bool) {
	outcome := "identical"
	if !deterministic {
		outcome = "divergent"
	}
	p.determinism.WithLabelValues(outcome).Add(float64(total))
}

func (o Options) metrics() recorder {
	if o.recorder == nil {
		return nopRecorder{}
	}
	return o.recorder
}
