package metrics

import (
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/fastygo/acreage/domain"
	"github.com/fastygo/acreage/pkg/retry"
)

const namespace = "acreage_auth"

// Metrics holds the Prometheus collectors of the session service.
type Metrics struct {
	Attempts    *prometheus.CounterVec
	Results     *prometheus.CounterVec
	Transitions *prometheus.CounterVec
	ProbeUp     *prometheus.GaugeVec
}

// NewMetrics registers every collector on registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		Attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attempts_total",
				Help:      "Remote auth attempts, including retries",
			},
			[]string{"operation", "outcome"},
		),
		Results: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Auth operations by final outcome",
			},
			[]string{"operation", "outcome"},
		),
		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "state_transitions_total",
				Help:      "Session state changes by auth event",
			},
			[]string{"event"},
		),
		ProbeUp: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "probe_up",
				Help:      "1 when the last health probe succeeded",
			},
			[]string{"probe"},
		),
	}
}

// NewRegistry creates a dedicated registry with the Go and process collectors.
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, NewMetrics(reg)
}

// Handler exposes reg in the Prometheus text format on fasthttp.
func Handler(reg prometheus.Gatherer) fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
}

func (m *Metrics) ObserveAttempt(operation string, err error) {
	m.Attempts.WithLabelValues(operation, Outcome(err)).Inc()
}

func (m *Metrics) ObserveResult(operation string, err error) {
	m.Results.WithLabelValues(operation, Outcome(err)).Inc()
}

func (m *Metrics) ObserveTransition(event domain.AuthEvent) {
	m.Transitions.WithLabelValues(string(event)).Inc()
}

// ObserveProbe records the latest result of a named health probe.
func (m *Metrics) ObserveProbe(probe string, ok bool) {
	v := 0.0
	if ok {
		v = 1
	}
	m.ProbeUp.WithLabelValues(probe).Set(v)
}

// Outcome turns an error into a low-cardinality label.
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	if errors.Is(err, retry.ErrAttemptTimeout) {
		return "timeout"
	}
	var dErr *domain.Error
	if errors.As(err, &dErr) {
		return strings.ToLower(string(dErr.Code))
	}
	return "error"
}
