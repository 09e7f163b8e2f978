package host

import (
	"github.com/cfxwasm/sdk/domain/entities"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects runtime counters. A nil *Metrics records nothing, so
// runtimes without WithMetrics pay only a nil check.
type Metrics struct {
	nativeCalls   *prometheus.CounterVec
	refCalls      *prometheus.CounterVec
	bufferResizes *prometheus.CounterVec
	events        *prometheus.CounterVec
	ticks         *prometheus.CounterVec
	guestErrors   *prometheus.CounterVec
}

// NewMetrics creates the runtime metrics and registers them with reg.
// Several runtimes may share one Metrics; series are labeled by resource.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		nativeCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cfxwasm",
				Subsystem: "host",
				Name:      "native_calls_total",
				Help:      "Native calls made by guests, by resulting status",
			},
			[]string{"resource", "status"},
		),
		refCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cfxwasm",
				Subsystem: "host",
				Name:      "ref_calls_total",
				Help:      "External ref function calls made by guests, by resulting status",
			},
			[]string{"resource", "status"},
		),
		bufferResizes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cfxwasm",
				Subsystem: "host",
				Name:      "return_buffer_resizes_total",
				Help:      "Return buffer growth requests sent to guests",
			},
			[]string{"resource"},
		),
		events: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cfxwasm",
				Subsystem: "host",
				Name:      "events_delivered_total",
				Help:      "Events delivered into guests",
			},
			[]string{"resource"},
		),
		ticks: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cfxwasm",
				Subsystem: "host",
				Name:      "ticks_total",
				Help:      "Scheduler ticks delivered to guests",
			},
			[]string{"resource"},
		),
		guestErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cfxwasm",
				Subsystem: "host",
				Name:      "guest_errors_total",
				Help:      "Guest export calls that trapped or failed",
			},
			[]string{"resource", "export"},
		),
	}
}

func statusLabel(s entities.CallStatus) string {
	if s >= 0 {
		return entities.StatusSuccess.String()
	}
	return s.String()
}

func (m *Metrics) observeNative(resource string, s entities.CallStatus) {
	if m == nil {
		return
	}
	m.nativeCalls.WithLabelValues(resource, statusLabel(s)).Inc()
}

func (m *Metrics) observeRefCall(resource string, s entities.CallStatus) {
	if m == nil {
		return
	}
	m.refCalls.WithLabelValues(resource, statusLabel(s)).Inc()
}

func (m *Metrics) observeResize(resource string) {
	if m == nil {
		return
	}
	m.bufferResizes.WithLabelValues(resource).Inc()
}

func (m *Metrics) observeEvent(resource string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(resource).Inc()
}

func (m *Metrics) observeTick(resource string) {
	if m == nil {
		return
	}
	m.ticks.WithLabelValues(resource).Inc()
}

func (m *Metrics) observeGuestError(resource, export string) {
	if m == nil {
		return
	}
	m.guestErrors.WithLabelValues(resource, export).Inc()
}
