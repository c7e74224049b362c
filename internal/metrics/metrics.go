// Package metrics mirrors the teacher's pkg/metrics conventions (a
// CounterVec/HistogramVec per concern, labelled by command/status, or by
// mechanism/outcome for authentication)
// but drops the global promauto registry: a library embedded in someone
// else's process should register into a caller-supplied prometheus.Registerer
// instead of always touching prometheus.DefaultRegisterer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the ManageSieve client's metrics. The zero value is not
// usable; construct with NewRecorder.
type Recorder struct {
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec

	AuthAttemptsTotal *prometheus.CounterVec
	AuthDuration      *prometheus.HistogramVec

	ScriptBytesSent *prometheus.CounterVec
}

// NewRecorder registers a fresh set of collectors into reg and returns the
// Recorder wrapping them, following the teacher's naming scheme
// (critical_metrics.go's CommandsTotal/CommandDuration) with a "sievekit_"
// prefix in place of "sora_".
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promautoLikeFactory{reg}
	return &Recorder{
		CommandsTotal: factory.counterVec(prometheus.CounterOpts{
			Name: "sievekit_commands_total",
			Help: "Total number of ManageSieve commands issued by command name and status",
		}, []string{"command", "status"}),

		CommandDuration: factory.histogramVec(prometheus.HistogramOpts{
			Name:    "sievekit_command_duration_seconds",
			Help:    "Duration of ManageSieve commands in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		}, []string{"command"}),

		AuthAttemptsTotal: factory.counterVec(prometheus.CounterOpts{
			Name: "sievekit_auth_attempts_total",
			Help: "Total number of AUTHENTICATE attempts by mechanism and outcome",
		}, []string{"mechanism", "outcome"}),

		AuthDuration: factory.histogramVec(prometheus.HistogramOpts{
			Name: "sievekit_auth_duration_seconds",
			Help: "Duration of the AUTHENTICATE exchange in seconds by mechanism",
		}, []string{"mechanism"}),

		ScriptBytesSent: factory.counterVec(prometheus.CounterOpts{
			Name: "sievekit_script_bytes_sent_total",
			Help: "Total bytes of script content sent via PUTSCRIPT/CHECKSCRIPT",
		}, []string{"command"}),
	}
}

// NoopRecorder returns a Recorder registered into a private registry, for
// callers (and tests) that want metrics calls to be safe no-ops without
// polluting prometheus.DefaultRegisterer.
func NoopRecorder() *Recorder {
	return NewRecorder(prometheus.NewRegistry())
}

// promautoLikeFactory reproduces promauto's "construct, then MustRegister"
// convenience for the small, fixed set of collectors this package needs,
// without pulling in the promauto package's implicit dependence on
// prometheus.DefaultRegisterer.
type promautoLikeFactory struct {
	reg prometheus.Registerer
}

func (f promautoLikeFactory) counterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(opts, labels)
	f.reg.MustRegister(c)
	return c
}

func (f promautoLikeFactory) histogramVec(opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(opts, labels)
	f.reg.MustRegister(h)
	return h
}
