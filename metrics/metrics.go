// Package metrics exports widget lifecycle counters to Prometheus.
//
//	obs := metrics.New(prometheus.DefaultRegisterer)
//	reg := webchat.NewRegistry(loader, webchat.WithRegistryObserver(obs))
//	c := webchat.NewContainer(reg, webchat.WithObserver(obs))
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/pthm/webchat"
)

// Observer implements webchat.Observer with Prometheus collectors.
type Observer struct {
	scriptRequests *prometheus.CounterVec
	scriptLoads    *prometheus.CounterVec
	phases         *prometheus.CounterVec
	failures       *prometheus.CounterVec
}

var _ webchat.Observer = (*Observer)(nil)

// New creates an Observer and registers its collectors with reg. A nil reg
// leaves them unregistered.
func New(reg prometheus.Registerer) *Observer {
	o := &Observer{
		scriptRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "webchat",
				Subsystem: "script",
				Name:      "requests_total",
				Help:      "Script load requests, by whether the request started the load",
			},
			[]string{"initiated"},
		),
		scriptLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "webchat",
				Subsystem: "script",
				Name:      "loads_total",
				Help:      "Finished script loads by result",
			},
			[]string{"result"},
		),
		phases: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "webchat",
				Subsystem: "instance",
				Name:      "phase_transitions_total",
				Help:      "Instance lifecycle transitions by phase entered",
			},
			[]string{"phase"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "webchat",
				Subsystem: "instance",
				Name:      "create_failures_total",
				Help:      "Failed creation sequences by cause",
			},
			[]string{"cause"},
		),
	}
	if reg != nil {
		reg.MustRegister(o.scriptRequests, o.scriptLoads, o.phases, o.failures)
	}
	return o
}

func (o *Observer) ScriptRequested(_ string, initiated bool) {
	label := "false"
	if initiated {
		label = "true"
	}
	o.scriptRequests.WithLabelValues(label).Inc()
}

func (o *Observer) ScriptSettled(_ string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	o.scriptLoads.WithLabelValues(result).Inc()
}

func (o *Observer) PhaseChanged(_ *webchat.Config, phase webchat.Phase) {
	o.phases.WithLabelValues(phase.String()).Inc()
}

func (o *Observer) CreateFailed(_ *webchat.Config, err error) {
	o.failures.WithLabelValues(cause(err)).Inc()
}

func cause(err error) string {
	switch {
	case webchat.IsScriptLoadError(err):
		return "script"
	case webchat.IsEntryPointMissing(err):
		return "entry_point"
	case errors.Is(err, webchat.ErrHook):
		return "hook"
	default:
		return "create"
	}
}
