package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the core execution counters exposed on /metrics.
type Metrics struct {
	StepsExecuted       *prometheus.CounterVec // labels: tool, status
	PermissionDecisions *prometheus.CounterVec // labels: type, decision
	SandboxExecutions   *prometheus.CounterVec // labels: backend, status
	LLMRetries          prometheus.Counter
	StepDuration        prometheus.Histogram

	registry *prometheus.Registry
}

// NewMetrics creates the metrics set on a dedicated registry so tests can
// instantiate collectors repeatedly without double-registration panics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		StepsExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arlo_steps_executed_total",
			Help: "Tool steps executed by the agent loop.",
		}, []string{"tool", "status"}),
		PermissionDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arlo_permission_decisions_total",
			Help: "Permission requests resolved, by type and decision.",
		}, []string{"type", "decision"}),
		SandboxExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arlo_sandbox_executions_total",
			Help: "Sandbox command executions, by backend and status.",
		}, []string{"backend", "status"}),
		LLMRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arlo_llm_retries_total",
			Help: "LLM call retries across planner and classifier.",
		}),
		StepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "arlo_step_duration_seconds",
			Help:    "Wall time of individual tool steps.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		registry: reg,
	}

	reg.MustRegister(m.StepsExecuted, m.PermissionDecisions, m.SandboxExecutions, m.LLMRetries, m.StepDuration)
	return m
}

// Registry exposes the underlying prometheus registry for the HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// NopMetrics returns a metrics set that records into a throwaway registry.
func NopMetrics() *Metrics { return NewMetrics() }
