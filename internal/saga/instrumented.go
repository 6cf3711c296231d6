package saga

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"docsaga/internal/jsonlog"
)

// Metrics holds the prometheus collectors for saga outcomes.
type Metrics struct {
	executions    *prometheus.CounterVec
	compensations *prometheus.CounterVec
}

// NewMetrics registers the saga collectors with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saga_executions_total",
				Help: "Total number of saga executions by saga name and terminal status.",
			},
			[]string{"saga", "status"},
		),
		compensations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saga_compensation_errors_total",
				Help: "Total number of failed compensations by saga name.",
			},
			[]string{"saga"},
		),
	}
	if err := reg.Register(m.executions); err != nil {
		return nil, err
	}
	if err := reg.Register(m.compensations); err != nil {
		return nil, err
	}
	return m, nil
}

// InstrumentedEngine is the shared engine: the local semantics wrapped with
// structured logging, prometheus counters and a trace span per execution.
// It delegates to the same run function as LocalEngine, so the two engines
// cannot diverge in behavior.
type InstrumentedEngine struct {
	metrics *Metrics
	tracer  trace.Tracer
}

// NewInstrumentedEngine constructs the shared engine. metrics may be nil.
func NewInstrumentedEngine(metrics *Metrics) *InstrumentedEngine {
	return &InstrumentedEngine{
		metrics: metrics,
		tracer:  otel.Tracer("docsaga/saga"),
	}
}

var _ Engine = (*InstrumentedEngine)(nil)

// Execute implements Engine.
func (e *InstrumentedEngine) Execute(ctx context.Context, name string, steps []Step, initial Context) *ExecutionResult {
	ctx, span := e.tracer.Start(ctx, "saga.execute",
		trace.WithAttributes(attribute.String("saga.name", name)))
	defer span.End()

	start := time.Now()
	res := run(ctx, name, steps, initial)

	span.SetAttributes(
		attribute.String("saga.id", res.SagaID),
		attribute.String("saga.status", string(res.Status)),
	)

	if e.metrics != nil {
		e.metrics.executions.WithLabelValues(name, string(res.Status)).Inc()
		if n := len(res.CompensationErrors); n > 0 {
			e.metrics.compensations.WithLabelValues(name).Add(float64(n))
		}
	}

	entry := map[string]any{
		"component":   "saga",
		"event":       "saga_finished",
		"saga":        name,
		"saga_id":     res.SagaID,
		"saga_status": string(res.Status),
		"steps":       len(res.ExecutedSteps),
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if res.Status != StatusCompleted {
		entry["status"] = "error"
		entry["errors"] = res.Errors
		if len(res.CompensationErrors) > 0 {
			entry["compensation_errors"] = res.CompensationErrors
		}
	} else {
		entry["status"] = "success"
	}
	jsonlog.Emit(entry)

	return res
}
