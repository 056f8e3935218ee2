package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "hearth"

// Metrics holds the engine's metric instruments.
type Metrics struct {
	TasksAssigned   metric.Int64Counter
	Handoffs        metric.Int64Counter
	ExecutionsOK    metric.Int64Counter
	ExecutionsFail  metric.Int64Counter
	ExecuteDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.TasksAssigned, err = meter.Int64Counter("hearth.tasks.assigned",
		metric.WithDescription("Tasks auto-assigned by the assignment engine"))
	if err != nil {
		return nil, err
	}

	m.Handoffs, err = meter.Int64Counter("hearth.tasks.handoffs",
		metric.WithDescription("Task handoffs between agents"))
	if err != nil {
		return nil, err
	}

	m.ExecutionsOK, err = meter.Int64Counter("hearth.tasks.executions.completed",
		metric.WithDescription("Task executions that reached completed status"))
	if err != nil {
		return nil, err
	}

	m.ExecutionsFail, err = meter.Int64Counter("hearth.tasks.executions.failed",
		metric.WithDescription("Task executions that reached failed status"))
	if err != nil {
		return nil, err
	}

	m.ExecuteDuration, err = meter.Float64Histogram("hearth.tasks.execute.duration_seconds",
		metric.WithDescription("Execute call duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
