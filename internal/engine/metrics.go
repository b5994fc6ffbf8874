package engine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/Synergy-Corpp/c-protocol-work-to-earn/engine"

// metrics holds the engine's otel instruments. With no meter provider
// installed the global provider is a no-op.
type metrics struct {
	operations metric.Int64Counter
	emitted    metric.Int64Counter
	decayed    metric.Int64Counter
	minted     metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	if meter == nil {
		meter = otel.Meter(meterName)
	}

	var (
		m   metrics
		err error
	)

	if m.operations, err = meter.Int64Counter("engine.operations",
		metric.WithDescription("Engine operations by name and result"),
		metric.WithUnit("{operation}"),
	); err != nil {
		return nil, err
	}

	if m.emitted, err = meter.Int64Counter("engine.tokens.emitted",
		metric.WithDescription("Emission credited to pending balances"),
		metric.WithUnit("{token}"),
	); err != nil {
		return nil, err
	}

	if m.decayed, err = meter.Int64Counter("engine.tokens.decayed",
		metric.WithDescription("Decay charged to pending balances"),
		metric.WithUnit("{token}"),
	); err != nil {
		return nil, err
	}

	if m.minted, err = meter.Int64Counter("engine.tokens.minted",
		metric.WithDescription("Tokens minted through witness consensus"),
		metric.WithUnit("{token}"),
	); err != nil {
		return nil, err
	}

	return &m, nil
}

// op records the outcome of one operation.
func (m *metrics) op(name string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}

	m.operations.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("op", name),
		attribute.String("result", result),
	))
}

// add records a token amount, clamped to the int64 range of the counter.
func add(c metric.Int64Counter, amount uint64) {
	if amount > 1<<63-1 {
		amount = 1<<63 - 1
	}

	c.Add(context.Background(), int64(amount))
}
