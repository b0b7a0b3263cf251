package adapter

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"relove-chat/internal/infrastructure/broadcast/port"
)

// Instrumented counts successful publishes of next under the given transport
// label.
type Instrumented struct {
	next    port.Publisher
	counter prometheus.Counter
}

func NewInstrumented(next port.Publisher, counter *prometheus.CounterVec, transport string) *Instrumented {
	return &Instrumented{next: next, counter: counter.WithLabelValues(transport)}
}

func (i *Instrumented) Publish(ctx context.Context, channel, event string, data []byte) error {
	if err := i.next.Publish(ctx, channel, event, data); err != nil {
		return err
	}
	i.counter.Inc()
	return nil
}
