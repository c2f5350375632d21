package kafka

import (
	"context"
	"strconv"

	"github.com/ariefcatur/assettrack/internal/orders"
	"github.com/segmentio/kafka-go"
)

// Publisher adapts Producer to orders.Publisher: topic by event type,
// partition key by order id.
type Publisher struct {
	P *Producer
}

func (p *Publisher) Publish(ctx context.Context, env orders.Envelope) error {
	key := env.CorrelationID
	if key == "" {
		key = env.EventID
	}
	return p.P.Publish(orders.TopicFor(env.EventType), orders.PartitionKey(key), MustMarshal(env), EventHeaders(env)...)
}

func EventHeaders(env orders.Envelope) []kafka.Header {
	return []kafka.Header{
		{Key: "x-event-type", Value: []byte(env.EventType)},
		{Key: "x-event-version", Value: []byte(strconv.Itoa(env.EventVersion))},
	}
}
