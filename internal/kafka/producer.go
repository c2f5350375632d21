package kafka

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ariefcatur/assettrack/internal/obs"
	"github.com/segmentio/kafka-go"
)

var ErrProducerFull = errors.New("kafka producer buffer full")

// Producer buffers messages and writes them from one goroutine. The topic is
// carried per message so one writer serves every lifecycle topic.
type Producer struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	closeCh chan struct{}
	once    sync.Once
}

func NewProducer(brokers []string, buf int) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			BatchTimeout:           50 * time.Millisecond,
		},
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

// Start runs the write loop until Close; the remaining buffer is flushed
// before the writer closes.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		defer func() { _ = p.w.Close() }()
		for m := range p.inbox {
			if err := p.w.WriteMessages(context.WithoutCancel(ctx), m); err != nil {
				obs.Logger.Error("kafka_write_failed", "topic", m.Topic, "key", string(m.Key), "error", err)
			}
		}
	}()
}

// Publish enqueues without blocking; a full buffer drops the message.
func (p *Producer) Publish(topic string, key, value []byte, headers ...kafka.Header) error {
	select {
	case p.inbox <- kafka.Message{
		Topic:   topic,
		Key:     key,
		Value:   value,
		Time:    time.Now(),
		Headers: headers,
	}:
		return nil
	default:
		return ErrProducerFull
	}
}

// Close stops accepting messages; the loop flushes what is buffered then exits.
func (p *Producer) Close() { p.once.Do(func() { close(p.inbox) }) }

func (p *Producer) WaitClosed() { <-p.closeCh }
