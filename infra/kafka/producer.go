// Package kafka publishes the best-effort level-one quote stream.
// Quotes are lossy by design (latest wins), so the writer is async
// and a dropped message is not an error worth retrying.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"matchbook/engine"
)

type QuotePublisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

func NewQuotePublisher(brokers []string, topic string, logger *zap.Logger) *QuotePublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuotePublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireOne,
			Async:        true,
			BatchTimeout: 10 * time.Millisecond,
		},
		logger: logger,
	}
}

// Publish sends one quote keyed by symbol, so partitioned consumers
// keep per-instrument ordering.
func (p *QuotePublisher) Publish(ctx context.Context, q engine.Quote) error {
	value, err := json.Marshal(q)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(q.Symbol),
		Value: value,
	})
}

// Run pumps quotes from a channel until the context ends or the
// channel closes.
func (p *QuotePublisher) Run(ctx context.Context, quotes <-chan engine.Quote) {
	for {
		select {
		case <-ctx.Done():
			return
		case q, ok := <-quotes:
			if !ok {
				return
			}
			if err := p.Publish(ctx, q); err != nil {
				p.logger.Warn("quote publish failed", zap.Error(err))
			}
		}
	}
}

func (p *QuotePublisher) Close() error {
	return p.writer.Close()
}
