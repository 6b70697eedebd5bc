// Package broadcaster drains the trade outbox to Kafka. It sweeps on
// a ticker, publishing every unacked record with full acks and
// marking delivery state as it goes, so trades reach settlement
// collaborators at least once.
package broadcaster

import (
	"context"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"matchbook/infra/outbox"
)

type Broadcaster struct {
	box      *outbox.Outbox
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
	logger   *zap.Logger
}

func New(box *outbox.Outbox, brokers []string, topic string, interval time.Duration, logger *zap.Logger) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{
		box:      box,
		producer: producer,
		topic:    topic,
		interval: interval,
		logger:   logger,
	}, nil
}

// Run sweeps the outbox until the context ends.
func (b *Broadcaster) Run(ctx context.Context) {
	b.logger.Info("trade broadcaster started", zap.String("topic", b.topic))
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.flush()
		}
	}
}

func (b *Broadcaster) flush() {
	err := b.box.ScanPending(func(rec outbox.Record) error {
		// Mark SENT before publishing: a crash in between means a
		// retry, never a lost trade.
		if err := b.box.MarkSent(rec.Seq); err != nil {
			return err
		}
		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Key:   sarama.StringEncoder(strconv.FormatUint(rec.Seq, 10)),
			Value: sarama.ByteEncoder(rec.Payload),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			b.logger.Warn("trade publish failed, will retry",
				zap.Uint64("seq", rec.Seq), zap.Error(err))
			return nil
		}
		return b.box.MarkAcked(rec.Seq)
	})
	if err != nil {
		b.logger.Error("outbox sweep failed", zap.Error(err))
		return
	}
	if n, err := b.box.SweepAcked(); err != nil {
		b.logger.Error("outbox reap failed", zap.Error(err))
	} else if n > 0 {
		b.logger.Debug("outbox reaped", zap.Int("records", n))
	}
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
