// Package tape records every refreshed watchlist quote as a tick on a Kafka
// topic, so downstream consumers can replay what the dashboard showed.
package tape

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/noemamarkets/pulse/pkg/models"
)

// Recorder turns quote batches into ticks. Sequence ids are per symbol and
// start at 1 for each process.
type Recorder struct {
	logger *zap.Logger
	writer KafkaWriter
	clock  Clock

	mu          sync.Mutex
	seqCounters map[string]int64
}

func NewRecorder(logger *zap.Logger, writer KafkaWriter, clock Clock) *Recorder {
	return &Recorder{
		logger:      logger,
		writer:      writer,
		clock:       clock,
		seqCounters: make(map[string]int64),
	}
}

// ObserveQuotes writes one tick per quote. Write errors are logged; the
// dashboard never waits on the tape.
func (r *Recorder) ObserveQuotes(ctx context.Context, quotes []models.Quote) {
	if len(quotes) == 0 {
		return
	}
	now := r.clock.Now().UnixMicro()

	msgs := make([]kafka.Message, 0, len(quotes))
	r.mu.Lock()
	for _, q := range quotes {
		r.seqCounters[q.Symbol]++
		tick := models.Tick{
			Symbol:        q.Symbol,
			Price:         q.Price,
			ChangePercent: q.ChangePercent,
			Timestamp:     now,
			SeqID:         r.seqCounters[q.Symbol],
		}
		payload, err := json.Marshal(tick)
		if err != nil {
			r.logger.Error("JSON Marshal Error", zap.Error(err))
			continue
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(q.Symbol), // Key ensures partition ordering
			Value: payload,
		})
	}
	r.mu.Unlock()

	if err := r.writer.WriteMessages(ctx, msgs...); err != nil {
		r.logger.Error("Kafka Write Error", zap.Error(err))
		return
	}
	r.logger.Debug("Ticks recorded", zap.Int("count", len(msgs)))
}

// Close flushes the writer.
func (r *Recorder) Close() error {
	return r.writer.Close()
}
