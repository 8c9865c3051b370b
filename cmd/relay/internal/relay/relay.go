// Package relay consumes the quote tape and mirrors the newest tick of every
// symbol into Redis, publishing each accepted tick for live subscribers.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noemamarkets/pulse/pkg/models"
)

// LastKey holds the newest tick JSON; Channel carries every accepted tick.
func LastKey(symbol string) string { return "tick:" + symbol }
func Channel(symbol string) string { return "ticks." + symbol }

type Options struct {
	Workers int
	TTL     time.Duration
}

type Relay struct {
	opts   Options
	logger *zap.Logger
	rdb    RedisClient
	reader KafkaReader
}

func NewRelay(opts Options, logger *zap.Logger, rdb RedisClient, reader KafkaReader) *Relay {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Relay{opts: opts, logger: logger, rdb: rdb, reader: reader}
}

// Run reads until ctx is done, then drains the workers.
func (r *Relay) Run(ctx context.Context) error {
	workerChans := make([]chan []byte, r.opts.Workers)
	var wg sync.WaitGroup

	for i := 0; i < r.opts.Workers; i++ {
		workerChans[i] = make(chan []byte, 100)
		wg.Add(1)
		go r.worker(i, workerChans[i], &wg)
	}

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		r.logger.Info("Relay Started", zap.Int("workers", r.opts.Workers))
		for {
			m, err := r.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}
				r.logger.Error("Kafka Read Error", zap.Error(err))
				continue
			}

			// Same symbol always lands on the same worker, which keeps per-symbol order.
			workerID := shardOf(m.Key, r.opts.Workers)

			select {
			case workerChans[workerID] <- m.Value:
			case <-ctx.Done():
				return
			default:
				r.logger.Warn("Dropping slow tick", zap.String("key", string(m.Key)), zap.Int("worker_id", workerID))
			}
		}
	}()

	<-ctx.Done()
	<-readerDone
	r.logger.Info("Shutdown signal received, stopping relay...")

	for _, ch := range workerChans {
		close(ch)
	}
	r.logger.Info("Waiting for workers to drain...")
	wg.Wait()

	return nil
}

type position struct {
	seq int64
	ts  int64
}

// stale reports whether u is not newer than what was already relayed.
// Sequence ids restart with each dashboard process, so a lower seq with a
// newer timestamp is fresh.
func (p position) stale(u models.Tick) bool {
	return u.SeqID <= p.seq && u.Timestamp <= p.ts
}

func (r *Relay) worker(id int, msgs <-chan []byte, wg *sync.WaitGroup) {
	defer wg.Done()
	// Background context: a tick already taken off the stream is written out
	// even during shutdown.
	ctx := context.Background()

	last := make(map[string]position)

	for payload := range msgs {
		var update models.Tick
		if err := json.Unmarshal(payload, &update); err != nil {
			r.logger.Error("JSON Unmarshal Error", zap.Error(err))
			continue
		}
		if update.Symbol == "" {
			r.logger.Warn("Tick without symbol", zap.ByteString("payload", payload))
			continue
		}

		if last[update.Symbol].stale(update) {
			r.logger.Debug("Skipping duplicate tick", zap.String("symbol", update.Symbol), zap.Int64("seq_id", update.SeqID))
			continue
		}

		pipe := r.rdb.Pipeline()
		pipe.Set(ctx, LastKey(update.Symbol), payload, r.opts.TTL)
		pipe.Publish(ctx, Channel(update.Symbol), payload)
		if _, err := pipe.Exec(ctx); err != nil {
			r.logger.Error("Redis Pipeline Error", zap.Error(err), zap.String("symbol", update.Symbol))
			continue
		}
		r.logger.Debug("Relayed", zap.String("symbol", update.Symbol), zap.Int("worker_id", id), zap.Int64("seq_id", update.SeqID))
		last[update.Symbol] = position{seq: update.SeqID, ts: update.Timestamp}
	}
}

func shardOf(key []byte, n int) int {
	h := fnv.New32a()
	h.Write(key)
	return int(h.Sum32() % uint32(n))
}
