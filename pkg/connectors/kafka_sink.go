package connectors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/sandboxws/adsim/pkg/event"
	"github.com/sandboxws/adsim/pkg/metrics"
)

// ErrNoBrokers is returned when no seed broker could be reached.
var ErrNoBrokers = errors.New("no kafka brokers available")

const (
	defaultConnectAttempts = 5
	defaultConnectBackoff  = 5 * time.Second
	defaultPingTimeout     = 5 * time.Second
)

// KafkaConfig configures the Kafka sink.
type KafkaConfig struct {
	Brokers         []string
	ClientID        string
	Codec           Codec
	ConnectAttempts int
	ConnectBackoff  time.Duration
	PingTimeout     time.Duration
}

// producer is the subset of *kgo.Client used by the sink.
type producer interface {
	TryProduce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
	Flush(ctx context.Context) error
	Ping(ctx context.Context) error
	Close()
}

type dialFunc func(opts ...kgo.Opt) (producer, error)

// KafkaSink produces records to Kafka asynchronously.
type KafkaSink struct {
	client    producer
	codec     Codec
	logger    *slog.Logger
	closeOnce sync.Once
}

// ConnectKafka creates a client and verifies a broker is reachable. Failures
// to reach any broker are retried with a constant backoff; any other error is
// returned immediately.
func ConnectKafka(ctx context.Context, cfg KafkaConfig, logger *slog.Logger) (*KafkaSink, error) {
	return connectKafka(ctx, cfg, logger, dialKgo)
}

func dialKgo(opts ...kgo.Opt) (producer, error) {
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func connectKafka(ctx context.Context, cfg KafkaConfig, logger *slog.Logger, dial dialFunc) (*KafkaSink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "kafka_sink")
	if cfg.Codec == nil {
		cfg.Codec = JSONCodec{}
	}
	if cfg.ConnectAttempts <= 0 {
		cfg.ConnectAttempts = defaultConnectAttempts
	}
	if cfg.ConnectBackoff <= 0 {
		cfg.ConnectBackoff = defaultConnectBackoff
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = defaultPingTimeout
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ProducerLinger(10 * time.Millisecond),
		kgo.MaxBufferedRecords(100_000),
	}
	if cfg.ClientID != "" {
		opts = append(opts, kgo.ClientID(cfg.ClientID))
	}

	var (
		client  producer
		attempt int
	)
	connect := func() error {
		attempt++
		logger.Info("connecting to kafka",
			"attempt", attempt,
			"max_attempts", cfg.ConnectAttempts,
			"brokers", cfg.Brokers,
		)

		c, err := dial(opts...)
		if err != nil {
			metrics.ConnectAttempts.WithLabelValues("failed").Inc()
			return backoff.Permanent(fmt.Errorf("kafka sink: create client: %w", err))
		}

		pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
		defer cancel()
		if err := c.Ping(pingCtx); err != nil {
			c.Close()
			if ctx.Err() == nil && isUnreachable(err) {
				metrics.ConnectAttempts.WithLabelValues("unreachable").Inc()
				return fmt.Errorf("%w: %v", ErrNoBrokers, err)
			}
			metrics.ConnectAttempts.WithLabelValues("failed").Inc()
			return backoff.Permanent(fmt.Errorf("kafka sink: ping: %w", err))
		}

		metrics.ConnectAttempts.WithLabelValues("connected").Inc()
		client = c
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(cfg.ConnectBackoff), uint64(cfg.ConnectAttempts-1)),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		logger.Warn("no brokers available, retrying", "error", err, "retry_in", wait)
	}
	if err := backoff.RetryNotify(connect, policy, notify); err != nil {
		logger.Error("could not connect to kafka", "attempts", attempt, "error", err)
		return nil, err
	}

	logger.Info("connected to kafka", "codec", cfg.Codec.Name())
	return newKafkaSink(client, cfg.Codec, logger), nil
}

func newKafkaSink(client producer, codec Codec, logger *slog.Logger) *KafkaSink {
	return &KafkaSink{client: client, codec: codec, logger: logger}
}

// isUnreachable reports whether err means no broker answered, as opposed to
// a broker answering with an error. context.DeadlineExceeded satisfies
// net.Error, so a ping timeout counts as unreachable.
func isUnreachable(err error) bool {
	var netErr net.Error
	switch {
	case errors.As(err, &netErr):
		return true
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, io.EOF):
		return true
	default:
		return false
	}
}

// Publish encodes rec and hands it to the producer buffer without blocking.
// When the buffer is full the record is dropped and counted as a produce
// error. Records already published are not canceled with ctx so that Flush
// can still deliver them.
func (k *KafkaSink) Publish(ctx context.Context, topic, key string, rec event.Record) {
	value, err := k.codec.Encode(rec)
	if err != nil {
		metrics.ProduceErrors.WithLabelValues(topic).Inc()
		k.logger.Error("encode record", "topic", topic, "key", key, "error", err)
		return
	}

	k.client.TryProduce(context.WithoutCancel(ctx), &kgo.Record{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}, k.onDelivery)
}

func (k *KafkaSink) onDelivery(r *kgo.Record, err error) {
	if err == nil {
		return
	}
	metrics.ProduceErrors.WithLabelValues(r.Topic).Inc()
	if errors.Is(err, kgo.ErrMaxBuffered) {
		k.logger.Debug("producer buffer full, record dropped", "topic", r.Topic, "key", string(r.Key))
		return
	}
	k.logger.Warn("delivery failed", "topic", r.Topic, "key", string(r.Key), "error", err)
}

// Flush blocks until buffered records are acknowledged or ctx is done.
func (k *KafkaSink) Flush(ctx context.Context) error {
	if err := k.client.Flush(ctx); err != nil {
		return fmt.Errorf("kafka sink: flush: %w", err)
	}
	return nil
}

// Close releases the client. Subsequent calls are no-ops.
func (k *KafkaSink) Close() error {
	k.closeOnce.Do(func() {
		k.client.Close()
	})
	return nil
}
