// Package stream publishes committed audit records to Kafka using the outbox
// staged by the ledger store. The ledger table is the source of truth; the
// stream is a mirror for downstream consumers and can lag or be disabled
// without affecting the audit invariants.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"leaddesk/internal/audit"
	"leaddesk/internal/platform/metrics"
)

const (
	defaultPollInterval = time.Second
	defaultBatchSize    = 100
)

// OutboxSource supplies staged events and acknowledges published ones.
type OutboxSource interface {
	PendingOutbox(ctx context.Context, limit int) ([]audit.OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []int64, publishedAt time.Time) error
}

// Publisher drains the outbox into a Kafka topic.
type Publisher struct {
	client   *kgo.Client
	source   OutboxSource
	logger   *slog.Logger
	metrics  *metrics.Metrics
	topic    string
	interval time.Duration
	batch    int
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithMetrics counts published outbox entries.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithPollInterval overrides the outbox poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.interval = d
		}
	}
}

// New connects to the brokers and ensures the topic exists.
func New(ctx context.Context, brokers []string, topic string, source OutboxSource, logger *slog.Logger, opts ...Option) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("connect audit stream brokers: %w", err)
	}

	if err := ensureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}

	p := &Publisher{
		client:   client,
		source:   source,
		logger:   logger,
		topic:    topic,
		interval: defaultPollInterval,
		batch:    defaultBatchSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	resps, err := adm.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create audit stream topic: %w", err)
	}
	for _, resp := range resps {
		if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create audit stream topic %s: %w", resp.Topic, resp.Err)
		}
	}
	return nil
}

// Run polls the outbox until ctx is cancelled. A failed publish is retried on
// the next tick; rows are only marked published after the broker accepted
// them, so delivery is at-least-once.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.drain(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				p.logger.ErrorContext(ctx, "audit stream drain failed", "error", err)
			}
		}
	}
}

func (p *Publisher) drain(ctx context.Context) error {
	entries, err := p.source.PendingOutbox(ctx, p.batch)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	records := make([]*kgo.Record, 0, len(entries))
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		records = append(records, &kgo.Record{
			Topic: p.topic,
			Key:   []byte(fmt.Sprintf("%d", e.RecordID)),
			Value: e.Payload,
		})
		ids = append(ids, e.ID)
	}

	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("publish audit stream batch: %w", err)
	}

	if err := p.source.MarkPublished(ctx, ids, time.Now().UTC()); err != nil {
		return err
	}
	if p.metrics != nil {
		p.metrics.OutboxPublished.Add(float64(len(ids)))
	}
	p.logger.DebugContext(ctx, "audit stream batch published", "count", len(ids))
	return nil
}

// Close flushes and releases the Kafka client.
func (p *Publisher) Close() {
	p.client.Close()
}
