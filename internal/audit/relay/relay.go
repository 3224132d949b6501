// Package relay drains the audit outbox to Kafka. Compliance reporting
// consumes the topic; the database table stays the local source for
// per-agent history reads.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"sigrh/internal/audit"
)

const (
	defaultBatchSize    = 100
	defaultPollInterval = 2 * time.Second
)

// Relay polls unpublished audit rows and produces them to the topic,
// marking rows published only after the broker acknowledges the batch.
// Produce-then-mark means at-least-once delivery; consumers deduplicate on
// the event ID.
type Relay struct {
	store     audit.OutboxStore
	client    *kgo.Client
	topic     string
	logger    *slog.Logger
	batchSize int
	interval  time.Duration
}

// Option configures a Relay.
type Option func(*Relay)

// WithBatchSize bounds how many rows one poll drains.
func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithPollInterval sets the idle delay between polls.
func WithPollInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func New(store audit.OutboxStore, client *kgo.Client, topic string, logger *slog.Logger, opts ...Option) *Relay {
	r := &Relay{
		store:     store,
		client:    client,
		topic:     topic,
		logger:    logger,
		batchSize: defaultBatchSize,
		interval:  defaultPollInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EnsureTopic creates the audit topic if the broker does not have it yet.
// Call once at startup; safe to call against an existing topic.
func (r *Relay) EnsureTopic(ctx context.Context, partitions int32, replicas int16) error {
	adm := kadm.NewClient(r.client)
	resp, err := adm.CreateTopic(ctx, partitions, replicas, nil, r.topic)
	if err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create audit topic %s: %w", r.topic, resp.Err)
	}
	return nil
}

// Run polls until the context is cancelled. Failures are logged and retried
// on the next tick; the outbox keeps rows until the broker accepts them.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.DrainOnce(ctx); err != nil {
				r.logger.WarnContext(ctx, "audit relay drain failed", "error", err)
			}
		}
	}
}

// DrainOnce relays one batch of unpublished rows. Exposed for tests and for
// flush-on-shutdown.
func (r *Relay) DrainOnce(ctx context.Context) error {
	events, err := r.store.Unpublished(ctx, r.batchSize)
	if err != nil {
		return fmt.Errorf("load outbox: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	records := make([]*kgo.Record, 0, len(events))
	ids := make([]string, 0, len(events))
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("encode audit event %s: %w", event.ID, err)
		}
		records = append(records, &kgo.Record{
			Topic: r.topic,
			// Key by entity so one record's trail stays ordered per partition.
			Key:   []byte(event.EntityID),
			Value: payload,
		})
		ids = append(ids, event.ID.String())
	}

	if err := r.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce audit batch: %w", err)
	}
	if err := r.store.MarkPublished(ctx, ids); err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	r.logger.InfoContext(ctx, "audit events relayed", "count", len(records), "topic", r.topic)
	return nil
}
