package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/fairyhunter13/cv-match-advisor/internal/adapter/observability"
	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
)

// Producer wraps a transactional Kafka producer and implements domain.Queue.
type Producer struct {
	client *kgo.Client
	// Serializes transactions; the franz-go transactional producer allows
	// one open transaction per client.
	txLock chan struct{}
}

// NewProducer constructs a Producer with exactly-once semantics.
func NewProducer(brokers []string) (*Producer, error) {
	return NewProducerWithTransactionalID(brokers, "cv-match-advisor-producer")
}

// NewProducerWithTransactionalID constructs a Producer with a custom
// transactional ID, useful for test isolation.
func NewProducerWithTransactionalID(brokers []string, transactionalID string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.TransactionalID(transactionalID),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(1000000),
	)
	if err != nil {
		return nil, fmt.Errorf("redpanda client: %w", err)
	}

	if err := createTopicIfNotExists(context.Background(), client, TopicEvaluate, 1, 1); err != nil {
		slog.Warn("failed to create topic, it may already exist",
			slog.String("topic", TopicEvaluate), slog.Any("error", err))
	}

	return &Producer{client: client, txLock: make(chan struct{}, 1)}, nil
}

// EnqueueEvaluate enqueues an evaluation task with exactly-once semantics.
func (p *Producer) EnqueueEvaluate(ctx context.Context, payload domain.EvaluateTaskPayload) (string, error) {
	select {
	case p.txLock <- struct{}{}:
		defer func() { <-p.txLock }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("op=queue.enqueue marshal: %w", err)
	}

	if err := p.client.BeginTransaction(); err != nil {
		return "", fmt.Errorf("op=queue.enqueue begin: %w", err)
	}
	record := &kgo.Record{
		Topic: TopicEvaluate,
		Key:   []byte(payload.JobID),
		Value: b,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		if abortErr := p.client.EndTransaction(ctx, kgo.TryAbort); abortErr != nil {
			slog.Error("failed to abort transaction", slog.Any("error", abortErr))
		}
		return "", fmt.Errorf("op=queue.enqueue produce: %w", err)
	}
	if err := p.client.EndTransaction(ctx, kgo.TryCommit); err != nil {
		return "", fmt.Errorf("op=queue.enqueue commit: %w", err)
	}

	observability.EnqueueJob("evaluate")
	slog.Info("evaluate task enqueued",
		slog.String("job_id", payload.JobID),
		slog.String("topic", TopicEvaluate))
	return payload.JobID, nil
}

// Close flushes and closes the underlying client.
func (p *Producer) Close() {
	p.client.Close()
}
