package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
)

// Handler processes one decoded evaluate task.
type Handler interface {
	HandleEvaluate(ctx context.Context, payload domain.EvaluateTaskPayload) error
}

// Consumer polls the evaluate topic inside a group transact session so
// offsets commit only after handling succeeds.
type Consumer struct {
	session     *kgo.GroupTransactSession
	handler     Handler
	concurrency int
}

// NewConsumer constructs a Consumer joined to the given group.
func NewConsumer(brokers []string, groupID string, handler Handler, concurrency int) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	kotelService := kotel.NewKotel(
		kotel.WithTracer(kotel.NewTracer(kotel.TracerProvider(otel.GetTracerProvider()))),
	)
	session, err := kgo.NewGroupTransactSession(
		kgo.SeedBrokers(brokers...),
		kgo.TransactionalID(groupID+"-worker"),
		kgo.FetchIsolationLevel(kgo.ReadCommitted()),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(TopicEvaluate),
		kgo.RequireStableFetchOffsets(),
		kgo.WithHooks(kotelService.Hooks()...),
		kgo.SessionTimeout(30*time.Second),
		kgo.HeartbeatInterval(3*time.Second),
		kgo.FetchMaxWait(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("redpanda consumer session: %w", err)
	}
	return &Consumer{session: session, handler: handler, concurrency: concurrency}, nil
}

// Run polls until ctx is canceled. Each poll is one transaction: records
// are handled concurrently, and the session commits only when every record
// in the batch succeeded.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.session.Close()
	slog.Info("evaluate consumer started", slog.String("topic", TopicEvaluate))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches := c.session.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return fmt.Errorf("op=consumer.run: client closed")
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			for _, fe := range errs {
				if fe.Err == context.Canceled {
					return fe.Err
				}
				slog.Error("fetch error",
					slog.String("topic", fe.Topic),
					slog.Any("error", fe.Err))
			}
			continue
		}
		if fetches.Empty() {
			continue
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.concurrency)
		fetches.EachRecord(func(rec *kgo.Record) {
			g.Go(func() error {
				return c.processRecord(gctx, rec)
			})
		})
		handleErr := g.Wait()

		verb := kgo.TryCommit
		if handleErr != nil {
			slog.Error("batch handling failed, aborting transaction", slog.Any("error", handleErr))
			verb = kgo.TryAbort
		}
		if committed, err := c.session.End(ctx, verb); err != nil {
			slog.Error("transaction end failed", slog.Any("error", err))
		} else if !committed && verb == kgo.TryCommit {
			slog.Warn("transaction not committed, records will be redelivered")
		}
	}
}

func (c *Consumer) processRecord(ctx context.Context, rec *kgo.Record) error {
	var payload domain.EvaluateTaskPayload
	if err := json.Unmarshal(rec.Value, &payload); err != nil {
		// Malformed records cannot succeed on redelivery; drop them.
		slog.Error("dropping undecodable record",
			slog.String("topic", rec.Topic),
			slog.Int64("offset", rec.Offset),
			slog.Any("error", err))
		return nil
	}
	if err := c.handler.HandleEvaluate(ctx, payload); err != nil {
		return fmt.Errorf("op=consumer.handle job_id=%s: %w", payload.JobID, err)
	}
	return nil
}
