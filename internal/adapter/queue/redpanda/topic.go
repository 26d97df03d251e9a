// Package redpanda provides Redpanda/Kafka queue integration for
// evaluation jobs: a transactional producer and a consumer group worker.
package redpanda

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"
)

// TopicEvaluate is the Kafka topic for evaluation jobs.
const TopicEvaluate = "evaluate-jobs"

const errTopicAlreadyExists = 36

// createTopicIfNotExists creates a topic via the Kafka admin API, treating
// "topic already exists" as success.
func createTopicIfNotExists(ctx context.Context, client *kgo.Client, topic string, partitions int32, replicationFactor int16) error {
	if topic == "" {
		return fmt.Errorf("topic name cannot be empty")
	}
	if partitions <= 0 || replicationFactor <= 0 {
		return fmt.Errorf("partitions and replication factor must be positive")
	}

	req := kmsg.NewCreateTopicsRequest()
	req.TimeoutMillis = 30000
	topicReq := kmsg.NewCreateTopicsRequestTopic()
	topicReq.Topic = topic
	topicReq.NumPartitions = partitions
	topicReq.ReplicationFactor = replicationFactor
	req.Topics = append(req.Topics, topicReq)

	resp, err := client.Request(ctx, &req)
	if err != nil {
		return fmt.Errorf("create topic request: %w", err)
	}
	createResp, ok := resp.(*kmsg.CreateTopicsResponse)
	if !ok {
		return fmt.Errorf("unexpected response type: %T", resp)
	}
	for _, tr := range createResp.Topics {
		if tr.ErrorCode != 0 {
			if tr.ErrorCode == errTopicAlreadyExists {
				slog.Info("topic already exists", slog.String("topic", tr.Topic))
				return nil
			}
			msg := ""
			if tr.ErrorMessage != nil {
				msg = *tr.ErrorMessage
			}
			return fmt.Errorf("create topic %s: %s (code %d)", tr.Topic, msg, tr.ErrorCode)
		}
		slog.Info("topic created", slog.String("topic", tr.Topic))
	}
	return nil
}
