package producers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/transfer-verification-engine/internal/config"
)

// topicAdmin is the subset of *kafka.Conn needed to provision topics
type topicAdmin interface {
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	CreateTopics(topics ...kafka.TopicConfig) error
}

type adminConn interface {
	topicAdmin
	Close() error
}

var dialAdmin = func(ctx context.Context, addr string) (adminConn, error) {
	return kafka.DialContext(ctx, "tcp", addr)
}

// ensureTopic provisions topic through the first broker that accepts a connection
func ensureTopic(ctx context.Context, cfg *config.KafkaConfig, topic string, log *slog.Logger) error {
	brokers := cfg.BrokerList()
	if len(brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}

	var dialErrs []error
	for _, broker := range brokers {
		conn, err := dialAdmin(ctx, broker)
		if err != nil {
			log.Warn("Kafka broker unreachable", "broker", broker, "error", err)
			dialErrs = append(dialErrs, fmt.Errorf("%s: %w", broker, err))
			continue
		}
		defer conn.Close()
		return createKafkaTopicIfNotExists(conn, topic, cfg.NumPartitions, cfg.ReplicationFactor, log)
	}
	return fmt.Errorf("failed to dial any kafka broker: %w", errors.Join(dialErrs...))
}

var (
	partitionReadAttempts = 5
	partitionReadBackoff  = 2 * time.Second
)

// createKafkaTopicIfNotExists creates the topic unless its partitions can be read
func createKafkaTopicIfNotExists(conn topicAdmin, topicName string, numPartitions, replicationFactor int, log *slog.Logger) error {
	var partitions []kafka.Partition
	var err error

	for i := 0; i < partitionReadAttempts; i++ {
		partitions, err = conn.ReadPartitions(topicName)
		if err == nil {
			break
		}
		log.Warn("Failed to read partitions, retrying", "topic", topicName, "attempt", i+1, "error", err)
		time.Sleep(partitionReadBackoff)
	}

	if len(partitions) > 0 {
		log.Info("Kafka topic already exists", "topic", topicName, "partitions", len(partitions))
		return nil
	}

	topicConfig := kafka.TopicConfig{
		Topic:             topicName,
		NumPartitions:     max(numPartitions, 1),
		ReplicationFactor: max(replicationFactor, 1),
	}

	log.Info("Creating Kafka topic",
		"topic", topicName,
		"partitions", topicConfig.NumPartitions,
		"replication_factor", topicConfig.ReplicationFactor,
		"last_read_error", err,
	)
	if err := conn.CreateTopics(topicConfig); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topicName, err)
	}

	log.Info("Created Kafka topic", "topic", topicName)
	return nil
}
