// Package kafka moves document rebuild tasks through a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"docbrain-go/internal/config"
	"docbrain-go/pkg/log"
	"docbrain-go/pkg/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
)

// maxAttempts is how often a failing task is retried before its offset is committed.
const maxAttempts = 3

// TaskProcessor is implemented by whatever handles rebuild tasks.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.RebuildTask) error
}

func brokers(cfg config.KafkaConfig) []string {
	var out []string
	for _, b := range strings.Split(cfg.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Producer publishes rebuild tasks.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a producer for cfg.Topic.
func NewProducer(cfg config.KafkaConfig) *Producer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers(cfg)...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka producer initialized")
	return &Producer{writer: w}
}

// Produce sends one task, keyed by document id.
func (p *Producer) Produce(ctx context.Context, task tasks.RebuildTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.DocumentID),
		Value: taskBytes,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// attemptCounter counts failures per document, in Redis when available so
// the count survives restarts.
type attemptCounter struct {
	rdb   *redis.Client
	mu    sync.Mutex
	local map[string]int64
}

// incr falls back to the in-process count when Redis fails.
func (c *attemptCounter) incr(ctx context.Context, docID string) int64 {
	if c.rdb != nil {
		key := fmt.Sprintf("kafka:attempts:%s", docID)
		n, err := c.rdb.Incr(ctx, key).Result()
		if err == nil {
			_ = c.rdb.Expire(ctx, key, 24*time.Hour).Err()
			return n
		}
		log.Warnf("counting attempts in Redis failed, counting locally: %v", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.local[docID]++
	return c.local[docID]
}

func (c *attemptCounter) reset(ctx context.Context, docID string) {
	c.mu.Lock()
	delete(c.local, docID)
	c.mu.Unlock()
	if c.rdb != nil {
		_ = c.rdb.Del(ctx, fmt.Sprintf("kafka:attempts:%s", docID)).Err()
	}
}

// messageReader is the part of *kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads rebuild tasks and hands them to a TaskProcessor.
type Consumer struct {
	reader    messageReader
	topic     string
	processor TaskProcessor
	attempts  *attemptCounter
	backoff   time.Duration
}

// NewConsumer creates a consumer in cfg.GroupID. rdb may be nil.
func NewConsumer(cfg config.KafkaConfig, processor TaskProcessor, rdb *redis.Client) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers(cfg),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{
		reader:    r,
		topic:     cfg.Topic,
		processor: processor,
		attempts:  &attemptCounter{rdb: rdb, local: make(map[string]int64)},
		backoff:   2 * time.Second,
	}
}

// Run consumes until ctx is cancelled, then closes the reader. Fetch errors
// are logged and retried after the backoff.
func (c *Consumer) Run(ctx context.Context) {
	log.Infof("Kafka consumer started on topic '%s'", c.topic)
	defer func() {
		if err := c.reader.Close(); err != nil {
			log.Errorf("closing Kafka consumer failed: %v", err)
		}
	}()

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Errorf("reading from Kafka failed, retrying in %s: %v", c.backoff, err)
			if !c.wait(ctx) {
				return
			}
			continue
		}
		// a failed task is retried in place; handle gives up after maxAttempts
		for !c.handle(ctx, m.Value) {
			if !c.wait(ctx) {
				return
			}
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			log.Errorf("committing Kafka offset failed: %v", err)
		}
	}
}

// wait sleeps for the backoff and reports false if ctx ended first.
func (c *Consumer) wait(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.backoff):
		return true
	}
}

// handle processes one message and reports whether its offset should be
// committed. Malformed messages are committed so they cannot block the
// partition; failures are retried until maxAttempts.
func (c *Consumer) handle(ctx context.Context, value []byte) bool {
	var task tasks.RebuildTask
	if err := json.Unmarshal(value, &task); err != nil {
		log.Errorf("cannot decode Kafka message: %v, value: %s", err, string(value))
		return true
	}

	log.Infof("rebuild task started: document=%s, file=%s", task.DocumentID, task.FileName)
	if err := c.processor.Process(ctx, task); err != nil {
		log.Errorf("rebuild task failed: document=%s, error: %v", task.DocumentID, err)
		attempts := c.attempts.incr(ctx, task.DocumentID)
		if attempts >= maxAttempts {
			log.Errorf("rebuild task failed %d times, giving up: document=%s", attempts, task.DocumentID)
			c.attempts.reset(ctx, task.DocumentID)
			return true
		}
		return false
	}

	log.Infof("rebuild task done: document=%s", task.DocumentID)
	c.attempts.reset(ctx, task.DocumentID)
	return true
}
