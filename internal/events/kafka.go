package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

const publishTimeout = 10 * time.Second

func splitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// KafkaPublisher writes events as JSON to a topic, keyed by post id.
type KafkaPublisher struct {
	w  *kafka.Writer
	wg sync.WaitGroup
}

func NewKafkaPublisher(brokers, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(splitBrokers(brokers)...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			BatchTimeout:           50 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) PublishPostCreated(_ context.Context, evt PostCreated) {
	value, err := json.Marshal(evt)
	if err != nil {
		log.Printf("[Kafka] marshal post-created %d: %v", evt.PostID, err)
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		// Detached from the request: the response may already be gone.
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		msg := kafka.Message{
			Key:   []byte(strconv.FormatUint(uint64(evt.PostID), 10)),
			Value: value,
			Time:  time.Now(),
		}
		if err := p.w.WriteMessages(ctx, msg); err != nil {
			log.Printf("[Kafka] publish post-created %d: %v", evt.PostID, err)
		}
	}()
}

func (p *KafkaPublisher) Close() error {
	p.wg.Wait()
	return p.w.Close()
}

// KafkaConsumer reads post-created events and passes them to a handler.
// Handler failures are logged and the message is committed anyway.
type KafkaConsumer struct {
	reader *kafka.Reader
	handle Handler
}

func NewKafkaConsumer(brokers, groupID, topic string, h Handler) *KafkaConsumer {
	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        splitBrokers(brokers),
			GroupID:        groupID,
			Topic:          topic,
			MinBytes:       1,
			MaxBytes:       10e6,
			CommitInterval: time.Second,
		}),
		handle: h,
	}
}

// Run blocks until ctx is cancelled.
func (c *KafkaConsumer) Run(ctx context.Context) error {
	defer func() {
		_ = c.reader.Close()
	}()

	cfg := c.reader.Config()
	log.Printf("[Kafka] consumer started | group=%s | topic=%s | brokers=%v", cfg.GroupID, cfg.Topic, cfg.Brokers)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("[Kafka] consumer shutting down")
				return nil
			}
			log.Printf("[Kafka] fetch error: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		if err := c.dispatch(ctx, m.Value); err != nil {
			log.Printf("[Kafka] handler error at offset %d: %v", m.Offset, err)
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			log.Printf("[Kafka] commit error: %v", err)
		}
	}
}

func (c *KafkaConsumer) dispatch(ctx context.Context, value []byte) error {
	var evt PostCreated
	if err := json.Unmarshal(value, &evt); err != nil {
		return fmt.Errorf("decode post-created: %w", err)
	}
	return c.handle(ctx, evt)
}
