package queue

import (
	"context"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	batchTimeout = 10 * time.Millisecond
	batchSize    = 100
)

// KafkaProducer publishes order messages to a Kafka topic. Writes are
// synchronous: Publish returns only after the broker has accepted the
// message, which is what makes intake's 202 response trustworthy.
type KafkaProducer struct {
	writer *kafkago.Writer
}

// NewKafkaProducer creates a producer for the given broker and topic.
func NewKafkaProducer(broker, topic string) *KafkaProducer {
	return &KafkaProducer{
		writer: &kafkago.Writer{
			Addr:                   kafkago.TCP(broker),
			Topic:                  topic,
			Balancer:               &kafkago.LeastBytes{},
			BatchTimeout:           batchTimeout,
			BatchSize:              batchSize,
			AllowAutoTopicCreation: true,
		},
	}
}

// Publish writes one message, propagating the caller's trace context in
// the message headers.
func (p *KafkaProducer) Publish(ctx context.Context, key, value []byte) error {
	msg := kafkago.Message{Key: key, Value: value}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		msg.Headers = append(msg.Headers, kafkago.Header{Key: k, Value: []byte(v)})
	}

	return p.writer.WriteMessages(ctx, msg)
}

func (p *KafkaProducer) Close() error { return p.writer.Close() }

// KafkaConsumer fetches order messages from a Kafka consumer group.
// Offsets are committed manually through Delivery.Ack, so a crash before
// ack leaves the message uncommitted and it is delivered again.
type KafkaConsumer struct {
	reader *kafkago.Reader
}

// NewKafkaConsumer creates a group consumer for the given broker, topic
// and group.
func NewKafkaConsumer(broker, topic, groupID string) *KafkaConsumer {
	return &KafkaConsumer{
		reader: kafkago.NewReader(kafkago.ReaderConfig{
			Brokers: []string{broker},
			Topic:   topic,
			GroupID: groupID,
		}),
	}
}

// Fetch blocks for the next message. The returned delivery's Ack commits
// the offset.
func (c *KafkaConsumer) Fetch(ctx context.Context) (Delivery, error) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return Delivery{}, err
	}

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}

	return Delivery{
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
		ack: func(ctx context.Context) error {
			return c.reader.CommitMessages(ctx, msg)
		},
	}, nil
}

func (c *KafkaConsumer) Close() error { return c.reader.Close() }

// KafkaDepth reports the consumer group's lag on a topic: messages
// published but not yet committed by the group. Best effort; concurrent
// consumption can make the number stale the moment it is read.
type KafkaDepth struct {
	client  *kafkago.Client
	topic   string
	groupID string
}

// NewKafkaDepth creates a depth counter for the given broker, topic and
// consumer group.
func NewKafkaDepth(broker, topic, groupID string) *KafkaDepth {
	return &KafkaDepth{
		client:  &kafkago.Client{Addr: kafkago.TCP(broker)},
		topic:   topic,
		groupID: groupID,
	}
}

// Depth sums last-offset minus committed-offset over all partitions.
func (d *KafkaDepth) Depth(ctx context.Context) (int64, error) {
	meta, err := d.client.Metadata(ctx, &kafkago.MetadataRequest{
		Topics: []string{d.topic},
	})
	if err != nil {
		return 0, err
	}

	var partitions []int
	for _, t := range meta.Topics {
		if t.Name != d.topic {
			continue
		}
		for _, p := range t.Partitions {
			partitions = append(partitions, p.ID)
		}
	}
	if len(partitions) == 0 {
		return 0, nil
	}

	offsetReqs := make([]kafkago.OffsetRequest, 0, len(partitions))
	for _, p := range partitions {
		offsetReqs = append(offsetReqs, kafkago.LastOffsetOf(p))
	}
	listResp, err := d.client.ListOffsets(ctx, &kafkago.ListOffsetsRequest{
		Topics: map[string][]kafkago.OffsetRequest{d.topic: offsetReqs},
	})
	if err != nil {
		return 0, err
	}

	fetchResp, err := d.client.OffsetFetch(ctx, &kafkago.OffsetFetchRequest{
		GroupID: d.groupID,
		Topics:  map[string][]int{d.topic: partitions},
	})
	if err != nil {
		return 0, err
	}

	committed := make(map[int]int64, len(partitions))
	for _, p := range fetchResp.Topics[d.topic] {
		committed[p.Partition] = p.CommittedOffset
	}

	var depth int64
	for _, p := range listResp.Topics[d.topic] {
		last := p.LastOffset
		c := committed[p.Partition]
		if c < 0 {
			c = p.FirstOffset
		}
		if last > c {
			depth += last - c
		}
	}
	return depth, nil
}
