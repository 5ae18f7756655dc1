package kafka

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer ships drained stack items to a Kafka topic.
type Producer struct {
	writer messageWriter
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Send writes one item, keyed by its sequence ID.
func (p *Producer) Send(
	ctx context.Context,
	seq uint64,
	payload []byte,
) error {
	err := p.writer.WriteMessages(ctx, messageFor(seq, payload))
	return errors.Wrapf(err, "kafka: send seq %d", seq)
}

// messageFor keys the message by the big-endian sequence ID so one
// item always lands on the same partition.
func messageFor(seq uint64, payload []byte) kafka.Message {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return kafka.Message{Key: key, Value: payload}
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
