package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/rl1809/warehouse/internal/core/domain"
)

const (
	BatchTimeout = 10 * time.Millisecond
	BatchSize    = 100
	WriteTimeout = 5 * time.Second
)

// OperationEvent is the message body published for every committed ledger entry.
type OperationEvent struct {
	ID            string    `json:"id"`
	Sequence      int64     `json:"sequence"`
	SKU           string    `json:"sku"`
	Type          string    `json:"type"`
	Quantity      int       `json:"quantity"`
	Difference    int       `json:"difference"`
	Balance       int       `json:"balance"`
	UnitPrice     string    `json:"unit_price"`
	Reason        string    `json:"reason"`
	OperationDate time.Time `json:"operation_date"`
	RecordedAt    time.Time `json:"recorded_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: BatchTimeout,
			BatchSize:    BatchSize,
			WriteTimeout: WriteTimeout,
		},
	}
}

// Publish keys messages by SKU so the events of one product share a
// partition. InventoryService calls it in ledger order; Sequence is carried
// in the event for consumers that merge partitions.
func (p *KafkaPublisher) Publish(ctx context.Context, record domain.OperationRecord) error {
	msg, err := newOperationMessage(record)
	if err != nil {
		return err
	}
	return errors.Wrapf(p.writer.WriteMessages(ctx, msg), "publish operation %s", record.ID)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func newOperationMessage(record domain.OperationRecord) (kafka.Message, error) {
	value, err := json.Marshal(OperationEvent{
		ID:            record.ID,
		Sequence:      record.Sequence,
		SKU:           record.SKU,
		Type:          string(record.Type),
		Quantity:      record.Quantity,
		Difference:    record.Difference,
		Balance:       record.Balance,
		UnitPrice:     record.UnitPrice.String(),
		Reason:        record.Reason,
		OperationDate: record.OperationDate,
		RecordedAt:    record.RecordedAt,
	})
	if err != nil {
		return kafka.Message{}, errors.Wrap(err, "encode operation event")
	}

	return kafka.Message{
		Key:   []byte(record.SKU),
		Value: value,
		Headers: []kafka.Header{
			{Key: "operation_type", Value: []byte(record.Type)},
		},
	}, nil
}
