package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "commerce.order.events"
	TopicDeadLetterQueue = "commerce.dlq" // сообщения outbox, которые не удалось опубликовать
)

// Kafka headers
const (
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
)

// Envelope — JSON-обёртка, в которой outbox-сообщение уходит в Kafka.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// NewEnvelope создаёт обёртку для outbox-сообщения с текущим временем публикации.
func NewEnvelope(msg domain.OutboxMessage) Envelope {
	payload := json.RawMessage(msg.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return Envelope{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       payload,
		PublishedAt:   time.Now().UTC(),
	}
}

// Key возвращает ключ партиционирования: ID агрегата, а без него ID сообщения.
func (e Envelope) Key() string {
	if e.AggregateID != "" {
		return e.AggregateID
	}
	return e.ID
}

// Headers возвращает Kafka-заголовки, по которым consumer может фильтровать без разбора payload.
func (e Envelope) Headers() []sarama.RecordHeader {
	return []sarama.RecordHeader{
		{Key: []byte(HeaderEventType), Value: []byte(e.EventType)},
		{Key: []byte(HeaderAggregateType), Value: []byte(e.AggregateType)},
	}
}

// ParseEnvelope разбирает значение Kafka-сообщения.
func ParseEnvelope(value []byte) (Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(value, &envelope); err != nil {
		return Envelope{}, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	return envelope, nil
}
