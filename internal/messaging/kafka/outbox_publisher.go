package kafka

import (
	"cmp"
	"errors"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

var errPublisherNotInitialized = errors.New("kafka outbox publisher is not initialized")

// OutboxTopicPublisher отправляет outbox-сообщения в один Kafka topic.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
}

// NewOutboxPublisher создаёт паблишер для transactional outbox; пустой topic означает TopicOrderEvents.
func NewOutboxPublisher(producer *Producer, topic string) domain.OutboxPublisher {
	return &OutboxTopicPublisher{
		producer: producer,
		topic:    cmp.Or(topic, TopicOrderEvents),
	}
}

// Publish оборачивает сообщение в Envelope. Ключ партиционирования — ID агрегата,
// поэтому события одного заказа сохраняют порядок.
func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return errPublisherNotInitialized
	}
	return p.producer.PublishEnvelope(p.topic, NewEnvelope(event))
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
