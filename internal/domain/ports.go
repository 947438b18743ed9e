package domain

import (
	"context"
	"time"
)

// Типы событий outbox.
const (
	AggregateTypeOrder    = "order"
	EventTypeOrderCreated = "order.created"
)

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
	Stats(ctx context.Context) (OutboxStats, error)
	// DeleteProcessedBefore удаляет до limit отправленных или failed сообщений,
	// обновлённых раньше before, и возвращает число удалённых.
	DeleteProcessedBefore(ctx context.Context, before time.Time, limit int) (int, error)
}

// OutboxStats описывает backlog outbox для метрик.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}
