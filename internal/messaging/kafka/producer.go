package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

const (
	defaultClientID   = "commerce-service"
	defaultMaxRetries = 5
)

// ErrNoBrokers возвращается, если producer создают без адресов брокеров.
var ErrNoBrokers = errors.New("kafka: no brokers configured")

// ProducerOption меняет sarama-конфигурацию producer.
type ProducerOption func(*sarama.Config)

// WithClientID задаёт client.id, под которым producer виден брокерам.
func WithClientID(id string) ProducerOption {
	return func(cfg *sarama.Config) {
		if id != "" {
			cfg.ClientID = id
		}
	}
}

// WithMaxRetries ограничивает число повторов отправки внутри sarama.
func WithMaxRetries(n int) ProducerOption {
	return func(cfg *sarama.Config) {
		if n >= 0 {
			cfg.Producer.Retry.Max = n
		}
	}
}

// Producer — синхронный Kafka producer для JSON-событий.
type Producer struct {
	sync   sarama.SyncProducer
	logger *log.Entry
}

// NewProducer подключается к брокерам и создаёт idempotent producer.
func NewProducer(brokers []string, opts ...ProducerOption) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}

	sp, err := sarama.NewSyncProducer(brokers, newProducerConfig(opts...))
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewProducerFromSync(sp), nil
}

// NewProducerFromSync оборачивает готовый sarama.SyncProducer (в тестах это sarama/mocks).
func NewProducerFromSync(sp sarama.SyncProducer) *Producer {
	return &Producer{
		sync:   sp,
		logger: log.WithField("component", "kafka-producer"),
	}
}

func newProducerConfig(opts ...ProducerOption) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = defaultClientID
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = defaultMaxRetries
	cfg.Producer.Return.Successes = true
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Idempotent = true
	// idempotent producer требует не больше одного in-flight запроса
	cfg.Net.MaxOpenRequests = 1

	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// PublishEnvelope отправляет конверт с ключом и заголовками, выведенными из него самого.
func (p *Producer) PublishEnvelope(topic string, envelope Envelope) error {
	return p.PublishEvent(topic, envelope.Key(), envelope, envelope.Headers()...)
}

// PublishEvent сериализует event в JSON и синхронно отправляет его в topic.
func (p *Producer) PublishEvent(topic string, key string, event any, headers ...sarama.RecordHeader) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal kafka event: %w", err)
	}

	logger := p.logger.WithFields(log.Fields{"topic": topic, "key": key})

	partition, offset, err := p.sync.SendMessage(&sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(value),
		Headers:   headers,
		Timestamp: time.Now(),
	})
	if err != nil {
		logger.WithError(err).Error("kafka send failed")
		return fmt.Errorf("send kafka message: %w", err)
	}

	logger.WithFields(log.Fields{"partition": partition, "offset": offset}).Debug("kafka message sent")
	return nil
}

// Close дожидается отправки буфера и закрывает соединения с брокерами.
func (p *Producer) Close() error {
	if err := p.sync.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}
