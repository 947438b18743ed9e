package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
	"github.com/vladislavdragonenkov/commerce/internal/messaging/kafka"
)

// dlqValue собирает сообщение в том виде, в каком его публикует outbox worker.
func dlqValue(t *testing.T, aggregateID, eventType string) []byte {
	t.Helper()

	letter, err := json.Marshal(map[string]any{
		"outbox_id":      "outbox-" + aggregateID,
		"aggregate_type": domain.AggregateTypeOrder,
		"aggregate_id":   aggregateID,
		"event_type":     eventType,
		"payload":        map[string]any{"order_id": aggregateID, "total": "15.00"},
		"publish_error":  "kafka: client has run out of available brokers",
	})
	if err != nil {
		t.Fatalf("marshal dead letter: %v", err)
	}

	value, err := json.Marshal(kafka.NewEnvelope(domain.OutboxMessage{
		ID:            "outbox-" + aggregateID,
		AggregateType: domain.AggregateTypeOrder,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       letter,
	}))
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return value
}

func TestParseBrokers(t *testing.T) {
	brokers := parseBrokers(" broker-1:9092, ,broker-2:9092 ")
	if len(brokers) != 2 {
		t.Fatalf("unexpected brokers count: got=%d want=2", len(brokers))
	}
	if brokers[0] != "broker-1:9092" || brokers[1] != "broker-2:9092" {
		t.Fatalf("unexpected brokers: %+v", brokers)
	}
}

func TestRestoreEnvelope(t *testing.T) {
	envelope, err := restoreEnvelope(dlqValue(t, "order-1", domain.EventTypeOrderCreated))
	if err != nil {
		t.Fatalf("restoreEnvelope failed: %v", err)
	}
	if envelope.ID != "outbox-order-1" || envelope.AggregateID != "order-1" {
		t.Fatalf("unexpected envelope ids: %+v", envelope)
	}
	if envelope.EventType != domain.EventTypeOrderCreated {
		t.Fatalf("unexpected event type: %s", envelope.EventType)
	}

	var payload map[string]string
	if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
		t.Fatalf("original payload must be valid JSON: %v", err)
	}
	if payload["total"] != "15.00" {
		t.Fatalf("original payload lost: %s", string(envelope.Payload))
	}
}

func TestRestoreEnvelope_Invalid(t *testing.T) {
	testCases := []struct {
		name  string
		value string
	}{
		{name: "not json", value: `not-json`},
		{name: "no payload", value: `{"id":"x"}`},
		{name: "payload not an object", value: `{"id":"x","payload":"oops"}`},
		{name: "missing original payload", value: `{"id":"x","payload":{"outbox_id":"x","event_type":"order.created"}}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := restoreEnvelope([]byte(tc.value)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "  ", "x", "y"); got != "x" {
		t.Fatalf("unexpected first non-empty value: %q", got)
	}
	if got := firstNonEmpty("", " "); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}

func TestParseConfig_FromFlags(t *testing.T) {
	cfg, err := parseConfig([]string{
		"-brokers=broker-1:9092,broker-2:9092",
		"-source-topic=commerce.dlq",
		"-target-topic=commerce.order.events",
		"-event-type=order.created",
		"-limit=10",
		"-execute=true",
		"-from-newest=true",
		"-idle-timeout=3s",
	}, func(string) string { return "" })
	if err != nil {
		t.Fatalf("parseConfig failed: %v", err)
	}
	if len(cfg.brokers) != 2 || cfg.limit != 10 || !cfg.execute || !cfg.fromNewest {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.eventType != domain.EventTypeOrderCreated {
		t.Fatalf("unexpected event type filter: %q", cfg.eventType)
	}
	if cfg.idleTimeout != 3*time.Second {
		t.Fatalf("unexpected idle-timeout: %s", cfg.idleTimeout)
	}
}

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := parseConfig(nil, func(key string) string {
		if key == "COMMERCE_KAFKA_BROKERS" {
			return "kafka:9092"
		}
		return ""
	})
	if err != nil {
		t.Fatalf("parseConfig failed: %v", err)
	}
	if cfg.sourceTopic != kafka.TopicDeadLetterQueue || cfg.targetTopic != kafka.TopicOrderEvents {
		t.Fatalf("unexpected topics: %+v", cfg)
	}
	if cfg.limit != defaultReplayLimit || cfg.idleTimeout != defaultIdleTimeout || cfg.execute {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.brokers) != 1 || cfg.brokers[0] != "kafka:9092" {
		t.Fatalf("brokers must fall back to env: %+v", cfg.brokers)
	}
}

func TestParseConfig_ValidationErrors(t *testing.T) {
	noEnv := func(string) string { return "" }
	testCases := []struct {
		args    []string
		message string
	}{
		{args: []string{"-brokers="}, message: "kafka brokers are required"},
		{args: []string{"-brokers=b:9092", "-source-topic="}, message: "source-topic is required"},
		{args: []string{"-brokers=b:9092", "-target-topic="}, message: "target-topic is required"},
		{args: []string{"-brokers=b:9092", "-target-topic=commerce.dlq"}, message: "must differ"},
		{args: []string{"-brokers=b:9092", "-limit=0"}, message: "limit must be > 0"},
		{args: []string{"-brokers=b:9092", "-idle-timeout=0s"}, message: "idle-timeout must be > 0"},
		{args: []string{"-unknown"}, message: "flag provided but not defined"},
	}

	for _, tc := range testCases {
		_, err := parseConfig(tc.args, noEnv)
		if err == nil || !strings.Contains(err.Error(), tc.message) {
			t.Fatalf("args %v: expected %q, got %v", tc.args, tc.message, err)
		}
	}
}

func newTestReplayer(cfg config, deps dependencies) *replayer {
	if cfg.sourceTopic == "" {
		cfg.sourceTopic = kafka.TopicDeadLetterQueue
	}
	if cfg.targetTopic == "" {
		cfg.targetTopic = kafka.TopicOrderEvents
	}
	if cfg.idleTimeout == 0 {
		cfg.idleTimeout = 20 * time.Millisecond
	}
	return &replayer{cfg: cfg, deps: deps, logger: log.WithField("component", "dlq-reprocess-test")}
}

func TestReplayPartition_DryRun(t *testing.T) {
	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 2}}}
	consumer := &stubPartitionConsumerSource{
		consumers: map[int32]partitionConsumer{
			0: closedPartitionConsumer(
				&sarama.ConsumerMessage{Offset: 0, Value: dlqValue(t, "order-1", domain.EventTypeOrderCreated)},
				&sarama.ConsumerMessage{Offset: 1, Value: []byte(`{"foo":"bar"}`)},
			),
		},
	}

	r := newTestReplayer(config{}, dependencies{client: client, consumer: consumer})
	stats, err := r.replayPartition(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("replayPartition failed: %v", err)
	}
	if stats != (replayStats{processed: 2, replayed: 1, skipped: 1}) {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(consumer.calls) != 1 || consumer.calls[0].offset != 0 {
		t.Fatalf("unexpected consume calls: %+v", consumer.calls)
	}
}

func TestReplayPartition_ExecutePublishesOriginalEvent(t *testing.T) {
	syncProducer := mocks.NewSyncProducer(t, nil)
	syncProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != kafka.TopicOrderEvents {
			return fmt.Errorf("unexpected topic %s", msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "order-1" {
			return fmt.Errorf("unexpected key %s", key)
		}
		value, _ := msg.Value.Encode()
		envelope, err := kafka.ParseEnvelope(value)
		if err != nil {
			return err
		}
		if envelope.EventType != domain.EventTypeOrderCreated || !strings.Contains(string(envelope.Payload), `"total":"15.00"`) {
			return fmt.Errorf("unexpected envelope %+v", envelope)
		}
		if len(msg.Headers) != 2 || string(msg.Headers[0].Value) != domain.EventTypeOrderCreated {
			return fmt.Errorf("unexpected headers %+v", msg.Headers)
		}
		return nil
	})
	publisher := kafka.NewProducerFromSync(syncProducer)
	defer func() { _ = publisher.Close() }()

	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 1}}}
	consumer := &stubPartitionConsumerSource{
		consumers: map[int32]partitionConsumer{
			0: closedPartitionConsumer(&sarama.ConsumerMessage{Offset: 0, Value: dlqValue(t, "order-1", domain.EventTypeOrderCreated)}),
		},
	}

	r := newTestReplayer(config{execute: true}, dependencies{client: client, consumer: consumer, publisher: publisher})
	stats, err := r.replayPartition(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("replayPartition failed: %v", err)
	}
	if stats.replayed != 1 {
		t.Fatalf("expected replayed=1, got %+v", stats)
	}
}

func TestReplayPartition_EventTypeFilter(t *testing.T) {
	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 2}}}
	consumer := &stubPartitionConsumerSource{
		consumers: map[int32]partitionConsumer{
			0: closedPartitionConsumer(
				&sarama.ConsumerMessage{Offset: 0, Value: dlqValue(t, "order-1", domain.EventTypeOrderCreated)},
				&sarama.ConsumerMessage{Offset: 1, Value: dlqValue(t, "order-2", "order.cancelled")},
			),
		},
	}

	r := newTestReplayer(config{eventType: domain.EventTypeOrderCreated}, dependencies{client: client, consumer: consumer})
	stats, err := r.replayPartition(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("replayPartition failed: %v", err)
	}
	if stats.replayed != 1 || stats.skipped != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestReplayPartition_FromNewest(t *testing.T) {
	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 3, newest: 10}}}
	consumer := &stubPartitionConsumerSource{
		consumers: map[int32]partitionConsumer{0: closedPartitionConsumer()},
	}

	r := newTestReplayer(config{fromNewest: true}, dependencies{client: client, consumer: consumer})
	if _, err := r.replayPartition(context.Background(), 0, 2); err != nil {
		t.Fatalf("replayPartition failed: %v", err)
	}
	if consumer.calls[0].offset != 8 {
		t.Fatalf("expected start offset 8, got %d", consumer.calls[0].offset)
	}

	consumer.calls = nil
	if _, err := r.replayPartition(context.Background(), 0, 50); err != nil {
		t.Fatalf("replayPartition failed: %v", err)
	}
	if consumer.calls[0].offset != 3 {
		t.Fatalf("start offset must not go below oldest, got %d", consumer.calls[0].offset)
	}
}

func TestReplayPartition_ErrorBranches(t *testing.T) {
	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 2}}}

	offsetErr := &stubOffsetClient{offsetErr: map[int32]error{0: errors.New("offset")}}
	r := newTestReplayer(config{}, dependencies{client: offsetErr, consumer: &stubPartitionConsumerSource{}})
	if _, err := r.replayPartition(context.Background(), 0, 1); err == nil {
		t.Fatal("expected offset error")
	}

	r = newTestReplayer(config{}, dependencies{client: client, consumer: &stubPartitionConsumerSource{consumeErr: errors.New("consume")}})
	if _, err := r.replayPartition(context.Background(), 0, 1); err == nil {
		t.Fatal("expected consume error")
	}

	pcWithErr := &stubPartitionConsumer{
		messages: make(chan *sarama.ConsumerMessage),
		errors:   make(chan *sarama.ConsumerError, 1),
	}
	pcWithErr.errors <- &sarama.ConsumerError{Err: errors.New("consumer boom")}
	r = newTestReplayer(config{}, dependencies{client: client, consumer: &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{0: pcWithErr}}})
	if _, err := r.replayPartition(context.Background(), 0, 1); err == nil {
		t.Fatal("expected consumer error branch")
	}

	syncProducer := mocks.NewSyncProducer(t, nil)
	syncProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	consumer := &stubPartitionConsumerSource{
		consumers: map[int32]partitionConsumer{
			0: closedPartitionConsumer(&sarama.ConsumerMessage{Offset: 0, Value: dlqValue(t, "order-1", domain.EventTypeOrderCreated)}),
		},
	}
	r = newTestReplayer(config{execute: true}, dependencies{client: client, consumer: consumer, publisher: kafka.NewProducerFromSync(syncProducer)})
	if _, err := r.replayPartition(context.Background(), 0, 1); !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("expected publish error, got %v", err)
	}
}

func TestReplayPartition_IdleTimeoutAndContext(t *testing.T) {
	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 2}}}

	idle := &stubPartitionConsumer{
		messages: make(chan *sarama.ConsumerMessage),
		errors:   make(chan *sarama.ConsumerError),
	}
	r := newTestReplayer(config{idleTimeout: 10 * time.Millisecond}, dependencies{client: client, consumer: &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{0: idle}}})
	stats, err := r.replayPartition(context.Background(), 0, 1)
	if err != nil {
		t.Fatalf("unexpected idle-timeout error: %v", err)
	}
	if stats.processed != 0 {
		t.Fatalf("expected processed=0, got %+v", stats)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r = newTestReplayer(config{idleTimeout: time.Second}, dependencies{client: client, consumer: &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{0: idle}}})
	if _, err := r.replayPartition(ctx, 0, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestReplayerRun(t *testing.T) {
	if _, err := newTestReplayer(config{limit: 1}, dependencies{}).run(context.Background()); err == nil {
		t.Fatal("expected missing deps error")
	}

	client := &stubOffsetClient{
		partitions: []int32{2, 0},
		offsets: map[int32]offsetRange{
			0: {oldest: 0, newest: 1},
			2: {oldest: 0, newest: 1},
		},
	}
	consumer := &stubPartitionConsumerSource{
		consumers: map[int32]partitionConsumer{
			0: closedPartitionConsumer(&sarama.ConsumerMessage{Partition: 0, Value: dlqValue(t, "order-1", domain.EventTypeOrderCreated)}),
			2: closedPartitionConsumer(&sarama.ConsumerMessage{Partition: 2, Value: dlqValue(t, "order-2", domain.EventTypeOrderCreated)}),
		},
	}

	stats, err := newTestReplayer(config{limit: 1}, dependencies{client: client, consumer: consumer}).run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if stats.processed != 1 || len(consumer.calls) != 1 {
		t.Fatalf("expected one partition due limit=1, got stats=%+v calls=%d", stats, len(consumer.calls))
	}
	if consumer.calls[0].partition != 0 {
		t.Fatalf("expected first sorted partition=0, got %d", consumer.calls[0].partition)
	}

	if _, err := newTestReplayer(config{limit: 1, execute: true}, dependencies{client: client, consumer: consumer}).run(context.Background()); err == nil {
		t.Fatal("expected execute mode to require publisher")
	}

	empty := &stubOffsetClient{}
	if _, err := newTestReplayer(config{limit: 1}, dependencies{client: empty, consumer: consumer}).run(context.Background()); err != nil {
		t.Fatalf("expected nil error for empty partitions, got %v", err)
	}

	broken := &stubOffsetClient{partitionsErr: errors.New("metadata")}
	if _, err := newTestReplayer(config{limit: 1}, dependencies{client: broken, consumer: consumer}).run(context.Background()); err == nil {
		t.Fatal("expected partitions error")
	}
}

func TestRun_ClosesDependencies(t *testing.T) {
	oldDeps := newDependencies
	defer func() { newDependencies = oldDeps }()

	cfg := config{sourceTopic: kafka.TopicDeadLetterQueue, targetTopic: kafka.TopicOrderEvents, limit: 1, idleTimeout: 20 * time.Millisecond}

	newDependencies = func(config) (dependencies, error) {
		return dependencies{}, errors.New("deps failed")
	}
	if err := run(context.Background(), cfg); err == nil || !strings.Contains(err.Error(), "deps failed") {
		t.Fatalf("expected deps error, got %v", err)
	}

	client := &stubOffsetClient{
		partitions: []int32{0},
		offsets:    map[int32]offsetRange{0: {oldest: 0, newest: 1}},
	}
	consumer := &stubPartitionConsumerSource{
		consumers: map[int32]partitionConsumer{
			0: closedPartitionConsumer(&sarama.ConsumerMessage{Value: dlqValue(t, "order-1", domain.EventTypeOrderCreated)}),
		},
	}
	newDependencies = func(config) (dependencies, error) {
		return dependencies{client: client, consumer: consumer}, nil
	}
	if err := run(context.Background(), cfg); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !client.closed || !consumer.closed {
		t.Fatalf("expected deps to be closed: client=%v consumer=%v", client.closed, consumer.closed)
	}
}

func TestFailExits(t *testing.T) {
	if os.Getenv("DLQ_TEST_FAIL_EXIT") == "1" {
		fail("boom")
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestFailExits")
	cmd.Env = append(os.Environ(), "DLQ_TEST_FAIL_EXIT=1")
	err := cmd.Run()
	if err == nil {
		t.Fatal("expected subprocess to exit with error")
	}
	if exitErr, ok := err.(*exec.ExitError); !ok || exitErr.ExitCode() == 0 {
		t.Fatalf("expected non-zero exit code, got %v", err)
	}
}

type offsetRange struct {
	oldest int64
	newest int64
}

type stubOffsetClient struct {
	partitions    []int32
	partitionsErr error
	offsets       map[int32]offsetRange
	offsetErr     map[int32]error
	closed        bool
}

func (s *stubOffsetClient) GetOffset(_ string, partition int32, marker int64) (int64, error) {
	if err, ok := s.offsetErr[partition]; ok {
		return 0, err
	}

	r := s.offsets[partition]
	switch marker {
	case sarama.OffsetOldest:
		return r.oldest, nil
	case sarama.OffsetNewest:
		return r.newest, nil
	default:
		return 0, fmt.Errorf("unsupported marker %d", marker)
	}
}

func (s *stubOffsetClient) Partitions(string) ([]int32, error) {
	if s.partitionsErr != nil {
		return nil, s.partitionsErr
	}
	return append([]int32(nil), s.partitions...), nil
}

func (s *stubOffsetClient) Close() error {
	s.closed = true
	return nil
}

type consumeCall struct {
	partition int32
	offset    int64
}

type stubPartitionConsumerSource struct {
	consumers  map[int32]partitionConsumer
	consumeErr error
	calls      []consumeCall
	closed     bool
}

func (s *stubPartitionConsumerSource) ConsumePartition(_ string, partition int32, offset int64) (partitionConsumer, error) {
	s.calls = append(s.calls, consumeCall{partition: partition, offset: offset})
	if s.consumeErr != nil {
		return nil, s.consumeErr
	}
	pc, ok := s.consumers[partition]
	if !ok {
		return nil, fmt.Errorf("partition %d not configured", partition)
	}
	return pc, nil
}

func (s *stubPartitionConsumerSource) Close() error {
	s.closed = true
	return nil
}

type stubPartitionConsumer struct {
	messages chan *sarama.ConsumerMessage
	errors   chan *sarama.ConsumerError
}

func (s *stubPartitionConsumer) Messages() <-chan *sarama.ConsumerMessage { return s.messages }
func (s *stubPartitionConsumer) Errors() <-chan *sarama.ConsumerError     { return s.errors }
func (s *stubPartitionConsumer) Close() error                             { return nil }

func closedPartitionConsumer(messages ...*sarama.ConsumerMessage) *stubPartitionConsumer {
	msgCh := make(chan *sarama.ConsumerMessage, len(messages))
	errCh := make(chan *sarama.ConsumerError)
	for i, msg := range messages {
		msg.Offset = int64(i)
		msgCh <- msg
	}
	close(msgCh)
	close(errCh)
	return &stubPartitionConsumer{messages: msgCh, errors: errCh}
}
