// Package audit publishes relayed events to Kafka as a best-effort firehose
// for downstream consumers (notification fan-out, analytics). The relay never
// waits on it and keeps working when it is disabled or unhealthy.
package audit

import (
	"log/slog"

	"github.com/IBM/sarama"
)

type relayEvent struct {
	eventType string
	payload   []byte
}

// KafkaPublisher queues events internally and ships them from its own
// goroutine, so Publish never blocks the relay's run loop.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	events   chan relayEvent
	done     chan struct{}
}

// NewKafkaPublisher connects a sync producer to the given brokers.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Version = sarama.V2_0_0_0
	config.ClientID = "chat-relay-service"

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	p := &KafkaPublisher{
		producer: producer,
		topic:    topic,
		events:   make(chan relayEvent, 1024),
		done:     make(chan struct{}),
	}
	go p.run()
	return p, nil
}

// Publish enqueues one event. When the queue is full the event is dropped;
// the firehose is best-effort by contract.
func (p *KafkaPublisher) Publish(eventType string, payload []byte) {
	select {
	case p.events <- relayEvent{eventType: eventType, payload: payload}:
	default:
		slog.Warn("Audit queue full, dropping event", "eventType", eventType)
	}
}

func (p *KafkaPublisher) run() {
	defer close(p.done)
	for event := range p.events {
		msg := &sarama.ProducerMessage{
			Topic: p.topic,
			Key:   sarama.StringEncoder(event.eventType),
			Value: sarama.ByteEncoder(event.payload),
		}
		if _, _, err := p.producer.SendMessage(msg); err != nil {
			slog.Warn("Failed to publish relay event", "eventType", event.eventType, "error", err)
		}
	}
}

// Close flushes queued events and shuts the producer down.
func (p *KafkaPublisher) Close() error {
	close(p.events)
	<-p.done
	return p.producer.Close()
}
