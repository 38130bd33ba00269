package kafka

import (
	"encoding/json"

	"github.com/Shopify/sarama"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	provision815 "github.com/luysmarlcm/provision815/structs"
)

var (
	OutcomeProducer sarama.SyncProducer
	OutcomeTopic    = "provisionoutcome"
)

func StartProducer(brokers []string) {
	OutcomeProducer = NewProducer(brokers)
	if OutcomeProducer != nil {
		log.Info("Connected to Kafka cluster!")
	}
}

// SubmitOutcome publishes a terminal provisioning outcome to the outcome
// topic and returns the event id.
func SubmitOutcome(event provision815.OutcomeEvent) (id string, err error) {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	message := sarama.ProducerMessage{
		Topic: OutcomeTopic,
		Key:   sarama.StringEncoder(event.RunID),
		Value: sarama.ByteEncoder(data),
	}
	partition, offset, err := OutcomeProducer.SendMessage(&message)
	log.Debugf("Partition is %v and offset is %v", partition, offset)
	if err != nil {
		log.Errorf("Kafka producer error %v", err)
	}
	id = event.EventID
	return
}

func NewProducer(brokers []string) sarama.SyncProducer {
	config := sarama.NewConfig()
	config.Producer.Retry.Max = 10 // Retry up to 10 times to produce the message
	config.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		log.Fatalf("Failed to start Sarama producer: %v", err)
	}

	return producer
}

func Shutdown() {
	OutcomeProducer.Close()
}

// Sink adapts the package producer to the workflow engine's outcome sink.
type Sink struct{}

func (Sink) RecordOutcome(event provision815.OutcomeEvent) error {
	_, err := SubmitOutcome(event)
	return err
}
