package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/Shopify/sarama"
	log "github.com/sirupsen/logrus"
)

// Sarama configuration options
var (
	version        = "2.1.1"
	assignor       = "roundrobin"
	oldest         = true
	Client         sarama.ConsumerGroup
	WG             *sync.WaitGroup
	StopClient     = make(chan bool)
	MessageHandler HandlerFunc
)

type HandlerFunc func(string, time.Time, []byte)

// StartConsumer joins the consumer group and blocks, feeding every claimed
// message to the handler, until StopConsumer is called.
func StartConsumer(brokers []string, topics []string, group string, handler HandlerFunc) error {
	log.Info("Starting a new Sarama consumer")
	var err error
	MessageHandler = handler

	var kafkaversion sarama.KafkaVersion
	kafkaversion, err = sarama.ParseKafkaVersion(version)
	if err != nil {
		log.Panicf("Error parsing Kafka version: %v", err)
	}

	config := sarama.NewConfig()
	config.Version = kafkaversion

	switch assignor {
	case "sticky":
		config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategySticky
	case "roundrobin":
		config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	case "range":
		config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRange
	default:
		log.Panicf("Unrecognized consumer group partition assignor: %s", assignor)
	}

	if oldest {
		config.Consumer.Offsets.Initial = sarama.OffsetOldest
	}

	consumer := Consumer{
		ready: make(chan bool),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	Client, err = sarama.NewConsumerGroup(brokers, group, config)
	if err != nil {
		log.Panicf("Error creating consumer group client: %v", err)
	}

	WG = &sync.WaitGroup{}
	WG.Add(1)

	go func() {
		defer WG.Done()
		for {
			// Consume has to run in a loop - a server-side rebalance
			// ends the session and the claims have to be recreated
			if err = Client.Consume(ctx, topics, &consumer); err != nil {
				log.Panicf("Error from consumer: %v", err)
			}
			if ctx.Err() != nil {
				return
			}
			consumer.ready = make(chan bool)
		}
	}()

	<-consumer.ready // Await till the consumer has been set up
	log.Info("Sarama consumer up and running!...")

	select {
	case <-ctx.Done():
		log.Info("terminating: context cancelled")
	case <-StopClient:
		return err
	}
	return err
}

func StopConsumer() {
	log.Error("Shutting down consumer")
	StopClient <- true
	WG.Wait()
	if err := Client.Close(); err != nil {
		log.Errorf("Error closing client: %v", err)
	}
}

// Consumer represents a Sarama consumer group consumer
type Consumer struct {
	ready chan bool
}

// Setup is run at the beginning of a new session, before ConsumeClaim
func (consumer *Consumer) Setup(sarama.ConsumerGroupSession) error {
	close(consumer.ready)
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited
func (consumer *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim must start a consumer loop of ConsumerGroupClaim's Messages().
func (consumer *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		log.Debugf("Message claimed: value = %s, timestamp = %v, topic = %s", string(message.Value), message.Timestamp, message.Topic)
		MessageHandler(message.Topic, message.Timestamp, message.Value)
		session.MarkMessage(message, "")
	}

	return nil
}
