package main

/*

	Tail the provisioning outcome topic and render each terminal result for
	operators watching a run from elsewhere.

*/

import (
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/luysmarlcm/provision815/kafka"
	provision815 "github.com/luysmarlcm/provision815/structs"
)

var (
	LogLevel   = flag.String("loglevel", "info", "Log Level")
	KafkaTopic = flag.String("kafka.topic", "provisionoutcome", "Kafka topic to consume from")
	KafkaBrk   = flag.String("kafka.brokers", "localhost:9092", "Kafka brokers list separated by commas")
	KafkaGroup = flag.String("kafka.group", "outcomewatch", "Kafka group id")
)

func init() {
	flag.Parse()
	lvl, _ := log.ParseLevel(*LogLevel)
	log.SetLevel(lvl)
}

func main() {
	// setup signal catching
	sigs := make(chan os.Signal, 1)

	brokers := strings.Split(*KafkaBrk, ",")
	topics := strings.Split(*KafkaTopic, ",")

	signal.Notify(sigs)
	go func() {
		for {
			select {
			case s := <-sigs:
				log.Debugf("RECEIVED SIGNAL: %s", s)
				if s == syscall.SIGQUIT || s == syscall.SIGKILL || s == syscall.SIGTERM || s == syscall.SIGINT {
					AppCleanup()
					os.Exit(1)
				}
			}
		}
	}()

	kafka.StartConsumer(brokers, topics, *KafkaGroup, MessageHandler)
}

// Quit cleanly
func AppCleanup() {
	log.Error("Stopping Application")
	kafka.StopConsumer()
}

func MessageHandler(topic string, timestamp time.Time, data []byte) {
	var event provision815.OutcomeEvent
	err := json.Unmarshal(data, &event)
	if err != nil {
		log.Warnf("unmarshaling error: %v", err)
		return
	}
	if event.Outcome == nil {
		log.Warnf("Run %v reached %v with no outcome payload", event.RunID, event.State)
		return
	}
	if event.Outcome.OK() {
		log.Infof("Run %v provisioned connection %v in zone %v - %v", event.RunID, event.ConnectionID, event.Zone, event.Outcome.Message)
	} else {
		log.Errorf("Run %v failed on connection %v in zone %v - %v", event.RunID, event.ConnectionID, event.Zone, event.Outcome.Message)
	}
	for _, line := range event.Outcome.Logs {
		log.Info("  " + line)
	}
}
