package lib

import (
	"encoding/json"
	"log"
	"os"

	"pbs/src/types"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

func GetKafkaProducerConfig(clientId string) *kafka.ConfigMap {
	return &kafka.ConfigMap{
		"bootstrap.servers": os.Getenv("KAFKA_BROKER"),
		"client.id":         clientId,
		"acks":              "all",
	}
}

func KafkaProduceMessage(clientId string, topic string, payload map[string]any) error {
	p, err := kafka.NewProducer(GetKafkaProducerConfig(clientId))
	if err != nil {
		log.Printf("[kafka] Error creating producer: %s\n", err.Error())
		return err
	}
	defer p.Close()

	value, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[kafka] Error encoding payload: %s\n", err.Error())
		return err
	}

	err = p.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          value,
	}, nil)
	if err != nil {
		log.Printf("[kafka] Error producing to %s: %s\n", topic, err.Error())
		return err
	}
	if remaining := p.Flush(5000); remaining > 0 {
		log.Printf("[kafka] %d message(s) to %s not delivered before timeout\n", remaining, topic)
	}
	return nil
}

// KafkaConsumer polls topics in the background and hands every message body
// to handler.
func KafkaConsumer(groupId string, topics []string, handler types.Handler) {
	log.Printf("[kafka] Initializing consumer %s for %v\n", groupId, topics)
	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers": os.Getenv("KAFKA_BROKER"),
		"group.id":          groupId,
		"auto.offset.reset": "smallest",
		"retry.backoff.ms":  100,
	})
	if err != nil {
		log.Printf("[kafka] Error creating consumer: %s\n", err.Error())
		return
	}
	if err = c.SubscribeTopics(topics, nil); err != nil {
		log.Printf("[kafka] Error subscribing: %s\n", err.Error())
		c.Close()
		return
	}
	go func() {
		defer c.Close()
		for {
			ev := c.Poll(100)
			switch e := ev.(type) {
			case *kafka.Message:
				go handler(string(e.Value))
			case kafka.Error:
				log.Printf("[kafka] Consumer error: %v\n", e)
				if e.IsFatal() {
					return
				}
			}
		}
	}()
}
