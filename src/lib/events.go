package lib

import (
	"encoding/json"
	"errors"
	"log"

	"pbs/src/types"
	"pbs/src/utils"
)

var errSQSUnavailable = errors.New("sqs client unavailable")

// BrokerPublisher sends JSON messages to Kafka when running locally and to SQS
// everywhere else.
type BrokerPublisher struct {
	ClientID string
}

func NewBrokerPublisher(clientId string) *BrokerPublisher {
	return &BrokerPublisher{ClientID: clientId}
}

func (b *BrokerPublisher) Publish(topic string, payload types.JSONB) error {
	name := utils.WithSuffix(topic)
	if utils.IsLocal() {
		return KafkaProduceMessage(b.ClientID, name, payload)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := SQSProduceMessage(name, string(body)); err != nil {
		log.Printf("[events] Failed to publish to %s: %s\n", name, err.Error())
		return err
	}
	return nil
}
