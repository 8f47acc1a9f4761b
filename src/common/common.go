package common

import (
	"log"

	"pbs/src/config"
	"pbs/src/lib"
	awslib "pbs/src/lib/aws"
	"pbs/src/utils"

	"github.com/tidwall/gjson"
)

func SQSConsumers() {
	dlq := awslib.NewSQSConsumer(utils.WithSuffix("DLQ"), func(payload string) {
		log.Println("DLQ: message received")
	})
	dlq.Listen()
	emails := awslib.NewSQSConsumer(utils.WithSuffix(config.GetEmailQueue()), EmailsToSendHandler)
	emails.Listen()
	events := awslib.NewSQSConsumer(utils.WithSuffix(config.GetBookingEventsTopic()), BookingEventsHandler)
	events.Listen()
}

func KafkaConsumers() {
	lib.KafkaConsumer("pbs-mailer", []string{utils.WithSuffix(config.GetEmailQueue())}, EmailsToSendHandler)
	lib.KafkaConsumer("pbs-booking-events", []string{utils.WithSuffix(config.GetBookingEventsTopic())}, BookingEventsHandler)
}

// BookingEventsHandler records booking lifecycle events in the server log.
func BookingEventsHandler(spayload string) {
	if !gjson.Valid(spayload) {
		log.Println("[events] Received invalid json body. Aborting")
		return
	}
	event := gjson.Get(spayload, "event").String()
	reference := gjson.Get(spayload, "reference").String()
	status := gjson.Get(spayload, "status").String()
	log.Printf("[events] %s %s status=%s property=%d\n", event, reference, status, gjson.Get(spayload, "property_id").Int())
}
