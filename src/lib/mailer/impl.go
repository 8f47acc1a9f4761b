package mailer

import (
	"fmt"
	"pbs/src/config"
	"pbs/src/lib"
	"pbs/src/types"
)

type Publisher interface {
	Publish(topic string, payload types.JSONB) error
}

// Queue hands e-mails to the broker instead of sending them inline.
type Queue struct {
	publisher Publisher
	queue     string
}

func NewQueue(p Publisher) *Queue {
	return &Queue{publisher: p, queue: config.GetEmailQueue()}
}

func (q *Queue) Enqueue(input *lib.SendMailInput) error {
	emailBody := types.JSONB{
		"from":      input.From,
		"from-name": input.FromName,
		"to":        input.To,
		"cc":        input.Cc,
		"bcc":       input.Bcc,
		"reply-to":  input.ReplyTo,
		"body":      input.Body,
		"html":      input.Html,
		"subject":   input.Subject,
	}
	if input.QRCode != "" {
		emailBody["qr"] = input.QRCode
	}
	if err := q.publisher.Publish(q.queue, emailBody); err != nil {
		return fmt.Errorf("error sending message to queue: %s", err.Error())
	}
	return nil
}
