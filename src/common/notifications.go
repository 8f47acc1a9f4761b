package common

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"strings"

	"pbs/src/config"
	"pbs/src/lib"
	awslib "pbs/src/lib/aws"

	"github.com/aws/aws-sdk-go-v2/aws"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/tidwall/gjson"
	"github.com/yeqown/go-qrcode"
)

var errInvalidMailPayload = errors.New("invalid mail payload")

// MailDelivery sends a parsed message over the configured transport.
type MailDelivery func(input *lib.SendMailInput) error

var deliver MailDelivery = DeliverMail

// ParseMailPayload reads a queued e-mail. The second result is the text to
// encode as a QR code attachment, if any.
func ParseMailPayload(spayload string) (*lib.SendMailInput, string, error) {
	if !gjson.Valid(spayload) {
		return nil, "", errInvalidMailPayload
	}
	from := gjson.Get(spayload, "from").String()
	fromName := gjson.Get(spayload, "from-name").String()
	subject := gjson.Get(spayload, "subject").String()

	to := stringArray(gjson.Get(spayload, "to"))
	if len(to) == 0 {
		return nil, "", fmt.Errorf("%w: no recipients", errInvalidMailPayload)
	}
	input := &lib.SendMailInput{
		From:     from,
		FromName: fromName,
		To:       to,
		Cc:       stringArray(gjson.Get(spayload, "cc")),
		Bcc:      stringArray(gjson.Get(spayload, "bcc")),
		ReplyTo:  gjson.Get(spayload, "reply-to").String(),
		Subject:  subject,
		Body:     gjson.Get(spayload, "body").String(),
		Html:     gjson.Get(spayload, "html").Bool(),
	}
	return input, gjson.Get(spayload, "qr").String(), nil
}

func stringArray(res gjson.Result) []string {
	out := make([]string, 0)
	for _, item := range res.Array() {
		if s := strings.TrimSpace(item.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// WriteQRCode encodes text as a JPEG under the temp dir and returns its path.
func WriteQRCode(text string) (string, error) {
	qrc, err := qrcode.New(text)
	if err != nil {
		return "", err
	}
	filename := strings.NewReplacer("#", "", "/", "-", " ", "-").Replace(text)
	filepath := path.Join(config.GetTempDir(), fmt.Sprintf("%s.jpeg", filename))
	if err = qrc.Save(filepath); err != nil {
		log.Printf("Could not save qrcode to file [%s]: %s\n", filepath, err.Error())
		return "", err
	}
	return filepath, nil
}

// DeliverMail sends through SES when MAIL_TRANSPORT=ses and SMTP otherwise.
func DeliverMail(input *lib.SendMailInput) error {
	if config.GetMailTransport() != "ses" {
		return lib.SendMail(input)
	}
	if len(input.Attachments) > 0 {
		msg, err := lib.NewMailMessage(input)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if _, err := msg.WriteTo(&buf); err != nil {
			return err
		}
		return awslib.SESSendRawMessage(buf.Bytes())
	}
	body := &sestypes.Body{}
	content := &sestypes.Content{Data: aws.String(input.Body), Charset: aws.String("UTF-8")}
	if input.Html {
		body.Html = content
	} else {
		body.Text = content
	}
	from := input.From
	if input.FromName != "" {
		from = fmt.Sprintf("%s <%s>", input.FromName, input.From)
	}
	destination := &sestypes.Destination{
		ToAddresses:  input.To,
		CcAddresses:  input.Cc,
		BccAddresses: input.Bcc,
	}
	message := &sestypes.Message{
		Subject: &sestypes.Content{Data: aws.String(input.Subject), Charset: aws.String("UTF-8")},
		Body:    body,
	}
	return awslib.SESSendMessage(&from, destination, message)
}

// EmailsToSendHandler delivers one queued e-mail.
func EmailsToSendHandler(spayload string) {
	input, qr, err := ParseMailPayload(spayload)
	if err != nil {
		log.Printf("[MAILER] %s. Aborting\n", err.Error())
		return
	}
	log.Printf("from [%s] with subject: %s\n", input.From, input.Subject)
	if qr != "" {
		filepath, err := WriteQRCode(qr)
		if err != nil {
			log.Printf("[MAILER] error creating qrcode: %s\n", err.Error())
		} else {
			input.Attachments = append(input.Attachments, filepath)
			defer os.Remove(filepath)
		}
	}
	if err := deliver(input); err != nil {
		log.Printf("[MAILER] error sending email: %s\n", err.Error())
		return
	}
	log.Printf("[MAILER]: an email has been sent to %s\n", input.To)
}
