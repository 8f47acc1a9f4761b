package booking

import (
	"fmt"
	"log"
	"os"

	"pbs/src/config"
	"pbs/src/lib"
	"pbs/src/models"
	"pbs/src/utils"
)

func (m *Manager) propertyName(b *models.Booking) string {
	if b.Property != nil {
		return b.Property.Name
	}
	var property models.Property
	if err := m.db.Select("name").First(&property, b.PropertyID).Error; err != nil {
		return fmt.Sprintf("property #%d", b.PropertyID)
	}
	return property.Name
}

func (m *Manager) sendConfirmationMail(b *models.Booking) {
	from, fromName := config.GetMailFrom()
	input := &lib.SendMailInput{
		Subject:  fmt.Sprintf("Booking confirmed: %s", b.ReferenceString()),
		From:     from,
		FromName: fromName,
		To:       []string{b.Email},
		Body: fmt.Sprintf(`
			<p>Dear %s,</p>
			<p>Your booking <b>%s</b> at <b>%s</b> is confirmed.</p>
			<p>Check-in: %s</p>
			<p>Check-out: %s</p>
			<p>Guests: %d</p>
			<p>Total: %s %s</p>
			<p>Manage your booking <a href="%s/bookings/%d">here</a></p>
			<p>This is a system-generated message. Do not reply to this email.</p>
			`,
			b.FullName,
			b.ReferenceString(),
			m.propertyName(b),
			utils.FormatDate(b.CheckIn),
			utils.FormatDate(b.CheckOut),
			b.Guests,
			b.TotalAmount.StringFixed(2),
			b.Currency,
			os.Getenv("APP_HOST"),
			b.ID,
		),
		Html:   true,
		QRCode: b.ReferenceString(),
	}
	m.sendMail(input)
}

func (m *Manager) sendCancellationMail(b *models.Booking) {
	from, fromName := config.GetMailFrom()
	input := &lib.SendMailInput{
		Subject:  fmt.Sprintf("Booking cancelled: %s", b.ReferenceString()),
		From:     from,
		FromName: fromName,
		To:       []string{b.Email},
		Body: fmt.Sprintf(`
			<p>Dear %s,</p>
			<p>Your booking <b>%s</b> at <b>%s</b> from %s to %s has been cancelled.</p>
			<p>If a payment was made it will be refunded to the original payment method.</p>
			<p>This is a system-generated message. Do not reply to this email.</p>
			`,
			b.FullName,
			b.ReferenceString(),
			m.propertyName(b),
			utils.FormatDate(b.CheckIn),
			utils.FormatDate(b.CheckOut),
		),
		Html: true,
	}
	m.sendMail(input)
}

func (m *Manager) sendMail(input *lib.SendMailInput) {
	if m.mailer == nil || len(input.To) == 0 || input.To[0] == "" {
		return
	}
	if err := m.mailer.Enqueue(input); err != nil {
		log.Printf("[mailer] Error queueing message: %s\n", err.Error())
	}
}
