package utils

import (
	"fmt"
	"os"
	"pbs/src/config"
	"strings"
	"time"

	"github.com/google/uuid"
)

func IsProd() bool {
	return os.Getenv("API_ENV") == "production"
}

func IsLocal() bool {
	return os.Getenv("API_ENV") == "local"
}

// WithSuffix appends the environment to a queue or topic name outside of
// production, e.g. EmailsToSend_local.
func WithSuffix(name string) string {
	env := os.Getenv("API_ENV")
	if env == "" || env == "production" {
		return name
	}
	return fmt.Sprintf("%s_%s", name, env)
}

// ParseDate parses a wire date into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(config.DATE_FORMAT, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

func FormatDate(t time.Time) string {
	return Day(t).Format(config.DATE_FORMAT)
}

// Day truncates t to its calendar date at midnight UTC.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func Today() time.Time {
	return Day(time.Now())
}

// NightsBetween counts the nights of the stay [checkIn, checkOut).
func NightsBetween(checkIn, checkOut time.Time) int {
	return int(Day(checkOut).Sub(Day(checkIn)).Hours() / 24)
}

func NewTransactionID() string {
	return "TXN-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

func NewPaymentReference() string {
	return "PAY-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

func BookingReference(year int, id uint) string {
	return fmt.Sprintf("#BK-%d-%04d", year, id)
}
