package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-04")
	assert.Nil(t, err)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("04/03/2026")
	assert.NotNil(t, err)
}

func TestNightsBetween(t *testing.T) {
	in, _ := ParseDate("2026-03-01")
	out, _ := ParseDate("2026-03-08")
	assert.Equal(t, 7, NightsBetween(in, out))
	assert.Equal(t, -7, NightsBetween(out, in))
	assert.Equal(t, 0, NightsBetween(in, in))

	// the DST switch in Europe happens on 2026-03-29
	loc, err := time.LoadLocation("Europe/Brussels")
	if err == nil {
		a := time.Date(2026, 3, 28, 0, 0, 0, 0, loc)
		b := time.Date(2026, 3, 30, 0, 0, 0, 0, loc)
		assert.Equal(t, 2, NightsBetween(a, b))
	}
}

func TestWithSuffix(t *testing.T) {
	t.Setenv("API_ENV", "production")
	assert.Equal(t, "EmailsToSend", WithSuffix("EmailsToSend"))
	t.Setenv("API_ENV", "local")
	assert.Equal(t, "EmailsToSend_local", WithSuffix("EmailsToSend"))
}

func TestIdentifiers(t *testing.T) {
	txn := NewTransactionID()
	assert.True(t, strings.HasPrefix(txn, "TXN-"))
	assert.Len(t, txn, 16)
	assert.Equal(t, strings.ToUpper(txn), txn)
	assert.NotEqual(t, txn, NewTransactionID())

	assert.Equal(t, "#BK-2026-0007", BookingReference(2026, 7))
	assert.Equal(t, "#BK-2026-12345", BookingReference(2026, 12345))
}
