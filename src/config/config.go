package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// const dsn = "host=localhost user=postgres password=password dbname=pbsdb port=5432 sslmode=disable TimeZone=Africa/Nairobi"

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

// GetDBDriver returns "postgres" unless DB_DRIVER says otherwise. "sqlite" reads
// its file path from DATABASE_NAME.
func GetDBDriver() string {
	driver := os.Getenv("DB_DRIVER")
	if driver == "" {
		return "postgres"
	}
	return strings.ToLower(driver)
}

const DATE_FORMAT = "2006-01-02"

const TIME_PARSE_FORMAT = "2006-01-02 15:04:05 -07:00"

func GetPort() string {
	port := os.Getenv("PORT")
	if port == "" {
		return "9090"
	}
	return port
}

func GetDefaultCurrency() string {
	currency := os.Getenv("DEFAULT_CURRENCY")
	if currency == "" {
		return "EUR"
	}
	return strings.ToUpper(currency)
}

func GetPaymentProvider() string {
	provider := os.Getenv("PAYMENT_PROVIDER")
	if provider == "" {
		return "paystack"
	}
	return strings.ToLower(provider)
}

func GetPaystackBaseURL() string {
	baseURL := os.Getenv("PAYSTACK_BASE_URL")
	if baseURL == "" {
		return "https://api.paystack.co"
	}
	return strings.TrimSuffix(baseURL, "/")
}

// GetPetFriendlyProperties lists the property slugs that accept the pet add-on.
func GetPetFriendlyProperties() []string {
	v, ok := os.LookupEnv("PET_FRIENDLY_PROPERTIES")
	if !ok {
		return []string{"ocean-kifaru-north-sea"}
	}
	slugs := []string{}
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			slugs = append(slugs, strings.ToLower(s))
		}
	}
	return slugs
}

func GetCatalogCacheTTL() time.Duration {
	return durationFromEnv("CATALOG_CACHE_TTL", 5*time.Minute)
}

// GetPendingBookingTTL is how long an unpaid booking may hold its dates. Zero
// disables the expiry sweep.
func GetPendingBookingTTL() time.Duration {
	return durationFromEnv("PENDING_BOOKING_TTL", 0)
}

func GetSweepInterval() time.Duration {
	return durationFromEnv("SWEEP_INTERVAL", 15*time.Minute)
}

// GetMailTransport is "ses" or "smtp".
func GetMailTransport() string {
	transport := os.Getenv("MAIL_TRANSPORT")
	if transport == "" {
		return "smtp"
	}
	return strings.ToLower(transport)
}

func GetTempDir() string {
	dir := os.Getenv("TEMP_DIR")
	if dir == "" {
		return os.TempDir()
	}
	return dir
}

func GetBookingEventsTopic() string {
	topic := os.Getenv("BOOKING_EVENTS_TOPIC")
	if topic == "" {
		return "booking-events"
	}
	return topic
}

func GetEmailQueue() string {
	queue := os.Getenv("EMAIL_QUEUE")
	if queue == "" {
		return "EmailsToSend"
	}
	return queue
}

func GetMailFrom() (string, string) {
	from := os.Getenv("MAIL_FROM")
	if from == "" {
		from = "reservations@kifaru.example"
	}
	name := os.Getenv("MAIL_FROM_NAME")
	if name == "" {
		name = "Kifaru Reservations"
	}
	return from, name
}

func durationFromEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err == nil {
		return d
	}
	minutes, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return time.Duration(minutes) * time.Minute
}
