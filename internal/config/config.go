package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAPIBase        = "http://localhost:8080"
	androidAPIBase        = "http://10.0.2.2:8080"
	defaultHTTPTimeout    = 15 * time.Second
	defaultSessionFile    = ".campusdash/session.yaml"
	defaultStripeAPIURL   = "https://api.stripe.com"
	defaultDeliveryAddr   = "123 Campus Dr"
	defaultDeliveryInstrs = "Leave at door"
)

type Config struct {
	AppEnv      string
	AppPlatform string

	APIBaseURL  string
	HTTPTimeout time.Duration

	SessionBackend string
	SessionFile    string
	RedisURL       string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	PaymentMode          string
	StripePublishableKey string
	StripeAPIURL         string

	DeliveryAddress      string
	DeliveryInstructions string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	platform := getEnv("APP_PLATFORM", "native")

	apiBase := defaultAPIBase
	if platform == "android" {
		apiBase = androidAPIBase
	}

	cfg := &Config{
		AppEnv:               getEnv("APP_ENV", "development"),
		AppPlatform:          platform,
		APIBaseURL:           getEnv("API_BASE_URL", apiBase),
		HTTPTimeout:          getDuration("HTTP_TIMEOUT", defaultHTTPTimeout),
		SessionBackend:       getEnv("SESSION_BACKEND", "file"),
		SessionFile:          getEnv("SESSION_FILE", defaultSessionFile),
		RedisURL:             os.Getenv("REDIS_URL"),
		DBHost:               os.Getenv("DB_HOST"),
		DBUser:               os.Getenv("DB_USER"),
		DBPassword:           os.Getenv("DB_PASSWORD"),
		DBName:               os.Getenv("DB_NAME"),
		DBPort:               getEnv("DB_PORT", "5432"),
		PaymentMode:          getEnv("PAYMENT_MODE", "sandbox"),
		StripePublishableKey: os.Getenv("STRIPE_PUBLISHABLE_KEY"),
		StripeAPIURL:         getEnv("STRIPE_API_URL", defaultStripeAPIURL),
		DeliveryAddress:      getEnv("DELIVERY_ADDRESS", defaultDeliveryAddr),
		DeliveryInstructions: getEnv("DELIVERY_INSTRUCTIONS", defaultDeliveryInstrs),
	}

	return cfg
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	var errs []error

	if c.APIBaseURL == "" {
		errs = append(errs, errors.New("API_BASE_URL is empty"))
	}

	switch c.SessionBackend {
	case "memory", "file":
	case "redis":
		if c.RedisURL == "" {
			errs = append(errs, errors.New("SESSION_BACKEND=redis requires REDIS_URL"))
		}
	case "postgres":
		if c.DBHost == "" {
			errs = append(errs, errors.New("SESSION_BACKEND=postgres requires DB_HOST"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend))
	}

	switch c.PaymentMode {
	case "sandbox":
	case "stripe":
		if c.StripePublishableKey == "" {
			errs = append(errs, errors.New("PAYMENT_MODE=stripe requires STRIPE_PUBLISHABLE_KEY"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown PAYMENT_MODE %q", c.PaymentMode))
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getDuration accepts Go duration strings ("10s") or plain seconds ("10").
func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
