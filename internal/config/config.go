package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is loaded from the environment. Only STORAGE-specific settings
// are required, and only for the backend actually selected.
type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// memory, sqlite, or mongo
	Storage     string `envconfig:"STORAGE" default:"memory"`
	MongoURL    string `envconfig:"MONGODB_URL"`
	MongoDBName string `envconfig:"MONGODB_DB_NAME" default:"medimind"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"medimind.db"`

	// Timezone used to classify trigger hours into periods.
	Timezone string `envconfig:"USER_TIMEZONE" default:"UTC"`

	EmailEnabled bool   `envconfig:"EMAIL_ENABLED" default:"false"`
	ResendAPIKey string `envconfig:"RESEND_API_KEY"`
	EmailFrom    string `envconfig:"EMAIL_FROM" default:"MediMind <reminders@medimind.in>"`
	EmailReplyTo string `envconfig:"EMAIL_REPLY_TO"`

	DispatchWorkers int           `envconfig:"DISPATCH_WORKERS" default:"4"`
	SendTimeout     time.Duration `envconfig:"SEND_TIMEOUT" default:"15s"`
}

func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, err
	}
	return c, nil
}
