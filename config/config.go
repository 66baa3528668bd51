package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Env        string
	ServerPort int
	Database   DatabaseConfig
	JWT        JWTConfig
	SMTP       SMTPConfig
	Notifier   NotifierConfig
	RabbitMQ   RabbitMQConfig
	PubSub     PubSubConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

type JWTConfig struct {
	Secret string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// NotifierConfig selects how reset-code emails leave the process:
// "smtp" delivers inline, "rabbitmq" and "pubsub" enqueue a job for the
// mailer worker.
type NotifierConfig struct {
	Backend string
	Queue   string
}

type RabbitMQConfig struct {
	URL           string
	QueueDurable  bool
	PrefetchCount int
}

type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionSuffix string
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	return Config{
		Env:        getEnv("ENV", "dev"),
		ServerPort: getEnvInt("SERVER_PORT", 3000),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "fitkit"),
			Password: getEnv("DB_PASSWORD", "password"),
			DBName:   getEnv("DB_NAME", "fitkit_auth"),
			UseSSL:   getEnvBool("DB_USE_SSL", false),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("EMAIL_USER", ""),
			Password: getEnv("EMAIL_PASS", ""),
			From:     getEnv("EMAIL_FROM", getEnv("EMAIL_USER", "")),
		},
		Notifier: NotifierConfig{
			Backend: getEnv("NOTIFIER_BACKEND", "smtp"),
			Queue:   getEnv("NOTIFIER_QUEUE", "password-reset-emails"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:           getEnv("RABBITMQ_URL", ""),
			QueueDurable:  getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
			PrefetchCount: getEnvInt("RABBITMQ_PREFETCH", 1),
		},
		PubSub: PubSubConfig{
			ProjectID:          getEnv("PUBSUB_PROJECT_ID", ""),
			CredentialsFile:    getEnv("PUBSUB_CREDENTIALS_FILE", ""),
			SubscriptionSuffix: getEnv("PUBSUB_SUBSCRIPTION_SUFFIX", "-sub"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		return valueStr == "1" || valueStr == "true"
	}
	return defaultValue
}
