// Package config loads process configuration from an optional YAML file and
// AEGIS_* environment variables.
package config

import "time"

// Config represents the top-level configuration.
type Config struct {
	Service   ServiceConfig   `mapstructure:"service"`
	Log       LogConfig       `mapstructure:"log"`
	Health    HealthConfig    `mapstructure:"health"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Messaging MessagingConfig `mapstructure:"messaging"`
}

type ServiceConfig struct {
	Name string `mapstructure:"name" validate:"required"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

type HealthConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

// DatabaseConfig configures Postgres. An empty URL runs the process on
// in-memory stores.
type DatabaseConfig struct {
	URL            string `mapstructure:"url"`
	MinConns       int32  `mapstructure:"min_conns" validate:"gte=0"`
	MaxConns       int32  `mapstructure:"max_conns" validate:"gtefield=MinConns"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

type TelemetryConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	Endpoint      string  `mapstructure:"endpoint" validate:"required_if=Enabled true"`
	SamplingRatio float64 `mapstructure:"sampling_ratio" validate:"gte=0,lte=1"`
}

// MessagingConfig selects the event transport. Only the section matching
// Provider needs to be filled in.
type MessagingConfig struct {
	Provider          string         `mapstructure:"provider" validate:"oneof=none queue pubsub kafka"`
	ConnectMaxElapsed time.Duration  `mapstructure:"connect_max_elapsed" validate:"gte=0"`
	RabbitMQ          RabbitMQConfig `mapstructure:"rabbitmq"`
	PubSub            PubSubConfig   `mapstructure:"pubsub"`
	Kafka             KafkaConfig    `mapstructure:"kafka"`
}

type RabbitMQConfig struct {
	URL            string        `mapstructure:"url"`
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout" validate:"gte=0"`
	Prefetch       int           `mapstructure:"prefetch" validate:"gte=1"`
}

type PubSubConfig struct {
	ProjectID                    string `mapstructure:"project_id"`
	TestGenerationRequestedTopic string `mapstructure:"test_generation_requested_topic"`
}

type KafkaConfig struct {
	Brokers  []string `mapstructure:"brokers"`
	Topic    string   `mapstructure:"topic"`
	ClientID string   `mapstructure:"client_id"`
}
