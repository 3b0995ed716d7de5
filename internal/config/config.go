package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig     `yaml:"http"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Outbox   OutboxConfig   `yaml:"outbox"`
	Breaker  BreakerConfig  `yaml:"breaker"`
	Cache    CacheConfig    `yaml:"cache"`
}

type HTTPConfig struct {
	Port int `yaml:"port" env:"HTTP_PORT" env-default:"8081"`
}

type PostgresConfig struct {
	Port    string `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	Host    string `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	DbName  string `yaml:"db_name" env:"POSTGRES_DB"`
	User    string `yaml:"user" env:"POSTGRES_USER"`
	Pwd     string `yaml:"password" env:"POSTGRES_PASSWORD"`
	SslMode string `yaml:"sslmode" env:"POSTGRES_SSLMODE" env-default:"disable"`
}

type KafkaConfig struct {
	BrokerList    []string      `yaml:"broker_list" env:"KAFKA_BROKERS" env-separator:"," env-default:"localhost:9092"`
	ConsumerGroup string        `yaml:"consumer_group" env:"KAFKA_CONSUMER_GROUP"`
	DLQPrefix     string        `yaml:"dlq_prefix" env-default:"food-ordering.dlq"`
	MaxRetries    int           `yaml:"max_retries" env-default:"3"`
	RetryBackoff  time.Duration `yaml:"retry_backoff" env-default:"200ms"`
	Topics        TopicsConfig  `yaml:"topics"`
}

type TopicsConfig struct {
	OrderCreateRequest         string `yaml:"order_create_request" env-default:"order-create-request"`
	PaymentRequest             string `yaml:"payment_request" env-default:"payment-request"`
	PaymentResponse            string `yaml:"payment_response" env-default:"payment-response"`
	RestaurantApprovalRequest  string `yaml:"restaurant_approval_request" env-default:"restaurant-approval-request"`
	RestaurantApprovalResponse string `yaml:"restaurant_approval_response" env-default:"restaurant-approval-response"`
}

type OutboxConfig struct {
	Interval       time.Duration `yaml:"interval" env:"OUTBOX_INTERVAL" env-default:"1s"`
	PublishTimeout time.Duration `yaml:"publish_timeout" env:"OUTBOX_PUBLISH_TIMEOUT" env-default:"3s"`
	BatchSize      int           `yaml:"batch_size" env-default:"100"`
}

type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures" env-default:"5"`
	OpenTimeout time.Duration `yaml:"open_timeout" env-default:"10s"`
}

type CacheConfig struct {
	Size int           `yaml:"size" env-default:"128"`
	TTL  time.Duration `yaml:"ttl" env-default:"10m"`
}

func InitConfig() Config {
	configPath := getConfigPath()

	if configPath == "" {
		panic("config path is not set")
	}

	cfg, err := ReadConfig(configPath)
	if err != nil {
		panic(err.Error())
	}

	return cfg
}

func ReadConfig(configPath string) (Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return Config{}, fmt.Errorf("config file does not exist: %s", configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	return cfg, nil
}

func getConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	return path
}
