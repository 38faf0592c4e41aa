// Package config предоставляет структуры и функции для парсинга и загрузки конфига.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string          `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string          `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string          `yaml:"migrations_path" env-default:"./migrations"`
	Redis                   RedisConnection `yaml:"redis_connection"`
	RabbitMQ                RabbitMQ        `yaml:"rabbitmq"`
	SMTP                    SMTP            `yaml:"smtp"`
	Access                  Access          `yaml:"access"`
	Pricing                 Pricing         `yaml:"pricing"`
	Bank                    Bank            `yaml:"bank"`
	Webhook                 Webhook         `yaml:"webhook"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	RateLimit   float64       `yaml:"rate_limit" env-default:"20"`
	RateBurst   int           `yaml:"rate_burst" env-default:"40"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	Addr        string        `yaml:"addressredis"`
	Password    string        `yaml:"password" env:"REDIS_PASSWORD"`
	User        string        `yaml:"user"`
	DB          int           `yaml:"db"`
	MaxRetries  int           `yaml:"max_retries"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
	Timeout     time.Duration `yaml:"timeoutredis"`
	UserTTL     time.Duration `yaml:"user_ttl" env-default:"10m"`
}

// RabbitMQ настройки брокера для рассылки уведомлений.
type RabbitMQ struct {
	URL        string        `yaml:"url" env:"RABBITMQ_URL"`
	MaxRetries int           `yaml:"max_retries" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
	Exchange   string        `yaml:"exchange" env-default:"notifications"`
}

// SMTP настройки почтового транспорта сервиса рассылки.
type SMTP struct {
	Host       string `yaml:"host"`
	Port       string `yaml:"port" env-default:"587"`
	User       string `yaml:"user"`
	Password   string `yaml:"password" env:"SMTP_PASSWORD"`
	AdminEmail string `yaml:"admin_email"`
}

// Access настройки политики доступа.
type Access struct {
	TrialDays int `yaml:"trial_days" env-default:"3"`
}

// Pricing таблица цен тарифов.
type Pricing struct {
	SevenDays  int64  `yaml:"seven_days" env-default:"49"`
	ThirtyDays int64  `yaml:"thirty_days" env-default:"149"`
	Currency   string `yaml:"currency" env-default:"USD"`
}

// Bank реквизиты для банковского перевода, показываемые пользователю.
type Bank struct {
	Institution   string `yaml:"institution"`
	Holder        string `yaml:"holder"`
	AccountNumber string `yaml:"account_number"`
	IBAN          string `yaml:"iban"`
}

// Webhook настройки приёма уведомлений платёжного провайдера.
type Webhook struct {
	Secret string `yaml:"secret" env:"WEBHOOK_SECRET"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// Load читает конфиг из файла и переменных окружения.
func Load(configPath string) (*Config, error) {
	const op = "config.Load"
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: file %s does not exist", op, configPath)
	}
	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad функция для загрузки конфига по пути из CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}
