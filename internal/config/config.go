// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
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
	Env                     string `yaml:"env"`
	StorageConnectionString string `yaml:"storage_connection_string"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitMQ                `yaml:"rabbitmq"`
	HTTPServer              `yaml:"http_server"`
	Issuance                `yaml:"issuance"`
	SMTP                    `yaml:"smtp"`
	Telegram                `yaml:"telegram"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// RabbitMQ структура для настройки подключения к брокеру сообщений
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"rabbitmq_url"`
	RabbitMQMaxRetries int           `yaml:"rabbitmq_max_retries"`
	RabbitMQRetryDelay time.Duration `yaml:"rabbitmq_retry_delay"`
}

// Issuance структура с настройками движка ежедневной выдачи талонов
type Issuance struct {
	Issuer              string        `yaml:"issuer" env-default:"meal-credential-issuer"`
	Timezone            string        `yaml:"timezone" env-default:"Europe/Moscow"`
	SigningKeyPath      string        `yaml:"signing_key_path"`
	DefaultWeekdays     []int         `yaml:"default_weekdays" env-default:"1,2,3,4,5"`
	NextServiceDayBound int           `yaml:"next_service_day_bound" env-default:"7"`
	Concurrency         int           `yaml:"concurrency" env-default:"1"`
	DispatchTimeout     time.Duration `yaml:"dispatch_timeout" env-default:"10s"`
	RunBudget           time.Duration `yaml:"run_budget" env-default:"15m"`
	AlertMissingPeriod  bool          `yaml:"alert_missing_period" env-default:"true"`
}

// SMTP структура для настройки почтового транспорта воркера доставки
type SMTP struct {
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort string `yaml:"smtp_port"`
	SMTPUser string `yaml:"smtp_user"`
	SMTPPass string `yaml:"smtp_pass"`
}

// Telegram структура для настройки канала оповещения операторов
type Telegram struct {
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID int64  `yaml:"telegram_chat_id"`
}

// MustLoad функция для загрузки конфига, путь берётся из переменной CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"RabbitMQ:\n"+
			"  URL: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"Issuance:\n"+
			"  Issuer: %s\n"+
			"  Timezone: %s\n"+
			"  SigningKeyPath: %s\n"+
			"  NextServiceDayBound: %d\n"+
			"  Concurrency: %d\n"+
			"  DispatchTimeout: %s\n"+
			"  RunBudget: %s\n",
		c.Env,
		c.StorageConnectionString,
		c.AddressRedis,
		c.DB,
		c.RabbitMQURL,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.Issuer,
		c.Timezone,
		c.SigningKeyPath,
		c.NextServiceDayBound,
		c.Concurrency,
		c.DispatchTimeout,
		c.RunBudget,
	)
}
