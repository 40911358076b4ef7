// Package config содержит логику чтения конфигурации сервиса бронирования.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config содержит параметры конфигурации сервиса бронирования.
type Config struct {
	RunAddress    string `env:"RUN_ADDRESS"`
	DatabaseURI   string `env:"DATABASE_URI"`
	NotifyAddress string `env:"NOTIFY_ADDRESS"`
	NatsAddress   string `env:"NATS_ADDRESS"`
	RoomsFile     string `env:"ROOMS_FILE"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных
// окружения. Переменные окружения имеют приоритет; локальный файл .env
// подхватывается, если он есть.
func Parse() (*Config, error) {
	// Отсутствие .env — не ошибка.
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envNotifyAddress := cfg.NotifyAddress
	envNatsAddress := cfg.NatsAddress
	envRoomsFile := cfg.RoomsFile

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.NotifyAddress, "n", "", "notification gateway address")
	flag.StringVar(&cfg.NatsAddress, "q", "", "NATS address for booking events")
	flag.StringVar(&cfg.RoomsFile, "rooms", "", "path to JSON room catalog")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envNotifyAddress != "" {
		cfg.NotifyAddress = envNotifyAddress
	}
	if envNatsAddress != "" {
		cfg.NatsAddress = envNatsAddress
	}
	if envRoomsFile != "" {
		cfg.RoomsFile = envRoomsFile
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}
