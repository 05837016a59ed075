package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v6"
)

type Environment string

const (
	EnvLocal      Environment = "local"
	EnvDev        Environment = "dev"
	EnvProduction Environment = "production"
)

type Config struct {
	App struct {
		Env      Environment `env:"APP_ENV" envDefault:"local"`
		Timezone string      `env:"APP_TIMEZONE" envDefault:"Local"`
	}

	HTTP struct {
		Host string `env:"HTTP_SERVER_HOST" envDefault:""`
		Port string `env:"HTTP_SERVER_PORT" envDefault:"8080"`
	}

	DB struct {
		// sqlite (по умолчанию, in-memory) или postgres.
		Driver string `env:"DB_DRIVER" envDefault:"sqlite"`

		// Для sqlite — DSN файла либо ":memory:".
		DSN string `env:"DB_DSN" envDefault:":memory:"`

		Host            string `env:"DB_HOST" envDefault:"postgres"`
		Port            int    `env:"DB_PORT" envDefault:"5432"`
		User            string `env:"DB_USER" envDefault:"consultation"`
		Password        string `env:"DB_PASSWORD" envDefault:"consultation"`
		Name            string `env:"DB_NAME" envDefault:"consultation_db"`
		SSLMode         string `env:"DB_SSLMODE" envDefault:"disable"`
		TimeZone        string `env:"DB_TIMEZONE" envDefault:"Europe/Moscow"`
		MaxOpenConns    int    `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns    int    `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
		ConnMaxLifeTime int    `env:"DB_CONN_MAX_LIFETIME_MIN" envDefault:"30"` // минут
	}

	Booking struct {
		// Проверять ли покрытие доступностью в CheckConflict. Историческое
		// поведение — не проверять, поэтому по умолчанию выключено.
		RequireAvailabilityCoverage bool `env:"BOOKING_REQUIRE_AVAILABILITY" envDefault:"false"`

		// Шаг слота в минутах.
		SlotStepMinutes int `env:"BOOKING_SLOT_STEP_MIN" envDefault:"30"`
	}

	Cache struct {
		Enabled bool `env:"CACHE_ENABLED" envDefault:"true"`
		Size    int  `env:"CACHE_DAYS_SIZE" envDefault:"366"`
	}

	Seed struct {
		// Путь к JSON с начальными записями; пусто — старт с пустым хранилищем.
		Path string `env:"SEED_APPOINTMENTS_PATH" envDefault:""`
	}
}

func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.App.Env = Environment(strings.ToLower(string(cfg.App.Env)))
	cfg.DB.Driver = strings.ToLower(cfg.DB.Driver)

	switch cfg.DB.Driver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("unsupported DB driver: %q", cfg.DB.Driver)
	}

	if cfg.Booking.SlotStepMinutes <= 0 {
		return nil, fmt.Errorf("invalid slot step: %d", cfg.Booking.SlotStepMinutes)
	}

	return cfg, nil
}

func (c *Config) IsLocal() bool {
	return c.App.Env == EnvLocal
}
