package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env            string        `yaml:"env" env-default:"local" json:"-"`
	DatabaseDSN    string        `yaml:"database_dsn" env:"DATABASE_URL" env-required:"true" json:"-"`
	MigrationsPath string        `yaml:"migrations_path" env-default:"migrations" json:"-"`
	HTTPServer     HTTPServer    `yaml:"http_server" json:"-"`
	Auth           AuthConfig    `yaml:"auth" json:"-"`
	Redis          RedisConfig   `yaml:"redis" json:"-"`
	Presence       PresenceConfig `yaml:"presence" json:"presence"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env-default:"localhost:8082" json:"-"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s" json:"-"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s" json:"-"`
}

type AuthConfig struct {
	Secret   string        `yaml:"secret" env:"AUTH_SECRET" env-required:"true" json:"-"`
	TokenTTL time.Duration `yaml:"token_ttl" env-default:"720h" json:"-"`
}

type RedisConfig struct {
	Addr       string        `yaml:"addr" env:"REDIS_ADDR" json:"-"`
	Password   string        `yaml:"password" env:"REDIS_PASSWORD" json:"-"`
	DB         int           `yaml:"db" env-default:"0" json:"-"`
	SummaryTTL time.Duration `yaml:"summary_ttl" env-default:"5m" json:"-"`
}

type PresenceConfig struct {
	OfflineAfter time.Duration `yaml:"offline_after" env-default:"90s" json:"offline_after"`
}

func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist: %s", configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config %s", err)
	}

	return &cfg
}
