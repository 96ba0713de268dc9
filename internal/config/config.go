// Package config loads service settings from an optional YAML file, a .env
// file and the process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/model"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

type Storage struct {
	Driver string `yaml:"driver"` // postgres|memory
}

type Postgres struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	ConnectAttempts int           `yaml:"connect_attempts"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
}

type Redis struct {
	Addr     string `yaml:"addr"` // empty disables the sweep lease
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Auth struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

type Logging struct {
	Env       string `yaml:"env"`     // dev|stage|prod
	Service   string `yaml:"service"` // meeting-room-booking
	Version   string `yaml:"version"`
	Backend   string `yaml:"backend"` // std|zap
	AddSource bool   `yaml:"add_source"`
	Debug     bool   `yaml:"debug"`
}

// Booking carries the admission policy constants.
type Booking struct {
	MaxActiveReservations int           `yaml:"max_active_reservations"`
	Buffer                time.Duration `yaml:"buffer"`
	SlotWidth             time.Duration `yaml:"slot_width"`
	UserGrace             time.Duration `yaml:"user_grace"`
	AdminGrace            time.Duration `yaml:"admin_grace"`
	ConflictModel         string        `yaml:"conflict_model"` // capacity|exclusive
}

type Sweep struct {
	Interval      time.Duration `yaml:"interval"`
	BeforeRequest bool          `yaml:"before_request"`
	LeaseTTL      time.Duration `yaml:"lease_ttl"`
}

type RateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type Seed struct {
	Rooms []model.CreateRoomRequest `yaml:"rooms"`
}

type Config struct {
	HTTP      HTTP      `yaml:"http"`
	Storage   Storage   `yaml:"storage"`
	Postgres  Postgres  `yaml:"postgres"`
	Redis     Redis     `yaml:"redis"`
	Auth      Auth      `yaml:"auth"`
	Logging   Logging   `yaml:"logging"`
	Booking   Booking   `yaml:"booking"`
	Sweep     Sweep     `yaml:"sweep"`
	RateLimit RateLimit `yaml:"ratelimit"`
	Seed      Seed      `yaml:"seed"`
}

// LoadConfig reads CONFIG_PATH (default ./config/config.yaml). A missing file
// is not an error: defaults and environment variables are enough to boot.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Parse decodes YAML and applies defaults without touching the environment.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.HTTP.Addr = ":" + v
	}
	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Postgres.DSN = v
	}
	if c.Postgres.DSN == "" && os.Getenv("DB_HOST") != "" {
		c.Postgres.DSN = dsnFromEnv()
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Logging.Env = v
	}
	if v := os.Getenv("MAX_ACTIVE_RESERVATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Booking.MaxActiveReservations = n
		}
	}
}

// dsnFromEnv builds a libpq-compatible connection string from the DB_*
// variables, falling back to local-development defaults.
func dsnFromEnv() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "meetingrooms"),
		getEnv("DB_SSLMODE", "disable"),
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	c.HTTP.ReadTimeout = durationOr(c.HTTP.ReadTimeout, 15*time.Second)
	c.HTTP.WriteTimeout = durationOr(c.HTTP.WriteTimeout, 15*time.Second)
	c.HTTP.IdleTimeout = durationOr(c.HTTP.IdleTimeout, 60*time.Second)
	c.HTTP.RequestTimeout = durationOr(c.HTTP.RequestTimeout, 30*time.Second)
	c.HTTP.ShutdownTimeout = durationOr(c.HTTP.ShutdownTimeout, 10*time.Second)
	if len(c.HTTP.AllowedOrigins) == 0 {
		c.HTTP.AllowedOrigins = []string{"*"}
	}

	switch c.Storage.Driver {
	case "":
		c.Storage.Driver = "postgres"
	case "postgres", "memory":
	default:
		return fmt.Errorf("storage.driver %q must be postgres or memory", c.Storage.Driver)
	}
	if c.Storage.Driver == "postgres" && c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required when storage.driver is postgres")
	}
	if c.Postgres.MaxConns <= 0 {
		c.Postgres.MaxConns = 20
	}
	if c.Postgres.MinConns <= 0 {
		c.Postgres.MinConns = 2
	}
	if c.Postgres.ConnectAttempts <= 0 {
		c.Postgres.ConnectAttempts = 5
	}
	c.Postgres.RetryDelay = durationOr(c.Postgres.RetryDelay, 2*time.Second)

	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}

	if c.Logging.Service == "" {
		c.Logging.Service = "meeting-room-booking"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}

	if err := c.Booking.validate(); err != nil {
		return err
	}

	c.Sweep.Interval = durationOr(c.Sweep.Interval, time.Minute)
	c.Sweep.LeaseTTL = durationOr(c.Sweep.LeaseTTL, 30*time.Second)

	if c.RateLimit.RPS <= 0 {
		c.RateLimit.RPS = 5
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 10
	}
	return nil
}

func (b *Booking) validate() error {
	if b.MaxActiveReservations == 0 {
		b.MaxActiveReservations = 100
	}
	if b.MaxActiveReservations < 0 {
		return errors.New("booking.max_active_reservations must be positive")
	}
	b.Buffer = durationOr(b.Buffer, 10*time.Minute)
	b.SlotWidth = durationOr(b.SlotWidth, 15*time.Minute)
	b.UserGrace = durationOr(b.UserGrace, 2*time.Minute)
	b.AdminGrace = durationOr(b.AdminGrace, time.Minute)

	switch b.ConflictModel {
	case "":
		b.ConflictModel = "capacity"
	case "capacity", "exclusive":
	default:
		return fmt.Errorf("booking.conflict_model %q must be capacity or exclusive", b.ConflictModel)
	}
	return nil
}

func durationOr(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
