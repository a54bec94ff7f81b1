package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"time"

	"eventcal/internal/store"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is read from the environment, optionally seeded from .env files.
type Config struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	Store  StoreConfig  `envconfig:"STORE"`
	HTTP   HTTPConfig   `envconfig:"HTTP"`
	Email  EmailConfig  `envconfig:"EMAIL"`
	CalDAV CalDAVConfig `envconfig:"CALDAV"`
	Google GoogleConfig `envconfig:"GOOGLE"`

	SyncStateFile string `envconfig:"SYNC_STATE_FILE" default:"sync-state.json"`
}

// Inner fields carry no envconfig tag: a tag would make envconfig fall back
// to the unprefixed name (PATH, USER, PORT) when the prefixed one is unset.

type StoreConfig struct {
	Driver string `default:"json"`
	Path   string `default:"events.json"`
}

type HTTPConfig struct {
	Addr         string        `default:":8080"`
	ReadTimeout  time.Duration `split_words:"true" default:"10s"`
	WriteTimeout time.Duration `split_words:"true" default:"10s"`
}

// EmailConfig configures the SMTP notifier. An empty Host disables sending.
type EmailConfig struct {
	Host    string
	Port    int `default:"587"`
	User    string
	Pass    string
	From    string
	Retries int           `default:"2"`
	Timeout time.Duration `default:"15s"`
}

func (c EmailConfig) Enabled() bool {
	return c.Host != ""
}

type CalDAVConfig struct {
	Endpoint string `default:"https://caldav.icloud.com/"`
	Username string
	Password string
	Calendar string
}

type GoogleConfig struct {
	ClientID     string `split_words:"true"`
	ClientSecret string `split_words:"true"`
	CalendarIds  string `split_words:"true"` // not IDs: split_words would yield CALENDAR_I_DS
	TokenDir     string `split_words:"true" default:"."`
}

// Load reads the given .env files (default ".env"), ignoring missing ones,
// then parses the environment. Variables already set are not overridden.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if !slices.Contains(store.Drivers, c.Store.Driver) {
		return fmt.Errorf("unsupported STORE_DRIVER: %s", c.Store.Driver)
	}
	if c.Store.Driver != store.DriverMemory && c.Store.Path == "" {
		return errors.New("STORE_PATH is required")
	}
	if c.Email.Port <= 0 || c.Email.Port > 65535 {
		return fmt.Errorf("invalid EMAIL_PORT: %d", c.Email.Port)
	}
	if c.Email.Retries < 0 {
		return fmt.Errorf("invalid EMAIL_RETRIES: %d", c.Email.Retries)
	}
	return nil
}
