package config

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

type TelegramMode string

const (
	ModePolling TelegramMode = "polling"
	ModeWebhook TelegramMode = "webhook"
)

type LedgerBackend string

const (
	LedgerFile     LedgerBackend = "file"
	LedgerMemory   LedgerBackend = "memory"
	LedgerPostgres LedgerBackend = "postgres"
	LedgerSQLite   LedgerBackend = "sqlite"
	LedgerRedis    LedgerBackend = "redis"
)

// Config se construye una sola vez al arrancar y se pasa explícito a cada
// componente. No hay estado global.
type Config struct {
	TelegramToken string        `yaml:"telegram_token"`
	TelegramMode  TelegramMode  `yaml:"telegram_mode"`
	WebhookURL    string        `yaml:"webhook_url"`
	WebhookSecret string        `yaml:"webhook_secret"`
	HTTPAddr      string        `yaml:"http_addr"`
	PollTimeout   time.Duration `yaml:"poll_timeout"`

	NightscoutURL     string        `yaml:"nightscout_url"`
	NightscoutSecret  string        `yaml:"nightscout_secret"`
	NightscoutTimeout time.Duration `yaml:"nightscout_timeout"`

	AuthorizedUsers []int64 `yaml:"authorized_users"`
	NotifyChatID    int64   `yaml:"notify_chat_id"`

	Timezone string `yaml:"timezone"`
	Locale   string `yaml:"locale"`

	IOBActionHours float64       `yaml:"iob_action_hours"`
	LedgerBackend  LedgerBackend `yaml:"ledger_backend"`
	LedgerPath     string        `yaml:"ledger_path"`
	DatabaseDSN    string        `yaml:"db_dsn"`
	RedisAddr      string        `yaml:"redis_addr"`
	RedisKey       string        `yaml:"redis_key"`

	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`
	AppName      string `yaml:"app_name"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// Defaults devuelve la config base antes de archivo/env.
func Defaults() Config {
	return Config{
		TelegramMode:      ModePolling,
		HTTPAddr:          ":8080",
		PollTimeout:       30 * time.Second,
		NightscoutTimeout: 10 * time.Second,
		Timezone:          "Europe/Moscow",
		Locale:            "ru",
		IOBActionHours:    4.5,
		LedgerBackend:     LedgerFile,
		LedgerPath:        "data/iob_ledger.json",
		RedisKey:          "glucobot:iob:doses",
		LogLevel:          "info",
		LogFormat:         "text",
		AppName:           "glucobot",
	}
}

// Load arma la config desde defaults -> CONFIG_FILE (yaml, opcional) -> env.
func Load() (Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom permite inyectar el lookup de env (tests).
func LoadFrom(lookup func(string) (string, bool)) (Config, error) {
	cfg := Defaults()

	if path, ok := lookup("CONFIG_FILE"); ok && strings.TrimSpace(path) != "" {
		if err := cfg.mergeFile(strings.TrimSpace(path)); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.mergeEnv(lookup); err != nil {
		return Config{}, err
	}

	cfg.NightscoutURL = strings.TrimRight(strings.TrimSpace(cfg.NightscoutURL), "/")
	cfg.TelegramMode = TelegramMode(strings.ToLower(string(cfg.TelegramMode)))
	cfg.LedgerBackend = LedgerBackend(strings.ToLower(string(cfg.LedgerBackend)))

	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	var errs []error
	dur := func(key string, dst *time.Duration) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}
	i64 := func(key string, dst *int64) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}

	str("TELEGRAM_TOKEN", &c.TelegramToken)
	var mode string
	str("TELEGRAM_MODE", &mode)
	if mode != "" {
		c.TelegramMode = TelegramMode(mode)
	}
	str("WEBHOOK_URL", &c.WebhookURL)
	str("WEBHOOK_SECRET", &c.WebhookSecret)
	if v, ok := lookup("PORT"); ok && strings.TrimSpace(v) != "" {
		c.HTTPAddr = ":" + strings.TrimSpace(v)
	}
	dur("POLL_TIMEOUT", &c.PollTimeout)

	str("NIGHTSCOUT_URL", &c.NightscoutURL)
	str("NIGHTSCOUT_SECRET", &c.NightscoutSecret)
	dur("NIGHTSCOUT_TIMEOUT", &c.NightscoutTimeout)

	if v, ok := lookup("AUTHORIZED_USERS"); ok && strings.TrimSpace(v) != "" {
		ids, err := ParseIDList(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("AUTHORIZED_USERS: %w", err))
		} else {
			c.AuthorizedUsers = ids
		}
	}
	i64("NOTIFY_CHAT_ID", &c.NotifyChatID)

	str("TIMEZONE", &c.Timezone)
	str("LOCALE", &c.Locale)

	if v, ok := lookup("IOB_ACTION_HOURS"); ok && strings.TrimSpace(v) != "" {
		h, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("IOB_ACTION_HOURS: %w", err))
		} else {
			c.IOBActionHours = h
		}
	}
	var backend string
	str("LEDGER_BACKEND", &backend)
	if backend != "" {
		c.LedgerBackend = LedgerBackend(backend)
	}
	str("LEDGER_PATH", &c.LedgerPath)
	str("DB_DSN", &c.DatabaseDSN)
	str("REDIS_ADDR", &c.RedisAddr)
	str("REDIS_KEY", &c.RedisKey)

	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	str("APP_NAME", &c.AppName)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &c.OTLPEndpoint)

	return errors.Join(errs...)
}

// ParseIDList parsea "123, 456" a []int64. Entradas vacías se ignoran.
func ParseIDList(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", p)
		}
		out = append(out, n)
	}
	return out, nil
}

// Validate revisa lo necesario para `serve`. Devuelve todos los problemas juntos.
func (c Config) Validate() error {
	var errs []error
	if c.TelegramToken == "" {
		errs = append(errs, errors.New("TELEGRAM_TOKEN is required"))
	}
	if c.NightscoutURL == "" {
		errs = append(errs, errors.New("NIGHTSCOUT_URL is required"))
	}
	if c.NightscoutSecret == "" {
		errs = append(errs, errors.New("NIGHTSCOUT_SECRET is required"))
	}
	if len(c.AuthorizedUsers) == 0 {
		errs = append(errs, errors.New("AUTHORIZED_USERS is required"))
	}
	switch c.TelegramMode {
	case ModePolling:
	case ModeWebhook:
		if c.WebhookURL == "" {
			errs = append(errs, errors.New("WEBHOOK_URL is required in webhook mode"))
		}
		if strings.TrimSpace(c.WebhookSecret) == "" {
			errs = append(errs, errors.New("WEBHOOK_SECRET is required in webhook mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown TELEGRAM_MODE %q", c.TelegramMode))
	}
	if err := c.ValidateLedger(); err != nil {
		errs = append(errs, err)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
	}
	return errors.Join(errs...)
}

// ValidateLedger revisa sólo lo que necesita el ledger (comando `iob`).
func (c Config) ValidateLedger() error {
	var errs []error
	if c.IOBActionHours <= 0 {
		errs = append(errs, errors.New("IOB_ACTION_HOURS must be > 0"))
	}
	switch c.LedgerBackend {
	case LedgerFile, LedgerSQLite:
		if c.LedgerPath == "" {
			errs = append(errs, errors.New("LEDGER_PATH is required"))
		}
	case LedgerPostgres:
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("DB_DSN is required for postgres ledger"))
		}
	case LedgerRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for redis ledger"))
		}
	case LedgerMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown LEDGER_BACKEND %q", c.LedgerBackend))
	}
	return errors.Join(errs...)
}

// NightscoutSecretHash es el SHA-1 hex del secret, como lo espera el header API-SECRET.
func (c Config) NightscoutSecretHash() string {
	sum := sha1.Sum([]byte(c.NightscoutSecret))
	return hex.EncodeToString(sum[:])
}

// ActionWindow es la ventana de acción de la insulina como duración.
func (c Config) ActionWindow() time.Duration {
	return time.Duration(c.IOBActionHours * float64(time.Hour))
}

// Location resuelve Timezone; si falla cae a UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
