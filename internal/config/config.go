package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr         = ":8080"
	defaultQueueConcurrency = 10
	defaultSendRPS          = 2
	defaultSendBurst        = 5
	defaultConversationTTL  = 30 * time.Second
	defaultBaseURL          = "http://localhost:8080/api/v1"
	defaultRequestTimeout   = 10 * time.Second
	defaultReconnectDelay   = 2 * time.Second
)

// Transport names accepted by ClientConfig.Transport.
const (
	TransportWebsocket = "websocket"
	TransportNATS      = "nats"
)

// Config holds every setting of the backend service and the terminal client.
// Values come from an optional YAML file, then environment variables
// (optionally loaded from .env) override them.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	NATS     NATSConfig     `yaml:"nats"`
	Queue    QueueConfig    `yaml:"queue"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
	Client   ClientConfig   `yaml:"client"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ConversationTTL time.Duration `yaml:"conversation_cache_ttl"`
}

type DatabaseConfig struct {
	URL     string `yaml:"url"`
	Migrate bool   `yaml:"migrate"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type QueueConfig struct {
	Concurrency int            `yaml:"concurrency"`
	Queues      map[string]int `yaml:"queues"`
}

type AuthConfig struct {
	SigningKey string  `yaml:"signing_key"`
	SendRPS    float64 `yaml:"send_rps"`
	SendBurst  int     `yaml:"send_burst"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type ClientConfig struct {
	BaseURL        string        `yaml:"base_url"`
	PushURL        string        `yaml:"push_url"`
	Token          string        `yaml:"token"`
	Transport      string        `yaml:"transport"`
	Narrow         bool          `yaml:"narrow"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
}

// Load reads .env (if present), the YAML file at path (if non-empty), applies
// environment overrides and defaults.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("config: file not found: %s", path)
			}
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("HTTP_ADDR", &c.Server.Addr)
	str("DB_URL", &c.Database.URL)
	str("REDIS_URL", &c.Redis.URL)
	str("NATS_URL", &c.NATS.URL)
	str("APP_SIGNING_KEY", &c.Auth.SigningKey)
	str("LOG_LEVEL", &c.Log.Level)
	str("CHAT_BASE_URL", &c.Client.BaseURL)
	str("CHAT_PUSH_URL", &c.Client.PushURL)
	str("CHAT_TOKEN", &c.Client.Token)
	str("CHAT_TRANSPORT", &c.Client.Transport)

	if v, ok := lookup("DB_MIGRATE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: DB_MIGRATE: %w", err)
		}
		c.Database.Migrate = b
	}
	if v, ok := lookup("CHAT_NARROW"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: CHAT_NARROW: %w", err)
		}
		c.Client.Narrow = b
	}
	if v, ok := lookup("ASYNQ_CONCURRENCY"); ok && strings.TrimSpace(v) != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && i > 0 {
			c.Queue.Concurrency = i
		}
	}
	if v, ok := lookup("ASYNQ_QUEUES"); ok && strings.TrimSpace(v) != "" {
		if parsed := ParseQueueWeights(v); len(parsed) > 0 {
			c.Queue.Queues = parsed
		}
	}
	if v, ok := lookup("SEND_RPS"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: SEND_RPS: %w", err)
		}
		c.Auth.SendRPS = f
	}
	if v, ok := lookup("SEND_BURST"); ok && v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: SEND_BURST: %w", err)
		}
		c.Auth.SendBurst = i
	}
	return nil
}

// ApplyDefaults fills unset values.
func (c *Config) ApplyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = defaultHTTPAddr
	}
	if c.Server.ConversationTTL == 0 {
		c.Server.ConversationTTL = defaultConversationTTL
	}
	if c.Queue.Concurrency <= 0 {
		c.Queue.Concurrency = defaultQueueConcurrency
	}
	if len(c.Queue.Queues) == 0 {
		c.Queue.Queues = map[string]int{"default": 1, "chat": 1}
	}
	if c.Auth.SendRPS <= 0 {
		c.Auth.SendRPS = defaultSendRPS
	}
	if c.Auth.SendBurst <= 0 {
		c.Auth.SendBurst = defaultSendBurst
	}
	if c.Client.BaseURL == "" {
		c.Client.BaseURL = defaultBaseURL
	}
	c.Client.BaseURL = strings.TrimRight(c.Client.BaseURL, "/")
	if c.Client.PushURL == "" {
		c.Client.PushURL = websocketURL(c.Client.BaseURL)
	}
	if c.Client.Transport == "" {
		c.Client.Transport = TransportWebsocket
	}
	if c.Client.RequestTimeout == 0 {
		c.Client.RequestTimeout = defaultRequestTimeout
	}
	if c.Client.ReconnectDelay == 0 {
		c.Client.ReconnectDelay = defaultReconnectDelay
	}
}

// ValidateServer checks the settings the backend service cannot run without.
// An empty DB_URL is allowed and selects the in-memory repository.
func (c *Config) ValidateServer() error {
	if len(c.Auth.SigningKey) < 16 {
		return errors.New("config: APP_SIGNING_KEY must be at least 16 bytes")
	}
	return nil
}

// ValidateClient checks the settings the terminal client needs.
func (c *Config) ValidateClient() error {
	if c.Client.Token == "" {
		return errors.New("config: CHAT_TOKEN is not set")
	}
	switch c.Client.Transport {
	case TransportWebsocket:
	case TransportNATS:
		if c.NATS.URL == "" {
			return errors.New("config: nats transport requires NATS_URL")
		}
	default:
		return fmt.Errorf("config: unknown transport %q", c.Client.Transport)
	}
	return nil
}

// ParseQueueWeights parses strings like "critical=6,default=3,low=1" into a map.
func ParseQueueWeights(s string) map[string]int {
	res := make(map[string]int)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		name := strings.TrimSpace(kv[0])
		if name == "" {
			continue
		}
		w := 1
		if len(kv) == 2 {
			if i, err := strconv.Atoi(strings.TrimSpace(kv[1])); err == nil && i > 0 {
				w = i
			}
		}
		res[name] = w
	}
	return res
}

func websocketURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://") + "/ws"
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://") + "/ws"
	}
	return base + "/ws"
}
