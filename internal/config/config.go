package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/welldanyogia/webrana-msgqueue/internal/models"
)

// Config holds all configuration for the queue agent and the producer API.
// Every field can be set from the optional YAML file; environment variables win.
type Config struct {
	// Database
	DatabaseURL string `yaml:"databaseUrl"`

	// Queue
	TempDirectory   string   `yaml:"tempDirectory"`
	MaxAttempts     int      `yaml:"maxAttempts"`
	EnabledChannels []string `yaml:"enabledChannels"`
	// AttachmentSourceDirectory bounds the attachment paths the producer API may stage; empty refuses them all
	AttachmentSourceDirectory string `yaml:"attachmentSourceDirectory"`
	// DeliveryIntervalSeconds repeats delivery passes in long-running processes; 0 disables
	DeliveryIntervalSeconds int `yaml:"deliveryIntervalSeconds"`

	// Server
	APIPort int    `yaml:"apiPort"`
	APIKey  string `yaml:"apiKey"`
	AppEnv  string `yaml:"appEnv"`

	RateLimit RateLimitConfig `yaml:"rateLimit"`

	// Logging
	LogLevel string `yaml:"logLevel"`

	// Delivery log
	Redis RedisConfig `yaml:"redis"`

	Handlers HandlersConfig `yaml:"handlers"`

	// ConfigFile is the YAML file the values were read from, if any
	ConfigFile string `yaml:"-"`
}

// RateLimitConfig limits producer API requests per client IP; zero disables it
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	Burst             int     `yaml:"burst"`
}

// RedisConfig configures the optional delivery log
type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLSeconds int    `yaml:"ttlSeconds"`
}

// TTL returns the expiry of delivery log entries
func (r RedisConfig) TTL() time.Duration {
	return time.Duration(r.TTLSeconds) * time.Second
}

// HandlersConfig holds the per channel handler sections
type HandlersConfig struct {
	Email  EmailConfig  `yaml:"email"`
	SMS    SMSConfig    `yaml:"sms"`
	Socket SocketConfig `yaml:"socket"`
	File   FileConfig   `yaml:"file"`
}

// AntifloodConfig pauses a handler after Threshold messages
type AntifloodConfig struct {
	Threshold    int `yaml:"threshold"`
	SleepSeconds int `yaml:"sleepSeconds"`
}

// Sleep returns the pause duration
func (a AntifloodConfig) Sleep() time.Duration {
	return time.Duration(a.SleepSeconds) * time.Second
}

// EmailConfig configures the SMTP handler
type EmailConfig struct {
	Host       string          `yaml:"host"`
	Port       int             `yaml:"port"`
	Username   string          `yaml:"username"`
	Password   string          `yaml:"password"`
	Encryption string          `yaml:"encryption"`
	From       string          `yaml:"from"`
	FromName   string          `yaml:"fromName"`
	Antiflood  AntifloodConfig `yaml:"antiflood"`
}

// SMSConfig configures the SMS handler
type SMSConfig struct {
	Method   string `yaml:"method"`
	URL      string `yaml:"url"`
	QueueDir string `yaml:"queueDir"`
}

// SocketConfig configures the raw socket handler
type SocketConfig struct {
	TimeoutMS   int `yaml:"timeoutMs"`
	DefaultPort int `yaml:"defaultPort"`
	AddressByte int `yaml:"addressByte"`
}

// Timeout returns the dial and write timeout
func (s SocketConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutMS) * time.Millisecond
}

// FileConfig configures the file drop handler
type FileConfig struct {
	Append bool `yaml:"append"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		DatabaseURL:     "sqlite:./queue.db",
		TempDirectory:   "/tmp/message_queue",
		MaxAttempts:     5,
		EnabledChannels: []string{"email", "sms", "socket"},
		APIPort:         8080,
		AppEnv:          "development",
		LogLevel:        "info",
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			Burst:             20,
		},
		Redis: RedisConfig{
			TTLSeconds: 7 * 24 * 3600,
		},
		Handlers: HandlersConfig{
			Email: EmailConfig{
				Port:       25,
				Encryption: "none",
			},
			SMS: SMSConfig{
				Method: "http",
			},
			Socket: SocketConfig{
				TimeoutMS:   5000,
				AddressByte: 0x01,
			},
		},
	}
}

// DeliveryInterval returns the period between background delivery passes
func (c *Config) DeliveryInterval() time.Duration {
	return time.Duration(c.DeliveryIntervalSeconds) * time.Second
}

// Load reads configuration from the optional QUEUE_CONFIG_FILE and then from environment variables
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("QUEUE_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadWithValidation loads and validates configuration, failing fast on errors
func LoadWithValidation() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.AppEnv == "production" {
		if err := cfg.ValidateProduction(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.ConfigFile = path
	return nil
}

func (c *Config) loadEnv() error {
	envString("DATABASE_URL", &c.DatabaseURL)
	envString("TEMP_DIRECTORY", &c.TempDirectory)
	envString("ATTACHMENT_SOURCE_DIRECTORY", &c.AttachmentSourceDirectory)
	envString("API_KEY", &c.APIKey)
	envString("APP_ENV", &c.AppEnv)
	envString("LOG_LEVEL", &c.LogLevel)

	if v := os.Getenv("ENABLED_CHANNELS"); v != "" {
		c.EnabledChannels = splitList(v)
	}

	envString("REDIS_ADDR", &c.Redis.Addr)
	envString("REDIS_PASSWORD", &c.Redis.Password)

	email := &c.Handlers.Email
	envString("SMTP_HOST", &email.Host)
	envString("SMTP_USERNAME", &email.Username)
	envString("SMTP_PASSWORD", &email.Password)
	envString("SMTP_ENCRYPTION", &email.Encryption)
	envString("SMTP_FROM", &email.From)
	envString("SMTP_FROM_NAME", &email.FromName)

	sms := &c.Handlers.SMS
	envString("SMS_METHOD", &sms.Method)
	envString("SMS_URL", &sms.URL)
	envString("SMS_QUEUE_DIR", &sms.QueueDir)

	ints := []struct {
		key    string
		target *int
	}{
		{"MAX_ATTEMPTS", &c.MaxAttempts},
		{"DELIVERY_INTERVAL_SECONDS", &c.DeliveryIntervalSeconds},
		{"API_PORT", &c.APIPort},
		{"RATE_LIMIT_BURST", &c.RateLimit.Burst},
		{"REDIS_DB", &c.Redis.DB},
		{"REDIS_TTL_SECONDS", &c.Redis.TTLSeconds},
		{"SMTP_PORT", &email.Port},
		{"ANTIFLOOD_THRESHOLD", &email.Antiflood.Threshold},
		{"ANTIFLOOD_SLEEP_SECONDS", &email.Antiflood.SleepSeconds},
		{"SOCKET_TIMEOUT_MS", &c.Handlers.Socket.TimeoutMS},
		{"SOCKET_DEFAULT_PORT", &c.Handlers.Socket.DefaultPort},
		{"SOCKET_ADDRESS_BYTE", &c.Handlers.Socket.AddressByte},
	}
	for _, e := range ints {
		if err := envInt(e.key, e.target); err != nil {
			return err
		}
	}

	if v := os.Getenv("RATE_LIMIT_REQUESTS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be a valid number: %w", err)
		}
		c.RateLimit.RequestsPerSecond = rps
	}

	if v := os.Getenv("FILE_APPEND"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("FILE_APPEND must be a valid boolean: %w", err)
		}
		c.Handlers.File.Append = b
	}

	return nil
}

func envString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func envInt(key string, target *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	*target = n
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Channels returns the enabled channel types
func (c *Config) Channels() ([]models.ChannelType, error) {
	out := make([]models.ChannelType, 0, len(c.EnabledChannels))
	for _, name := range c.EnabledChannels {
		ct, err := models.ParseChannelType(name)
		if err != nil {
			return nil, fmt.Errorf("ENABLED_CHANNELS: %w", err)
		}
		out = append(out, ct)
	}
	return out, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DatabaseURL cannot be empty")
	}
	if c.TempDirectory == "" {
		return fmt.Errorf("TempDirectory cannot be empty")
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("MaxAttempts cannot be negative")
	}
	if c.DeliveryIntervalSeconds < 0 {
		return fmt.Errorf("DELIVERY_INTERVAL_SECONDS cannot be negative")
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("APIPort must be between 1 and 65535")
	}
	if _, err := c.Channels(); err != nil {
		return err
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate limit values cannot be negative")
	}

	switch c.Handlers.Email.Encryption {
	case "", "none", "ssl", "tls":
	default:
		return fmt.Errorf("SMTP_ENCRYPTION must be one of ssl, tls or none")
	}

	switch c.Handlers.SMS.Method {
	case "", "http", "smsd":
	default:
		return fmt.Errorf("SMS_METHOD must be http or smsd")
	}

	if c.Handlers.Socket.AddressByte < 0 || c.Handlers.Socket.AddressByte > 0xff {
		return fmt.Errorf("SOCKET_ADDRESS_BYTE must fit in one byte")
	}

	return nil
}

// ValidateProduction performs additional validation for production environment
func (c *Config) ValidateProduction() error {
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY is required in production")
	}

	if strings.Contains(c.DatabaseURL, "sslmode=disable") {
		return fmt.Errorf("sslmode=disable is not allowed in production")
	}

	return nil
}

// LogConfig logs configuration values (excluding secrets)
func (c *Config) LogConfig(logger *slog.Logger) {
	logger.Info("configuration loaded",
		slog.String("config_file", c.ConfigFile),
		slog.String("temp_directory", c.TempDirectory),
		slog.String("attachment_source_directory", c.AttachmentSourceDirectory),
		slog.Int("max_attempts", c.MaxAttempts),
		slog.Any("enabled_channels", c.EnabledChannels),
		slog.Int("delivery_interval_seconds", c.DeliveryIntervalSeconds),
		slog.Int("api_port", c.APIPort),
		slog.String("log_level", c.LogLevel),
		slog.String("app_env", c.AppEnv),
		slog.Bool("api_key_set", c.APIKey != ""),
		slog.Float64("rate_limit_rps", c.RateLimit.RequestsPerSecond),
		slog.Bool("redis_enabled", c.Redis.Addr != ""),
		slog.String("smtp_host", c.Handlers.Email.Host),
		slog.Int("smtp_port", c.Handlers.Email.Port),
		slog.Bool("smtp_password_set", c.Handlers.Email.Password != ""),
		slog.String("sms_method", c.Handlers.SMS.Method),
	)
}
