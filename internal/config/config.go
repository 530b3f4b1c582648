package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers
const (
	StoreDriverMemory   = "memory"
	StoreDriverPostgres = "postgres"
)

// DatabaseConfig PostgreSQL connection
type DatabaseConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	Database    string `yaml:"database"`
	SSLMode     string `yaml:"sslmode"`
	MaxConns    int    `yaml:"max_conns"`
	MaxIdle     int    `yaml:"max_idle"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

// GetDSN lib/pq key=value connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis connection (alert cache + sample stream)
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MQTTConfig MQTT broker connection
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	QoS         byte   `yaml:"qos"`
	TopicPrefix string `yaml:"topic_prefix"` // topics are {prefix}/{patient_id}/{kind}
}

// IngestConfig Redis Streams ingestion
type IngestConfig struct {
	StreamEnabled bool          `yaml:"stream_enabled"`
	Stream        string        `yaml:"stream"`
	ConsumerGroup string        `yaml:"consumer_group"`
	ConsumerName  string        `yaml:"consumer_name"`
	BatchSize     int64         `yaml:"batch_size"`
	Block         time.Duration `yaml:"block"`
}

// Config wristlet alert service configuration
type Config struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`

	Store struct {
		Driver string `yaml:"driver"` // memory | postgres
	} `yaml:"store"`

	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	MQTT     MQTTConfig     `yaml:"mqtt"`

	Ingest IngestConfig `yaml:"ingest"`

	Alert struct {
		Cooldown        time.Duration `yaml:"cooldown"`
		MotionThreshold float64       `yaml:"motion_threshold"`
		CacheKeyPrefix  string        `yaml:"cache_key_prefix"`
		CacheTTL        time.Duration `yaml:"cache_ttl"`
	} `yaml:"alert"`

	Notify struct {
		WebhookURL string        `yaml:"webhook_url"`
		Timeout    time.Duration `yaml:"timeout"`
		RetryCount int           `yaml:"retry_count"`
	} `yaml:"notify"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Default configuration before file and environment overrides.
func Default() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = ":8080"
	cfg.Store.Driver = StoreDriverMemory

	cfg.Database = DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "owlrd",
		SSLMode:  "disable",
		MaxConns: 20,
		MaxIdle:  5,
	}
	cfg.Redis.Addr = "localhost:6379"

	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "wisefido-wristlet"
	cfg.MQTT.QoS = 1
	cfg.MQTT.TopicPrefix = "wristlet"

	cfg.Ingest.Stream = "wristlet:samples:stream"
	cfg.Ingest.ConsumerGroup = "wristlet-alert-group"
	cfg.Ingest.ConsumerName = "wristlet-alert-1"
	cfg.Ingest.BatchSize = 10
	cfg.Ingest.Block = 5 * time.Second

	cfg.Alert.Cooldown = 3 * time.Minute
	cfg.Alert.MotionThreshold = 1.0
	cfg.Alert.CacheKeyPrefix = "wristlet:patient:"
	cfg.Alert.CacheTTL = 24 * time.Hour

	cfg.Notify.Timeout = 5 * time.Second
	cfg.Notify.RetryCount = 2

	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	return cfg
}

// Load builds the configuration: defaults, then the YAML file named by
// WRISTLET_CONFIG, then environment variables (a .env file is loaded first).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv("WRISTLET_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var errs []string
	fail := func(key string, err error) {
		errs = append(errs, fmt.Sprintf("%s: %v", key, err))
	}

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", cfg.HTTP.Addr)
	cfg.Store.Driver = strings.ToLower(getEnv("STORE_DRIVER", cfg.Store.Driver))

	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Database = getEnv("DB_NAME", cfg.Database.Database)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)
	if v, err := getEnvInt("DB_PORT", cfg.Database.Port); err != nil {
		fail("DB_PORT", err)
	} else {
		cfg.Database.Port = v
	}
	if v, err := getEnvInt("DB_MAX_CONNS", cfg.Database.MaxConns); err != nil {
		fail("DB_MAX_CONNS", err)
	} else {
		cfg.Database.MaxConns = v
	}
	if v, err := getEnvBool("DB_AUTO_MIGRATE", cfg.Database.AutoMigrate); err != nil {
		fail("DB_AUTO_MIGRATE", err)
	} else {
		cfg.Database.AutoMigrate = v
	}

	if v, err := getEnvBool("REDIS_ENABLED", cfg.Redis.Enabled); err != nil {
		fail("REDIS_ENABLED", err)
	} else {
		cfg.Redis.Enabled = v
	}
	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	if v, err := getEnvInt("REDIS_DB", cfg.Redis.DB); err != nil {
		fail("REDIS_DB", err)
	} else {
		cfg.Redis.DB = v
	}

	if v, err := getEnvBool("MQTT_ENABLED", cfg.MQTT.Enabled); err != nil {
		fail("MQTT_ENABLED", err)
	} else {
		cfg.MQTT.Enabled = v
	}
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", cfg.MQTT.Broker)
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", cfg.MQTT.ClientID)
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", cfg.MQTT.Username)
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", cfg.MQTT.Password)
	cfg.MQTT.TopicPrefix = getEnv("MQTT_TOPIC_PREFIX", cfg.MQTT.TopicPrefix)

	if v, err := getEnvBool("INGEST_STREAM_ENABLED", cfg.Ingest.StreamEnabled); err != nil {
		fail("INGEST_STREAM_ENABLED", err)
	} else {
		cfg.Ingest.StreamEnabled = v
	}
	cfg.Ingest.Stream = getEnv("INGEST_STREAM", cfg.Ingest.Stream)
	cfg.Ingest.ConsumerGroup = getEnv("INGEST_CONSUMER_GROUP", cfg.Ingest.ConsumerGroup)
	cfg.Ingest.ConsumerName = getEnv("INGEST_CONSUMER_NAME", cfg.Ingest.ConsumerName)

	if v, err := getEnvDuration("ALERT_COOLDOWN", cfg.Alert.Cooldown); err != nil {
		fail("ALERT_COOLDOWN", err)
	} else {
		cfg.Alert.Cooldown = v
	}
	if v, err := getEnvFloat("MOTION_THRESHOLD", cfg.Alert.MotionThreshold); err != nil {
		fail("MOTION_THRESHOLD", err)
	} else {
		cfg.Alert.MotionThreshold = v
	}
	cfg.Alert.CacheKeyPrefix = getEnv("CACHE_ALERT_PREFIX", cfg.Alert.CacheKeyPrefix)
	if v, err := getEnvDuration("CACHE_ALERT_TTL", cfg.Alert.CacheTTL); err != nil {
		fail("CACHE_ALERT_TTL", err)
	} else {
		cfg.Alert.CacheTTL = v
	}

	cfg.Notify.WebhookURL = getEnv("ALERT_WEBHOOK_URL", cfg.Notify.WebhookURL)
	if v, err := getEnvDuration("ALERT_WEBHOOK_TIMEOUT", cfg.Notify.Timeout); err != nil {
		fail("ALERT_WEBHOOK_TIMEOUT", err)
	} else {
		cfg.Notify.Timeout = v
	}

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverMemory, StoreDriverPostgres:
	default:
		return fmt.Errorf("unknown store driver %q (want memory or postgres)", c.Store.Driver)
	}
	if c.Alert.Cooldown <= 0 {
		return fmt.Errorf("alert cooldown must be positive, got %s", c.Alert.Cooldown)
	}
	if c.Alert.MotionThreshold <= 0 {
		return fmt.Errorf("motion threshold must be positive, got %v", c.Alert.MotionThreshold)
	}
	if c.Ingest.StreamEnabled && !c.Redis.Enabled {
		return fmt.Errorf("stream ingestion requires REDIS_ENABLED=true")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(value)
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	return strconv.ParseFloat(value, 64)
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	return strconv.ParseBool(value)
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	return time.ParseDuration(value)
}
