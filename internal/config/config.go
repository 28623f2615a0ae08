package config

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config stores service settings.
type Config struct {
	Port      int
	Storage   string
	LogLevel  string
	DB        DB
	Delivery  Delivery
	Kafka     Kafka
	MQTT      MQTT
	RateLimit RateLimit
	Debug     Debug
}

// DB stores PostgreSQL connection settings.
type DB struct {
	Host string
	Port string
	User string
	Pass string
	Name string
}

// DSN returns the pgx connection string.
func (d DB) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Pass),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Delivery stores coordinator and realtime settings.
type Delivery struct {
	TrackingMaxDuration time.Duration
	CodePrefix          string
	CodeLength          int
	SubscriberBuffer    int
	OperationTimeout    time.Duration
	EvictAfter          time.Duration
	JanitorSchedule     string
}

// Kafka stores broker settings. No brokers disables both consumer and relay.
type Kafka struct {
	Brokers     []string
	GroupID     string
	OrdersTopic string
	EventsTopic string
}

// Enabled reports whether brokers are configured.
func (k Kafka) Enabled() bool { return len(k.Brokers) > 0 }

// MQTT stores GPS ingress settings. An empty Broker disables the listener.
type MQTT struct {
	Broker            string
	ClientID          string
	TopicPrefix       string
	GPSLimitPerMinute int
}

// RateLimit stores HTTP per-IP limiter settings.
type RateLimit struct {
	Enabled    bool
	Rate       float64
	Burst      int
	TTL        time.Duration
	MaxBuckets int
}

// Debug stores the metrics/pprof listener settings.
type Debug struct {
	Addr      string
	PprofUser string
	PprofPass string
}

// Load reads configuration in order: .env (if present) → environment → flags.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: .env not loaded: %v", err)
	}
	return LoadFrom(pflag.CommandLine, os.Args[1:])
}

// LoadFrom reads the environment and then parses args with fs.
func LoadFrom(fs *pflag.FlagSet, args []string) (*Config, error) {
	cfg, err := fromEnv()
	if err != nil {
		return nil, err
	}

	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on")
	fs.StringVar(&cfg.Storage, "storage", cfg.Storage, "storage driver: postgres or memory")
	fs.DurationVar(&cfg.Delivery.TrackingMaxDuration, "tracking-max", cfg.Delivery.TrackingMaxDuration, "GPS session hard ceiling")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromEnv() (*Config, error) {
	cfg := &Config{
		Port:      DefaultPort(),
		Storage:   StoragePostgres,
		LogLevel:  "info",
		DB:        DefaultDB(),
		Delivery:  DefaultDelivery(),
		Kafka:     DefaultKafka(),
		MQTT:      DefaultMQTT(),
		RateLimit: DefaultRateLimit(),
		Debug:     DefaultDebug(),
	}
	e := &envReader{}

	e.int("PORT", &cfg.Port)
	e.str("STORAGE_DRIVER", &cfg.Storage)
	e.str("LOG_LEVEL", &cfg.LogLevel)

	e.str("POSTGRES_HOST", &cfg.DB.Host)
	e.str("POSTGRES_PORT", &cfg.DB.Port)
	e.str("POSTGRES_USER", &cfg.DB.User)
	e.str("POSTGRES_PASSWORD", &cfg.DB.Pass)
	e.str("POSTGRES_DB", &cfg.DB.Name)

	e.duration("DELIVERY_TRACKING_MAX_DURATION", &cfg.Delivery.TrackingMaxDuration)
	e.str("DELIVERY_CODE_PREFIX", &cfg.Delivery.CodePrefix)
	e.int("DELIVERY_CODE_LENGTH", &cfg.Delivery.CodeLength)
	e.int("DELIVERY_SUBSCRIBER_BUFFER", &cfg.Delivery.SubscriberBuffer)
	e.duration("DELIVERY_OPERATION_TIMEOUT", &cfg.Delivery.OperationTimeout)
	e.duration("DELIVERY_EVICT_AFTER", &cfg.Delivery.EvictAfter)
	e.str("DELIVERY_JANITOR_SCHEDULE", &cfg.Delivery.JanitorSchedule)

	e.list("KAFKA_BROKERS", &cfg.Kafka.Brokers)
	e.str("KAFKA_GROUP_ID", &cfg.Kafka.GroupID)
	e.str("KAFKA_ORDERS_TOPIC", &cfg.Kafka.OrdersTopic)
	e.str("KAFKA_EVENTS_TOPIC", &cfg.Kafka.EventsTopic)

	e.str("MQTT_BROKER", &cfg.MQTT.Broker)
	e.str("MQTT_CLIENT_ID", &cfg.MQTT.ClientID)
	e.str("MQTT_TOPIC_PREFIX", &cfg.MQTT.TopicPrefix)
	e.int("GPS_RATE_LIMIT_PER_MINUTE", &cfg.MQTT.GPSLimitPerMinute)

	e.bool("RATE_LIMIT_ENABLED", &cfg.RateLimit.Enabled)
	e.float("RATE_LIMIT_RATE", &cfg.RateLimit.Rate)
	e.int("RATE_LIMIT_BURST", &cfg.RateLimit.Burst)
	e.duration("RATE_LIMIT_TTL", &cfg.RateLimit.TTL)
	e.int("RATE_LIMIT_MAX_BUCKETS", &cfg.RateLimit.MaxBuckets)

	// пустой DEBUG_ADDR выключает debug-листенер, поэтому читаем без fallback
	if v, ok := os.LookupEnv("DEBUG_ADDR"); ok {
		cfg.Debug.Addr = strings.TrimSpace(v)
	}
	e.str("PPROF_USER", &cfg.Debug.PprofUser)
	e.str("PPROF_PASS", &cfg.Debug.PprofPass)

	if err := errors.Join(e.errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port: %d", c.Port))
	}
	if c.Storage != StoragePostgres && c.Storage != StorageMemory {
		errs = append(errs, fmt.Errorf("invalid storage driver: %q", c.Storage))
	}
	if c.Storage == StoragePostgres {
		if p, err := strconv.Atoi(c.DB.Port); err != nil || p <= 0 || p > 65535 {
			errs = append(errs, fmt.Errorf("invalid POSTGRES_PORT: %q", c.DB.Port))
		}
	}
	if c.Delivery.TrackingMaxDuration <= 0 {
		errs = append(errs, fmt.Errorf("tracking max duration must be positive: %s", c.Delivery.TrackingMaxDuration))
	}
	if c.Delivery.CodeLength < 4 || c.Delivery.CodeLength > 32 {
		errs = append(errs, fmt.Errorf("code length must be in [4, 32]: %d", c.Delivery.CodeLength))
	}
	if c.Delivery.SubscriberBuffer <= 0 {
		errs = append(errs, fmt.Errorf("subscriber buffer must be positive: %d", c.Delivery.SubscriberBuffer))
	}
	if c.Delivery.OperationTimeout <= 0 {
		errs = append(errs, fmt.Errorf("operation timeout must be positive: %s", c.Delivery.OperationTimeout))
	}
	if c.RateLimit.Enabled && (c.RateLimit.Rate <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, fmt.Errorf("rate limit needs positive rate and burst: %v/%d", c.RateLimit.Rate, c.RateLimit.Burst))
	}
	if c.MQTT.GPSLimitPerMinute <= 0 {
		errs = append(errs, fmt.Errorf("GPS rate limit must be positive: %d", c.MQTT.GPSLimitPerMinute))
	}
	return errors.Join(errs...)
}

// envReader collects parse errors so every bad key is reported at once.
type envReader struct {
	errs []error
}

func (e *envReader) lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) list(key string, dst *[]string) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func (e *envReader) int(key string, dst *int) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s: %w", key, err))
		return
	}
	*dst = n
}

func (e *envReader) float(key string, dst *float64) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s: %w", key, err))
		return
	}
	*dst = f
}

func (e *envReader) bool(key string, dst *bool) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s: %w", key, err))
		return
	}
	*dst = b
}

func (e *envReader) duration(key string, dst *time.Duration) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s: %w", key, err))
		return
	}
	*dst = d
}
