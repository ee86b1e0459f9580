package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Search configures the outbound Messages API call.
type Search struct {
	APIURL       string
	APIKey       string
	Model        string
	APIVersion   string
	MaxTokens    int
	Timeout      time.Duration
	RateInterval time.Duration
	RateBurst    int
}

// Common contains parameters shared by every service.
type Common struct {
	Search
	KafkaBrokers []string
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	BindAddr        string
	DefaultQuery    string
	DefaultPeriod   int
	RefreshSchedule string
	RefreshOnStart  bool
	RunsTopic       string
}

// Worker holds configuration for the Kafka query worker.
type Worker struct {
	Common
	QueryTopic    string
	ResultTopic   string
	ConsumerGroup string
	BatchSize     int

	// Request ids answered within RequestTTL are skipped on redelivery.
	RequestCacheSize int
	RequestTTL       time.Duration
}

// DLQTopic is where undecodable query messages are parked.
func (w *Worker) DLQTopic() string {
	return w.QueryTopic + "_dlq"
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	common, err := loadCommon()
	if err != nil {
		return nil, err
	}

	c := &API{
		Common:          common,
		BindAddr:        getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		DefaultQuery:    getEnv("NEWS_DEFAULT_QUERY", "artificial intelligence AI news"),
		DefaultPeriod:   getInt("NEWS_DEFAULT_PERIOD", 7),
		RefreshSchedule: strings.TrimSpace(os.Getenv("NEWS_REFRESH_SCHEDULE")),
		RefreshOnStart:  getBool("NEWS_REFRESH_ON_START", true),
		RunsTopic:       getEnv("KAFKA_RUNS_TOPIC", "news_runs"),
	}

	if c.DefaultPeriod < 0 {
		return nil, fmt.Errorf("NEWS_DEFAULT_PERIOD cannot be negative")
	}
	if strings.TrimSpace(c.DefaultQuery) == "" {
		return nil, fmt.Errorf("NEWS_DEFAULT_QUERY must not be blank")
	}

	return c, nil
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	common, err := loadCommon()
	if err != nil {
		return nil, err
	}

	c := &Worker{
		Common:        common,
		QueryTopic:    getEnv("KAFKA_QUERY_TOPIC", "news_queries"),
		ResultTopic:   getEnv("KAFKA_RESULT_TOPIC", "news_results"),
		ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "news-worker"),
		BatchSize:     getInt("WORKER_BATCH_SIZE", 10),

		RequestCacheSize: getInt("WORKER_REQUEST_CACHE_SIZE", 10000),
		RequestTTL:       getDuration("WORKER_REQUEST_TTL", "1h"),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("WORKER_BATCH_SIZE must be positive")
	}
	if c.RequestCacheSize <= 0 {
		return nil, fmt.Errorf("WORKER_REQUEST_CACHE_SIZE must be positive")
	}
	if c.QueryTopic == c.ResultTopic {
		return nil, fmt.Errorf("KAFKA_QUERY_TOPIC and KAFKA_RESULT_TOPIC must differ")
	}

	return c, nil
}

func loadCommon() (Common, error) {
	c := Common{
		Search: Search{
			APIURL:       getEnv("ANTHROPIC_API_URL", "https://api.anthropic.com"),
			APIKey:       os.Getenv("ANTHROPIC_API_KEY"),
			Model:        getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
			APIVersion:   getEnv("ANTHROPIC_VERSION", "2023-06-01"),
			MaxTokens:    getInt("ANTHROPIC_MAX_TOKENS", 4000),
			Timeout:      getDuration("SEARCH_TIMEOUT", "30s"),
			RateInterval: getDuration("SEARCH_RATE_INTERVAL", "2s"),
			RateBurst:    getInt("SEARCH_RATE_BURST", 3),
		},
		KafkaBrokers: splitAndTrim(os.Getenv("KAFKA_BROKERS")),
	}

	if c.MaxTokens <= 0 {
		return Common{}, fmt.Errorf("ANTHROPIC_MAX_TOKENS must be positive")
	}
	if c.Timeout <= 0 {
		return Common{}, fmt.Errorf("SEARCH_TIMEOUT must be positive")
	}
	if c.RateInterval < 0 {
		return Common{}, fmt.Errorf("SEARCH_RATE_INTERVAL cannot be negative")
	}
	if c.RateBurst <= 0 {
		return Common{}, fmt.Errorf("SEARCH_RATE_BURST must be positive")
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, fallback)); err == nil {
		return d
	}
	d, err := time.ParseDuration(fallback)
	if err != nil {
		panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, err))
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
