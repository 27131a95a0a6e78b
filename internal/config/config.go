package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Upstream endpoints.
	USGSBaseURL       string
	NWPSBaseURL       string
	ReachPrimaryURL   string
	ReachSecondaryURL string
	RequestTimeout    time.Duration

	// Bulk fetch pacing.
	FetchConcurrency int
	FetchInterval    time.Duration

	// Merge engine.
	HistoryWindow  time.Duration
	NowcastRadius  float64
	NowcastHorizon time.Duration
	ReachCacheSize int

	// Optional catalog publishing.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from the environment (and a .env file when one
// exists), applying defaults where unset.
func Load() (*Config, error) {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	requestTimeout, err := parseDuration("REQUEST_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	fetchInterval, err := parseDuration("FETCH_INTERVAL", "200ms")
	if err != nil {
		return nil, err
	}
	historyWindow, err := parseDuration("HISTORY_WINDOW", "168h")
	if err != nil {
		return nil, err
	}
	nowcastHorizon, err := parseDuration("NOWCAST_HORIZON", "6h")
	if err != nil {
		return nil, err
	}

	fetchConcurrency, err := parseInt("FETCH_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}
	reachCacheSize, err := parseInt("REACH_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}

	nowcastRadius, err := parseFloat("NOWCAST_RADIUS_METERS", 2000)
	if err != nil {
		return nil, err
	}

	kafkaEnabled := false
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		USGSBaseURL:       envOrDefault("USGS_BASE_URL", "https://waterservices.usgs.gov/nwis/iv"),
		NWPSBaseURL:       envOrDefault("NWPS_BASE_URL", "https://api.water.noaa.gov/nwps/v1"),
		ReachPrimaryURL:   envOrDefault("REACH_PRIMARY_URL", "https://maps.water.noaa.gov/server/rest/services/nwm/streamflow/MapServer/0"),
		ReachSecondaryURL: envOrDefault("REACH_SECONDARY_URL", "https://livefeeds3.arcgis.com/arcgis/rest/services/NFIE/NationalWaterModel/MapServer/0"),
		RequestTimeout:    requestTimeout,

		FetchConcurrency: fetchConcurrency,
		FetchInterval:    fetchInterval,

		HistoryWindow:  historyWindow,
		NowcastRadius:  nowcastRadius,
		NowcastHorizon: nowcastHorizon,
		ReachCacheSize: reachCacheSize,

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "gauge-catalog"),
	}

	if cfg.FetchConcurrency < 1 || cfg.FetchConcurrency > 16 {
		return nil, errors.New("FETCH_CONCURRENCY must be between 1 and 16")
	}
	if cfg.HistoryWindow < 24*time.Hour {
		return nil, errors.New("HISTORY_WINDOW must be at least 24h")
	}
	if cfg.NowcastRadius <= 0 {
		return nil, errors.New("NOWCAST_RADIUS_METERS must be positive")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_TOPIC is empty")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	raw := envOrDefault(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return d, nil
}

func parseInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return n, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return f, nil
}

func parseBrokers(raw string) []string {
	parts := strings.Split(raw, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}
