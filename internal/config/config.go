package config

import (
	"errors"
	"os"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers   []string
	KafkaSinkTopic string
	HTTPAddr       string
	LogLevel       string
	LogFormat      string

	ShutdownTimeout time.Duration
	BatchSize       int

	// Stations are the USAF identifiers the sync daemon watches.
	Stations []string
	// SyncInterval is how often the daemon looks for new observations.
	SyncInterval time.Duration

	// DatabaseURL points at the station metadata store.
	DatabaseURL string

	// NOAABaseURL is the archive HTTP mirror. DataDir, when set, reads a
	// local mirror instead and takes precedence.
	NOAABaseURL string
	DataDir     string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	syncInterval, err := time.ParseDuration(sharedcfg.EnvOrDefault("SYNC_INTERVAL", "1h"))
	if err != nil || syncInterval <= 0 {
		return nil, errors.New("invalid SYNC_INTERVAL")
	}

	cfg := &Config{
		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic:  sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "isd-observations"),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		BatchSize:       batchSize,
		Stations:        parseStations(os.Getenv("STATIONS")),
		SyncInterval:    syncInterval,
		DatabaseURL:     sharedcfg.EnvOrDefault("DATABASE_URL", "postgres://localhost:5432/isd?sslmode=disable"),
		NOAABaseURL:     sharedcfg.EnvOrDefault("NOAA_BASE_URL", "https://www.ncei.noaa.gov"),
		DataDir:         os.Getenv("DATA_DIR"),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if strings.TrimSpace(cfg.KafkaSinkTopic) == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if len(cfg.Stations) == 0 {
		return nil, errors.New("STATIONS is required")
	}

	return cfg, nil
}

func parseStations(s string) []string {
	var out []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
