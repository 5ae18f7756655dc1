// Package config loads the server configuration.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config defines the server configuration.
type Config struct {
	GRPCAddr    string `yaml:"grpc_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
	// JournalDir holds the shutdown checkpoint. Empty disables it.
	JournalDir      string        `yaml:"journal_dir"`
	RetireThreshold int           `yaml:"retire_threshold"`
	ReclaimInterval time.Duration `yaml:"reclaim_interval"`
	LogLevel        string        `yaml:"log_level"`
	Kafka           Kafka         `yaml:"kafka"`
}

// Kafka configures the optional stats broadcaster and egress drainer.
// Both are off while Brokers is empty.
type Kafka struct {
	Brokers       []string      `yaml:"brokers"`
	StatsTopic    string        `yaml:"stats_topic"`
	StatsInterval time.Duration `yaml:"stats_interval"`
	// DrainTopic enables the drainer when set.
	DrainTopic   string `yaml:"drain_topic"`
	DrainWorkers int    `yaml:"drain_workers"`
}

// Load reads path (if non-empty) and fills defaults for anything left
// unset.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "parse config %s", path)
		}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.GRPCAddr == "" {
		c.GRPCAddr = ":50051"
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = ":9100"
	}
	if c.ReclaimInterval == 0 {
		c.ReclaimInterval = 2 * time.Second
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Kafka.StatsTopic == "" {
		c.Kafka.StatsTopic = "atomiclifo.stats"
	}
	if c.Kafka.StatsInterval == 0 {
		c.Kafka.StatsInterval = 2 * time.Second
	}
	if c.Kafka.DrainWorkers == 0 {
		c.Kafka.DrainWorkers = 2
	}
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	if c.RetireThreshold < 0 {
		return errors.Errorf("retire_threshold must not be negative, got %d", c.RetireThreshold)
	}
	if c.Kafka.DrainWorkers < 0 {
		return errors.Errorf("kafka.drain_workers must not be negative, got %d", c.Kafka.DrainWorkers)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log_level")
	}
	return nil
}

// Level returns the parsed log level. Validate has already checked it.
func (c Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
