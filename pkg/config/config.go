// Package config loads generator settings from defaults, an optional YAML
// file and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/sandboxws/adsim/pkg/connectors"
	"github.com/sandboxws/adsim/pkg/event"
	"github.com/sandboxws/adsim/pkg/phase"
)

// Config mirrors config/adsim.yaml.
type Config struct {
	Kafka     KafkaConfig     `yaml:"kafka"`
	Generator GeneratorConfig `yaml:"generator"`
	Pools     PoolsConfig     `yaml:"pools"`
	Anomaly   AnomalyConfig   `yaml:"anomaly"`
	Sink      string          `yaml:"sink"` // kafka or console
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

// KafkaConfig contains broker and topic settings.
type KafkaConfig struct {
	Brokers         []string      `yaml:"brokers"`
	ClientID        string        `yaml:"client_id"`
	ImpressionTopic string        `yaml:"impression_topic"`
	ClickTopic      string        `yaml:"click_topic"`
	Codec           string        `yaml:"codec"`
	ConnectAttempts int           `yaml:"connect_attempts"`
	ConnectBackoff  time.Duration `yaml:"connect_backoff"`
}

// GeneratorConfig controls rate and click probability.
type GeneratorConfig struct {
	EventRate      float64       `yaml:"event_rate"`
	ClickRatio     float64       `yaml:"click_ratio"`
	MaxCTRCap      float64       `yaml:"max_ctr_cap"`
	DrainTimeout   time.Duration `yaml:"drain_timeout"`
	Duration       time.Duration `yaml:"duration"`
	Seed           uint64        `yaml:"seed"` // 0 picks a random seed
	ReportInterval time.Duration `yaml:"report_interval"`
}

// PoolsConfig sizes the reference pools.
type PoolsConfig struct {
	Campaigns int `yaml:"campaigns"`
	Ads       int `yaml:"ads"`
	Users     int `yaml:"users"`
}

// AnomalyConfig selects the target campaign and its phase table.
type AnomalyConfig struct {
	TargetCampaign string        `yaml:"target_campaign"`
	Phases         []PhaseConfig `yaml:"phases"`
}

// PhaseConfig is one row of the phase table.
type PhaseConfig struct {
	Name  string        `yaml:"name"`
	Start time.Duration `yaml:"start"`
	Boost float64       `yaml:"boost"`
}

// MetricsConfig controls the Prometheus endpoint. An empty address disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Kafka: KafkaConfig{
			Brokers:         []string{"kafka:9092"},
			ClientID:        "adsim",
			ImpressionTopic: "ad-impressions",
			ClickTopic:      "ad-clicks",
			Codec:           "json",
			ConnectAttempts: 5,
			ConnectBackoff:  5 * time.Second,
		},
		Generator: GeneratorConfig{
			EventRate:      50,
			ClickRatio:     0.1,
			MaxCTRCap:      0.6,
			DrainTimeout:   10 * time.Second,
			ReportInterval: 10 * time.Second,
		},
		Pools: PoolsConfig{
			Campaigns: 10,
			Ads:       100,
			Users:     10_000,
		},
		Anomaly: AnomalyConfig{
			TargetCampaign: event.CampaignID(1),
			Phases:         phasesFromSchedule(phase.DefaultSchedule()),
		},
		Sink: "kafka",
		Metrics: MetricsConfig{
			Addr: ":9464",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads defaults, overlays the YAML file at path (if any) and then the
// environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("unmarshal config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	normalize(&cfg)
	return cfg, nil
}

// envOverrides maps the deployment environment variables.
type envOverrides struct {
	Brokers         []string `envconfig:"KAFKA_BROKER"`
	ImpressionTopic string   `envconfig:"IMPRESSION_TOPIC"`
	ClickTopic      string   `envconfig:"CLICK_TOPIC"`
	EventRate       float64  `envconfig:"EVENT_RATE"`
	ClickRatio      float64  `envconfig:"CLICK_RATIO"`
	MaxCTRCap       float64  `envconfig:"MAX_CTR_CAP"`
	TargetCampaign  string   `envconfig:"TARGET_CAMPAIGN"`
	Sink            string   `envconfig:"SINK"`
	MetricsAddr     string   `envconfig:"METRICS_ADDR"`
	LogLevel        string   `envconfig:"LOG_LEVEL"`
}

// applyEnv overlays set environment variables; unset ones keep the current value.
func (c *Config) applyEnv() error {
	env := envOverrides{
		Brokers:         c.Kafka.Brokers,
		ImpressionTopic: c.Kafka.ImpressionTopic,
		ClickTopic:      c.Kafka.ClickTopic,
		EventRate:       c.Generator.EventRate,
		ClickRatio:      c.Generator.ClickRatio,
		MaxCTRCap:       c.Generator.MaxCTRCap,
		TargetCampaign:  c.Anomaly.TargetCampaign,
		Sink:            c.Sink,
		MetricsAddr:     c.Metrics.Addr,
		LogLevel:        c.Log.Level,
	}
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("process environment: %w", err)
	}

	c.Kafka.Brokers = env.Brokers
	c.Kafka.ImpressionTopic = env.ImpressionTopic
	c.Kafka.ClickTopic = env.ClickTopic
	c.Generator.EventRate = env.EventRate
	c.Generator.ClickRatio = env.ClickRatio
	c.Generator.MaxCTRCap = env.MaxCTRCap
	c.Anomaly.TargetCampaign = env.TargetCampaign
	c.Sink = env.Sink
	c.Metrics.Addr = env.MetricsAddr
	c.Log.Level = env.LogLevel
	return nil
}

func normalize(cfg *Config) {
	def := Default()
	var brokers []string
	for _, b := range cfg.Kafka.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	cfg.Kafka.Brokers = brokers
	if cfg.Kafka.Codec == "" {
		cfg.Kafka.Codec = def.Kafka.Codec
	}
	if cfg.Kafka.ConnectAttempts <= 0 {
		cfg.Kafka.ConnectAttempts = def.Kafka.ConnectAttempts
	}
	if cfg.Kafka.ConnectBackoff <= 0 {
		cfg.Kafka.ConnectBackoff = def.Kafka.ConnectBackoff
	}
	if cfg.Generator.DrainTimeout <= 0 {
		cfg.Generator.DrainTimeout = def.Generator.DrainTimeout
	}
	if cfg.Generator.ReportInterval <= 0 {
		cfg.Generator.ReportInterval = def.Generator.ReportInterval
	}
	if len(cfg.Anomaly.Phases) == 0 {
		cfg.Anomaly.Phases = def.Anomaly.Phases
	}
	if cfg.Sink == "" {
		cfg.Sink = def.Sink
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
}

// Validate fails fast on settings the generator cannot start with.
func (c Config) Validate() error {
	var errs []error

	if c.Sink != "kafka" && c.Sink != "console" {
		errs = append(errs, fmt.Errorf("sink must be kafka or console, got %q", c.Sink))
	}
	if c.Sink == "kafka" && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers must not be empty"))
	}
	if c.Kafka.ImpressionTopic == "" || c.Kafka.ClickTopic == "" {
		errs = append(errs, errors.New("kafka topics must not be empty"))
	}
	if _, err := connectors.CodecByName(c.Kafka.Codec); err != nil {
		errs = append(errs, fmt.Errorf("kafka.codec: %w", err))
	}
	if c.Generator.EventRate <= 0 {
		errs = append(errs, fmt.Errorf("generator.event_rate must be > 0, got %v", c.Generator.EventRate))
	}
	if c.Generator.ClickRatio < 0 || c.Generator.ClickRatio > 1 {
		errs = append(errs, fmt.Errorf("generator.click_ratio must be within [0, 1], got %v", c.Generator.ClickRatio))
	}
	if c.Generator.MaxCTRCap <= 0 || c.Generator.MaxCTRCap > 1 {
		errs = append(errs, fmt.Errorf("generator.max_ctr_cap must be within (0, 1], got %v", c.Generator.MaxCTRCap))
	}
	if c.Generator.Duration < 0 {
		errs = append(errs, fmt.Errorf("generator.duration must be >= 0, got %s", c.Generator.Duration))
	}
	if c.Pools.Campaigns <= 0 || c.Pools.Ads <= 0 || c.Pools.Users <= 0 {
		errs = append(errs, fmt.Errorf("pool sizes must be > 0, got campaigns=%d ads=%d users=%d",
			c.Pools.Campaigns, c.Pools.Ads, c.Pools.Users))
	} else if !slices.Contains(c.EventPools().Campaigns, c.Anomaly.TargetCampaign) {
		errs = append(errs, fmt.Errorf("anomaly.target_campaign %q is not in the campaign pool", c.Anomaly.TargetCampaign))
	}
	if err := c.Schedule().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("anomaly.phases: %w", err))
	}

	return errors.Join(errs...)
}

// EventPools builds the reference pools.
func (c Config) EventPools() event.Pools {
	return event.NewPools(c.Pools.Campaigns, c.Pools.Ads, c.Pools.Users)
}

// Schedule converts the phase table.
func (c Config) Schedule() phase.Schedule {
	s := make(phase.Schedule, len(c.Anomaly.Phases))
	for i, p := range c.Anomaly.Phases {
		s[i] = phase.Phase{Name: p.Name, Start: p.Start, Boost: p.Boost}
	}
	return s
}

func phasesFromSchedule(s phase.Schedule) []PhaseConfig {
	out := make([]PhaseConfig, len(s))
	for i, p := range s {
		out[i] = PhaseConfig{Name: p.Name, Start: p.Start, Boost: p.Boost}
	}
	return out
}
