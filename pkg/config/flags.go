package config

import (
	"flag"
	"strings"
	"time"
)

// Flags holds command-line overrides. Only flags set explicitly override the
// loaded config.
type Flags struct {
	fs *flag.FlagSet

	Path        string
	sink        string
	brokers     string
	codec       string
	rate        float64
	duration    time.Duration
	seed        uint64
	metricsAddr string
	logLevel    string
	logFormat   string
}

// RegisterFlags defines the generator flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.Path, "config", "", "YAML config file")
	fs.StringVar(&f.sink, "sink", "", "Sink: kafka or console")
	fs.StringVar(&f.brokers, "brokers", "", "Kafka bootstrap servers, comma separated")
	fs.StringVar(&f.codec, "codec", "", "Record encoding: json or protobuf")
	fs.Float64Var(&f.rate, "rate", 0, "Impressions per second")
	fs.DurationVar(&f.duration, "duration", 0, "Duration to run (0=infinite)")
	fs.Uint64Var(&f.seed, "seed", 0, "Random seed (0=random)")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "Prometheus listen address")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", "", "Log format: text or json")
	return f
}

// Load reads the config named by -config, overlays the environment and then
// the flags set on the command line. fs must already be parsed.
func (f *Flags) Load() (Config, error) {
	cfg, err := Load(f.Path)
	if err != nil {
		return cfg, err
	}
	f.Apply(&cfg)
	return cfg, nil
}

// Apply overlays the explicitly set flags onto cfg and normalizes the result.
func (f *Flags) Apply(cfg *Config) {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "sink":
			cfg.Sink = f.sink
		case "brokers":
			cfg.Kafka.Brokers = strings.Split(f.brokers, ",")
		case "codec":
			cfg.Kafka.Codec = f.codec
		case "rate":
			cfg.Generator.EventRate = f.rate
		case "duration":
			cfg.Generator.Duration = f.duration
		case "seed":
			cfg.Generator.Seed = f.seed
		case "metrics-addr":
			cfg.Metrics.Addr = f.metricsAddr
		case "log-level":
			cfg.Log.Level = f.logLevel
		case "log-format":
			cfg.Log.Format = f.logFormat
		}
	})
	normalize(cfg)
}
