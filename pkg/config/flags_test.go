package config

import (
	"flag"
	"io"
	"slices"
	"testing"
	"time"
)

func parseFlags(t *testing.T, args ...string) *Flags {
	t.Helper()
	fs := flag.NewFlagSet("adsim", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	f := RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return f
}

func TestPrecedence(t *testing.T) {
	path := writeConfig(t, `
kafka:
  codec: protobuf
generator:
  event_rate: 10
  click_ratio: 0.05
  duration: 1m
sink: console
`)

	tests := []struct {
		name     string
		args     []string
		env      map[string]string
		rate     float64
		ratio    float64
		sink     string
		duration time.Duration
	}{
		{
			name:  "defaults",
			rate:  50,
			ratio: 0.1,
			sink:  "kafka",
		},
		{
			name:     "file over defaults",
			args:     []string{"-config", path},
			rate:     10,
			ratio:    0.05,
			sink:     "console",
			duration: time.Minute,
		},
		{
			name:     "env over file",
			args:     []string{"-config", path},
			env:      map[string]string{"EVENT_RATE": "75", "SINK": "kafka"},
			rate:     75,
			ratio:    0.05,
			sink:     "kafka",
			duration: time.Minute,
		},
		{
			name:     "flags over env",
			args:     []string{"-config", path, "-rate", "120", "-sink", "console"},
			env:      map[string]string{"EVENT_RATE": "75", "SINK": "kafka"},
			rate:     120,
			ratio:    0.05,
			sink:     "console",
			duration: time.Minute,
		},
		{
			name:  "explicit zero flag wins",
			args:  []string{"-config", path, "-duration", "0s"},
			rate:  10,
			ratio: 0.05,
			sink:  "console",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := parseFlags(t, tt.args...).Load()
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if cfg.Generator.EventRate != tt.rate {
				t.Errorf("rate = %v, want %v", cfg.Generator.EventRate, tt.rate)
			}
			if cfg.Generator.ClickRatio != tt.ratio {
				t.Errorf("click ratio = %v, want %v", cfg.Generator.ClickRatio, tt.ratio)
			}
			if cfg.Sink != tt.sink {
				t.Errorf("sink = %q, want %q", cfg.Sink, tt.sink)
			}
			if cfg.Generator.Duration != tt.duration {
				t.Errorf("duration = %s, want %s", cfg.Generator.Duration, tt.duration)
			}
		})
	}
}

func TestBrokerFlagIsTrimmed(t *testing.T) {
	tests := []struct {
		brokers string
		want    []string
	}{
		{"a:9092,b:9092", []string{"a:9092", "b:9092"}},
		{"a:9092, b:9092", []string{"a:9092", "b:9092"}},
		{"a:9092,", []string{"a:9092"}},
		{" , ", nil},
	}

	for _, tt := range tests {
		cfg, err := parseFlags(t, "-brokers", tt.brokers).Load()
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if !slices.Equal(cfg.Kafka.Brokers, tt.want) {
			t.Errorf("-brokers %q: got %q, want %q", tt.brokers, cfg.Kafka.Brokers, tt.want)
		}
	}
}

func TestEmptyBrokerFlagFailsValidation(t *testing.T) {
	cfg, err := parseFlags(t, "-brokers", "", "-sink", "kafka").Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for an empty broker list")
	}
}

func TestUnsetFlagsKeepLoadedValues(t *testing.T) {
	cfg := Default()
	cfg.Kafka.Codec = "protobuf"
	cfg.Log.Level = "debug"

	parseFlags(t, "-rate", "5").Apply(&cfg)

	if cfg.Kafka.Codec != "protobuf" || cfg.Log.Level != "debug" {
		t.Fatalf("unset flags must not override: codec=%q level=%q", cfg.Kafka.Codec, cfg.Log.Level)
	}
	if cfg.Generator.EventRate != 5 {
		t.Fatalf("rate = %v, want 5", cfg.Generator.EventRate)
	}
}
