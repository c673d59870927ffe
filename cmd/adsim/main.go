// Command adsim produces synthetic ad impressions and correlated clicks to
// Kafka, periodically dropping and spiking the click-through rate of one
// target campaign so anomaly detectors downstream have something to find.
//
// Impression: { impression_id, user_id, campaign_id, ad_id, device_type, browser, event_timestamp, cost }
// Click:      { click_id, impression_id, user_id, event_timestamp }
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/sandboxws/adsim/pkg/config"
	"github.com/sandboxws/adsim/pkg/connectors"
	"github.com/sandboxws/adsim/pkg/engine"
	"github.com/sandboxws/adsim/pkg/event"
	"github.com/sandboxws/adsim/pkg/generator"
	"github.com/sandboxws/adsim/pkg/metrics"
	"github.com/sandboxws/adsim/pkg/phase"
)

var version = "dev"

func main() {
	if len(os.Args) == 2 && (os.Args[1] == "--version" || os.Args[1] == "version") {
		fmt.Println(version)
		return
	}

	flags := config.RegisterFlags(flag.CommandLine)
	flag.Parse()

	cfg, err := flags.Load()
	if err != nil {
		slog.Error("failed to load config", "path", flags.Path, "error", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(cfg.Log))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	if err := run(context.Background(), cfg); err != nil {
		slog.Error("generator failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	slog.Info("starting ad event generator",
		"sink", cfg.Sink,
		"brokers", cfg.Kafka.Brokers,
		"impression_topic", cfg.Kafka.ImpressionTopic,
		"click_topic", cfg.Kafka.ClickTopic,
		"rate", cfg.Generator.EventRate,
		"target_campaign", cfg.Anomaly.TargetCampaign,
	)

	if cfg.Metrics.Addr != "" {
		server := metrics.ServeMetrics(cfg.Metrics.Addr)
		defer server.Close()
		slog.Info("serving metrics", "addr", cfg.Metrics.Addr)
	}

	codec, err := connectors.CodecByName(cfg.Kafka.Codec)
	if err != nil {
		return err
	}

	var sink connectors.Sink
	if cfg.Sink == "console" {
		console := connectors.NewConsole(codec)
		defer func() { slog.Info("console sink finished", "records", console.Count()) }()
		sink = console
	} else {
		sink, err = connectors.ConnectKafka(ctx, connectors.KafkaConfig{
			Brokers:         cfg.Kafka.Brokers,
			ClientID:        cfg.Kafka.ClientID,
			Codec:           codec,
			ConnectAttempts: cfg.Kafka.ConnectAttempts,
			ConnectBackoff:  cfg.Kafka.ConnectBackoff,
		}, slog.Default())
		if err != nil {
			return err
		}
	}
	// The loop drains the sink; this only covers exits before it starts.
	defer sink.Close()

	seed := cfg.Generator.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	pools := cfg.EventPools()
	factory := event.NewFactory(pools, rng)
	controller := phase.NewController(cfg.Anomaly.TargetCampaign, pools.Campaigns, cfg.Schedule(), slog.Default())

	loop, err := generator.New(generator.Config{
		ImpressionTopic: cfg.Kafka.ImpressionTopic,
		ClickTopic:      cfg.Kafka.ClickTopic,
		EventRate:       cfg.Generator.EventRate,
		BaseClickRatio:  cfg.Generator.ClickRatio,
		MaxCTRCap:       cfg.Generator.MaxCTRCap,
		DrainTimeout:    cfg.Generator.DrainTimeout,
		Duration:        cfg.Generator.Duration,
	}, factory, controller, sink, generator.WithRand(rng))
	if err != nil {
		return err
	}

	reportCtx, stopReport := context.WithCancel(ctx)
	defer stopReport()
	go generator.ReportThroughput(reportCtx, loop, cfg.Generator.ReportInterval)

	// Leave room for the drain before forcing exit.
	err = engine.RunWithGracefulShutdown(ctx, loop, cfg.Generator.DrainTimeout+5*time.Second)
	if errors.Is(err, engine.ErrShutdownTimeout) {
		slog.Warn("generator did not drain in time")
		return nil
	}
	return err
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
