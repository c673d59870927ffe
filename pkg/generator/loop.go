// Package generator drives impression and click generation at a target rate,
// injecting correlated clicks with a phase-dependent probability.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/sandboxws/adsim/pkg/connectors"
	"github.com/sandboxws/adsim/pkg/event"
	"github.com/sandboxws/adsim/pkg/metrics"
	"github.com/sandboxws/adsim/pkg/phase"
)

const defaultDrainTimeout = 10 * time.Second

// Config holds the loop settings. It is read once and never changed.
type Config struct {
	ImpressionTopic string
	ClickTopic      string

	// EventRate is the target number of impressions per second.
	EventRate float64

	// BaseClickRatio is the click probability before boosting.
	BaseClickRatio float64

	// MaxCTRCap is the ceiling applied to the boosted click probability.
	MaxCTRCap float64

	// DrainTimeout bounds the final sink flush.
	DrainTimeout time.Duration

	// Duration stops the loop after this much elapsed time. Zero runs until
	// the context is canceled.
	Duration time.Duration
}

// Validate rejects settings the loop cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.ImpressionTopic == "" || c.ClickTopic == "" {
		errs = append(errs, errors.New("impression and click topics are required"))
	}
	if c.EventRate <= 0 || math.IsInf(c.EventRate, 0) || math.IsNaN(c.EventRate) {
		errs = append(errs, fmt.Errorf("event rate must be > 0, got %v", c.EventRate))
	}
	if c.BaseClickRatio < 0 || c.BaseClickRatio > 1 {
		errs = append(errs, fmt.Errorf("base click ratio must be within [0, 1], got %v", c.BaseClickRatio))
	}
	if c.MaxCTRCap <= 0 || c.MaxCTRCap > 1 {
		errs = append(errs, fmt.Errorf("max CTR cap must be within (0, 1], got %v", c.MaxCTRCap))
	}
	if c.Duration < 0 {
		errs = append(errs, fmt.Errorf("duration must be >= 0, got %s", c.Duration))
	}
	return errors.Join(errs...)
}

// ClickProbability returns the boosted click probability, never above maxCap.
func ClickProbability(base, boost, maxCap float64) float64 {
	return math.Min(maxCap, base*boost)
}

// Loop is the single-goroutine emission loop.
type Loop struct {
	cfg     Config
	factory *event.Factory
	phases  *phase.Controller
	sink    connectors.Sink
	rng     event.Rand
	clock   Clock
	logger  *slog.Logger

	stats     counters
	drainOnce sync.Once
}

// Option configures a Loop.
type Option func(*Loop)

// WithRand sets the source of the per-impression click draw.
func WithRand(rng event.Rand) Option {
	return func(l *Loop) { l.rng = rng }
}

// WithClock replaces the wall clock used for elapsed time and pacing.
func WithClock(c Clock) Option {
	return func(l *Loop) { l.clock = c }
}

// WithLogger sets the loop logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) { l.logger = logger }
}

// New creates a Loop. The loop owns sink from here on: Run flushes and closes
// it on exit.
func New(cfg Config, factory *event.Factory, phases *phase.Controller, sink connectors.Sink, opts ...Option) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("generator: invalid config: %w", err)
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = defaultDrainTimeout
	}

	l := &Loop{
		cfg:     cfg,
		factory: factory,
		phases:  phases,
		sink:    sink,
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		clock:   wallClock{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "generator")
	return l, nil
}

// Run generates events until ctx is canceled or the configured duration
// elapses. Cancellation is observed between ticks. The sink is drained
// exactly once before Run returns, on every exit path.
func (l *Loop) Run(ctx context.Context) error {
	defer l.drain()

	interval := time.Duration(float64(time.Second) / l.cfg.EventRate)
	start := l.clock.Now()

	l.logger.Info("starting event generation",
		"rate", l.cfg.EventRate,
		"interval", interval,
		"click_ratio", l.cfg.BaseClickRatio,
		"max_ctr_cap", l.cfg.MaxCTRCap,
		"target_campaign", l.phases.Target(),
	)

	for {
		if err := ctx.Err(); err != nil {
			l.logger.Info("stopping event generation", "reason", err, "stats", l.Stats())
			return nil
		}

		tickStart := l.clock.Now()
		elapsed := tickStart.Sub(start)
		if l.cfg.Duration > 0 && elapsed >= l.cfg.Duration {
			l.logger.Info("duration reached", "elapsed", elapsed, "stats", l.Stats())
			return nil
		}

		l.tick(ctx, elapsed, tickStart)

		spent := l.clock.Now().Sub(tickStart)
		metrics.TickLatency.Observe(spent.Seconds())

		// Missed intervals are not made up on later ticks.
		if wait := interval - spent; wait > 0 {
			l.clock.Sleep(ctx, wait)
		}
	}
}

// tick emits one impression and at most one correlated click.
func (l *Loop) tick(ctx context.Context, elapsed time.Duration, now time.Time) {
	l.phases.Advance(elapsed)

	imp := l.factory.Impression(now)
	p := ClickProbability(l.cfg.BaseClickRatio, l.phases.Boost(imp.CampaignID), l.cfg.MaxCTRCap)

	l.sink.Publish(ctx, l.cfg.ImpressionTopic, imp.ImpressionID, imp)
	l.stats.impressions.Add(1)
	metrics.ImpressionsEmitted.WithLabelValues(imp.CampaignID).Inc()

	if l.rng.Float64() < p {
		click := l.factory.Click(imp)
		l.sink.Publish(ctx, l.cfg.ClickTopic, click.ClickID, click)
		l.stats.clicks.Add(1)
		metrics.ClicksEmitted.WithLabelValues(imp.CampaignID).Inc()
	}
	l.stats.ticks.Add(1)
}

func (l *Loop) drain() {
	l.drainOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), l.cfg.DrainTimeout)
		defer cancel()

		l.logger.Info("flushing sink", "timeout", l.cfg.DrainTimeout)
		if err := l.sink.Flush(ctx); err != nil {
			l.logger.Warn("flush incomplete", "error", err)
		}
		if err := l.sink.Close(); err != nil {
			l.logger.Warn("close sink", "error", err)
		}
		l.logger.Info("sink closed", "stats", l.Stats())
	})
}
