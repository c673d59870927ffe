package phase

import (
	"log/slog"
	"time"

	"github.com/sandboxws/adsim/pkg/metrics"
)

// Controller owns the per-campaign boost map. It is not safe for concurrent
// use; the emission loop is its only caller.
type Controller struct {
	target   string
	schedule Schedule
	boosts   map[string]float64
	current  int // index into schedule, -1 before the first Advance
	logger   *slog.Logger
}

// NewController creates a controller for the given target campaign. Every
// campaign in campaigns starts with a boost of 1.0.
func NewController(target string, campaigns []string, schedule Schedule, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	boosts := make(map[string]float64, len(campaigns))
	for _, c := range campaigns {
		boosts[c] = 1.0
		metrics.CampaignBoost.WithLabelValues(c).Set(1.0)
	}
	return &Controller{
		target:   target,
		schedule: schedule,
		boosts:   boosts,
		current:  -1,
		logger:   logger.With("component", "phase", "target_campaign", target),
	}
}

// Target returns the campaign affected by the schedule.
func (c *Controller) Target() string { return c.target }

// Advance recomputes the target boost for elapsed and returns the active
// phase. The first observation of a new phase is logged.
func (c *Controller) Advance(elapsed time.Duration) Phase {
	idx, p := c.schedule.At(elapsed)
	c.boosts[c.target] = p.Boost

	if idx != c.current {
		c.current = idx
		c.logger.Info("entering phase",
			"phase", idx+1,
			"name", p.Name,
			"elapsed", elapsed.Truncate(time.Second),
			"boost", p.Boost,
		)
		metrics.Phase.Set(float64(idx + 1))
		metrics.CampaignBoost.WithLabelValues(c.target).Set(p.Boost)
	}
	return p
}

// Boost returns the current multiplier for campaign. Unknown campaigns get 1.0.
func (c *Controller) Boost(campaign string) float64 {
	if b, ok := c.boosts[campaign]; ok {
		return b
	}
	return 1.0
}

// CurrentBoost advances to elapsed and returns the boost for campaign.
func (c *Controller) CurrentBoost(elapsed time.Duration, campaign string) float64 {
	c.Advance(elapsed)
	return c.Boost(campaign)
}
