package event

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Rand is the random source consumed by the factory and the emission loop.
// *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

// Factory builds single impressions and clicks.
type Factory struct {
	pools Pools
	rng   Rand
	newID func() string
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithIDGenerator overrides the UUIDv4 identifier generator.
func WithIDGenerator(fn func() string) FactoryOption {
	return func(f *Factory) { f.newID = fn }
}

// NewFactory creates a Factory drawing from pools with rng.
func NewFactory(pools Pools, rng Rand, opts ...FactoryOption) *Factory {
	f := &Factory{
		pools: pools,
		rng:   rng,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Impression returns a fully populated impression stamped with now.
func (f *Factory) Impression(now time.Time) Impression {
	return Impression{
		ImpressionID:   f.newID(),
		UserID:         fmt.Sprintf("user-%d", 1+f.rng.IntN(f.pools.UserPoolSize)),
		CampaignID:     pick(f.rng, f.pools.Campaigns),
		AdID:           pick(f.rng, f.pools.Ads),
		DeviceType:     pick(f.rng, f.pools.DeviceTypes),
		Browser:        pick(f.rng, f.pools.Browsers),
		EventTimestamp: now.UnixMilli(),
		Cost:           roundCents(MinCost + f.rng.Float64()*(MaxCost-MinCost)),
	}
}

// Click returns a click caused by imp. Its timestamp trails the impression by
// a delay drawn uniformly from [MinClickDelay, MaxClickDelay].
func (f *Factory) Click(imp Impression) Click {
	lo := MinClickDelay.Milliseconds()
	hi := MaxClickDelay.Milliseconds()
	delay := lo + int64(f.rng.IntN(int(hi-lo+1)))

	return Click{
		ClickID:        f.newID(),
		ImpressionID:   imp.ImpressionID,
		UserID:         imp.UserID,
		EventTimestamp: imp.EventTimestamp + delay,
	}
}

func pick(rng Rand, values []string) string {
	return values[rng.IntN(len(values))]
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
