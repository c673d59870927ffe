// Package phase implements the elapsed-time state machine that alters the
// click probability of one target campaign to inject CTR anomalies.
package phase

import (
	"fmt"
	"time"
)

// Phase is a contiguous elapsed-time window during which the target
// campaign's boost is held constant. A phase lasts until the next phase in
// its schedule starts.
type Phase struct {
	Name  string
	Start time.Duration
	Boost float64
}

// Schedule is an ordered list of phases. The last phase never ends.
type Schedule []Phase

// DefaultSchedule returns baseline, drop, spike and recovery phases of five
// minutes each.
func DefaultSchedule() Schedule {
	return Schedule{
		{Name: "baseline", Start: 0, Boost: 1.0},
		{Name: "drop", Start: 5 * time.Minute, Boost: 0.1},
		{Name: "spike", Start: 10 * time.Minute, Boost: 4.0},
		{Name: "recovery", Start: 15 * time.Minute, Boost: 1.0},
	}
}

// Validate checks that the schedule starts at zero, is strictly increasing
// and only carries positive boosts.
func (s Schedule) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("schedule must contain at least one phase")
	}
	if s[0].Start != 0 {
		return fmt.Errorf("first phase %q must start at 0, got %s", s[0].Name, s[0].Start)
	}
	for i, p := range s {
		if p.Boost <= 0 {
			return fmt.Errorf("phase[%d] %q: boost must be > 0, got %v", i, p.Name, p.Boost)
		}
		if i > 0 && p.Start <= s[i-1].Start {
			return fmt.Errorf("phase[%d] %q: start %s must be after %s", i, p.Name, p.Start, s[i-1].Start)
		}
	}
	return nil
}

// At returns the index and phase active at elapsed. Negative elapsed times
// map to the first phase.
func (s Schedule) At(elapsed time.Duration) (int, Phase) {
	idx := 0
	for i := 1; i < len(s); i++ {
		if elapsed < s[i].Start {
			break
		}
		idx = i
	}
	return idx, s[idx]
}

// BoostAt returns the click-probability multiplier for campaign at elapsed.
// Campaigns other than target always get 1.0.
func BoostAt(s Schedule, target string, elapsed time.Duration, campaign string) float64 {
	if campaign != target {
		return 1.0
	}
	_, p := s.At(elapsed)
	return p.Boost
}
