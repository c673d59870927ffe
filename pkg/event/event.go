// Package event defines the impression and click records produced by the
// generator and the factory that synthesizes them from reference pools.
package event

import (
	"fmt"
	"time"
)

const (
	// MinCost and MaxCost bound the cost of a single impression.
	MinCost = 0.01
	MaxCost = 0.50

	// MinClickDelay and MaxClickDelay bound the gap between an impression and
	// the click it causes.
	MinClickDelay = 500 * time.Millisecond
	MaxClickDelay = 10 * time.Second
)

// Record is a publishable event.
type Record interface {
	// EventKey returns the identifier used as the message key.
	EventKey() string

	// AppendProto appends the protobuf wire encoding of the record to b.
	AppendProto(b []byte) []byte
}

// Impression is an ad being shown to a user.
type Impression struct {
	ImpressionID   string  `json:"impression_id"`
	UserID         string  `json:"user_id"`
	CampaignID     string  `json:"campaign_id"`
	AdID           string  `json:"ad_id"`
	DeviceType     string  `json:"device_type"`
	Browser        string  `json:"browser"`
	EventTimestamp int64   `json:"event_timestamp"` // milliseconds since epoch
	Cost           float64 `json:"cost"`
}

// EventKey implements Record.
func (i Impression) EventKey() string { return i.ImpressionID }

// Click is a user interaction caused by exactly one earlier impression.
type Click struct {
	ClickID        string `json:"click_id"`
	ImpressionID   string `json:"impression_id"`
	UserID         string `json:"user_id"`
	EventTimestamp int64  `json:"event_timestamp"` // milliseconds since epoch
}

// EventKey implements Record.
func (c Click) EventKey() string { return c.ClickID }

// Pools holds the reference data impressions are drawn from.
type Pools struct {
	Campaigns    []string
	Ads          []string
	DeviceTypes  []string
	Browsers     []string
	UserPoolSize int
}

var (
	deviceTypes = []string{"mobile", "desktop", "tablet"}
	browsers    = []string{"chrome", "safari", "firefox", "edge"}
)

// NewPools builds pools of camp-1..camp-N and ad-1..ad-M identifiers over a
// user pool of the given size.
func NewPools(campaigns, ads, users int) Pools {
	return Pools{
		Campaigns:    numbered("camp", campaigns),
		Ads:          numbered("ad", ads),
		DeviceTypes:  deviceTypes,
		Browsers:     browsers,
		UserPoolSize: users,
	}
}

// DefaultPools returns 10 campaigns, 100 ads and 10,000 users.
func DefaultPools() Pools {
	return NewPools(10, 100, 10_000)
}

// CampaignID returns the identifier of the n-th campaign (1-based).
func CampaignID(n int) string {
	return fmt.Sprintf("camp-%d", n)
}

func numbered(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s-%d", prefix, i+1)
	}
	return out
}
