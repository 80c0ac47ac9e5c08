// Package scoring computes RFM scores for captured leads.
// Score is a pure function of a lead's interaction history at computation
// time: no side effects, no hidden state, and it never fails. Missing or
// partial history degrades to the lowest applicable band.
package scoring

import (
	"fmt"
	"time"

	"trafficpool_backend/internal/trafficpool/domain"
)

const (
	// scoreVersion tracks the scoring model for debugging and analysis.
	// Bump this when changing band boundaries or the segment table.
	scoreVersion = "rfm-v1"

	// trailingWindow bounds the history considered for the frequency and
	// monetary axes. Recency looks at the single latest interaction.
	trailingWindow = 90 * 24 * time.Hour
)

// Version returns the scoring model identifier persisted alongside scores.
func Version() string {
	return scoreVersion
}

// Score computes the lead's RFM score relative to now.
func Score(lead domain.Lead, now time.Time) domain.RFMScore {
	r := recencyBand(lead, now)
	f := frequencyBand(lead, now)
	m := monetaryBand(lead, now)

	total := r + f + m
	segment := segmentFor(r, f, m, total)

	return domain.RFMScore{
		Recency:   r,
		Frequency: f,
		Monetary:  m,
		Total:     total,
		Segment:   segment,
		Priority:  priorityFor(segment),
	}
}

// recencyBand buckets time since the most recent interaction.
// Band 5 is most recent; a lead with no interactions gets band 1.
func recencyBand(lead domain.Lead, now time.Time) int {
	latest, ok := lead.LastInteractionAt()
	if !ok {
		return 1
	}

	age := now.Sub(latest)
	switch {
	case age <= 24*time.Hour:
		return 5
	case age <= 7*24*time.Hour:
		return 4
	case age <= 30*24*time.Hour:
		return 3
	case age <= trailingWindow:
		return 2
	default:
		return 1
	}
}

// frequencyBand buckets interaction count over the trailing window.
func frequencyBand(lead domain.Lead, now time.Time) int {
	count := 0
	for _, it := range lead.Interactions {
		if inWindow(it.Timestamp, now) {
			count++
		}
	}

	switch {
	case count >= 20:
		return 5
	case count >= 10:
		return 4
	case count >= 5:
		return 3
	case count >= 2:
		return 2
	default:
		return 1
	}
}

// monetaryBand buckets cumulative purchase value over the trailing window.
func monetaryBand(lead domain.Lead, now time.Time) int {
	var totalCents int64
	for _, it := range lead.Interactions {
		if it.Type == domain.InteractionPurchase && inWindow(it.Timestamp, now) {
			totalCents += it.AmountCents
		}
	}

	switch {
	case totalCents >= 100_000: // >= 1000 currency units
		return 5
	case totalCents >= 50_000:
		return 4
	case totalCents >= 20_000:
		return 3
	case totalCents >= 5_000:
		return 2
	default:
		return 1
	}
}

func inWindow(ts time.Time, now time.Time) bool {
	return !ts.After(now) && now.Sub(ts) <= trailingWindow
}

// Canonical named segments for the eight RFM corners plus the churn-risk
// center. Triples absent from the table fall back to a total-based tier
// rather than failing; the original segment catalogue is deliberately
// sparse and the fallback is the documented design.
var segmentTable = map[string]string{
	"555": "Key Value Customer",
	"551": "Loyal Browser",
	"515": "Big Ticket Sleeper",
	"155": "Lapsed High Spender",
	"511": "Fresh Prospect",
	"151": "Habitual Lurker",
	"115": "One-off Whale",
	"111": "Churn Risk",
	"333": "Steady Mid Tier",
}

// Total-tier fallback segments. Boundaries: total>=12 high, >=9 medium-high,
// >=6 medium, else low. Total is always in [3,15] so every triple lands
// somewhere.
const (
	segmentHighValue = "High Value"
	segmentPromising = "Promising"
	segmentAverage   = "Average"
	segmentDormant   = "Dormant"
)

func segmentFor(r, f, m, total int) string {
	if name, ok := segmentTable[fmt.Sprintf("%d%d%d", r, f, m)]; ok {
		return name
	}
	switch {
	case total >= 12:
		return segmentHighValue
	case total >= 9:
		return segmentPromising
	case total >= 6:
		return segmentAverage
	default:
		return segmentDormant
	}
}

// priorityFor maps segments to business priority. High-value and high-risk
// segments rank high (risk segments need intervention before they lapse),
// stable mid segments medium, new or dormant low.
func priorityFor(segment string) domain.Priority {
	switch segment {
	case "Key Value Customer", "Big Ticket Sleeper", "Lapsed High Spender",
		"One-off Whale", segmentHighValue:
		return domain.PriorityHigh
	case "Loyal Browser", "Habitual Lurker", "Steady Mid Tier",
		segmentPromising, segmentAverage:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}
