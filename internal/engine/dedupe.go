package engine

import (
	"time"

	"github.com/inboxhq/support-inbox/internal/model"
	"github.com/inboxhq/support-inbox/pkg/metrics"
)

// DefaultDedupeWindow is the content-heuristic window used when none is
// configured. The original value is a tuned constant with no documented
// derivation, so it stays a knob.
const DefaultDedupeWindow = 2 * time.Second

// isDuplicate decides whether candidate is already represented in
// existing.
//
// The primary rule matches server-issued ids. The secondary rule treats
// a non-customer message as a duplicate of an existing non-customer
// message with identical content inside the window; it covers rapid
// automated replies where a fetch and a push event race for the same
// logical message before they share an id. Two genuinely distinct
// automated replies with identical text inside the window are merged by
// this rule. That false positive is accepted: it is far less disruptive
// than visibly duplicated bubbles.
func isDuplicate(candidate model.Message, existing []model.Message, window time.Duration) bool {
	if window <= 0 {
		window = DefaultDedupeWindow
	}
	for _, m := range existing {
		if m.IsTemp() {
			// Unconfirmed local sends are resolved by the echo path,
			// not the deduplicator.
			continue
		}
		if candidate.ID != "" && m.ID == candidate.ID {
			metrics.DuplicatesSuppressedTotal.WithLabelValues("id").Inc()
			return true
		}
		if candidate.Sender.FromCustomer() || m.Sender.FromCustomer() {
			continue
		}
		if m.Content == candidate.Content && within(m.Timestamp, candidate.Timestamp, window) {
			metrics.DuplicatesSuppressedTotal.WithLabelValues("content_window").Inc()
			return true
		}
	}
	return false
}

func within(a, b time.Time, window time.Duration) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= window
}
