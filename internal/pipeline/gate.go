package pipeline

import (
	"time"
)

// EventGate applies the two-tier cooldown to confirmed detections: one for
// event persistence, one for alert notifications. The alert side is also
// edge-triggered on the transition into an unauthorized-person state, so a
// fresh intrusion alerts immediately while a sustained one re-alerts only
// after the alert cooldown.
//
// The gate is written only from the detection cycle, which the scheduler
// serializes to one in flight, so it carries no lock.
type EventGate struct {
	eventCooldown       time.Duration
	alertCooldown       time.Duration
	recordWithoutPerson bool

	lastEvent     time.Time
	lastAlert     time.Time
	prevConfirmed bool
}

// NewEventGate creates a gate with the given cooldowns. recordWithoutPerson
// allows persisting events for cycles without a confirmed person.
func NewEventGate(eventCooldown, alertCooldown time.Duration, recordWithoutPerson bool) *EventGate {
	if eventCooldown <= 0 {
		eventCooldown = 12 * time.Second
	}
	if alertCooldown <= 0 {
		alertCooldown = 180 * time.Second
	}
	return &EventGate{
		eventCooldown:       eventCooldown,
		alertCooldown:       alertCooldown,
		recordWithoutPerson: recordWithoutPerson,
	}
}

// Decide evaluates one confirmed cycle outcome.
//
// record is true iff a person is confirmed (or recordWithoutPerson is set)
// and the event cooldown has elapsed. alert is only considered when record
// is true for an unauthorized confirmed person: it fires on the transition
// into that state, or when the alert cooldown has elapsed.
//
// The previous-person state is always updated after evaluation, whatever the
// outcome, so edge detection tracks every cycle.
func (g *EventGate) Decide(now time.Time, personConfirmed, authorized bool) (record, alert bool) {
	record = (personConfirmed || g.recordWithoutPerson) && now.Sub(g.lastEvent) >= g.eventCooldown
	if record {
		g.lastEvent = now
		if personConfirmed && !authorized {
			enteredAlertState := !g.prevConfirmed
			if enteredAlertState || now.Sub(g.lastAlert) >= g.alertCooldown {
				alert = true
				g.lastAlert = now
			}
		}
	}

	g.prevConfirmed = personConfirmed
	return record, alert
}
