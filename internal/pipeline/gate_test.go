package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGateEventCooldown(t *testing.T) {
	g := NewEventGate(12*time.Second, 180*time.Second, false)
	base := time.Now()

	record, _ := g.Decide(base, true, false)
	assert.True(t, record, "first confirmed detection should record")

	record, _ = g.Decide(base.Add(5*time.Second), true, false)
	assert.False(t, record, "5s later is inside the 12s cooldown")

	record, _ = g.Decide(base.Add(13*time.Second), true, false)
	assert.True(t, record, "13s later the cooldown has elapsed")
}

func TestGateAlertEdgeTrigger(t *testing.T) {
	g := NewEventGate(12*time.Second, 180*time.Second, false)
	base := time.Now()

	// No person yet
	record, alert := g.Decide(base, false, false)
	assert.False(t, record)
	assert.False(t, alert)

	// Transition into unauthorized person: alert fires immediately
	record, alert = g.Decide(base.Add(time.Second), true, false)
	assert.True(t, record)
	assert.True(t, alert)

	// Sustained presence inside both cooldowns: nothing
	record, alert = g.Decide(base.Add(2*time.Second), true, false)
	assert.False(t, record)
	assert.False(t, alert)

	// Event cooldown elapsed, alert cooldown not, no fresh transition
	record, alert = g.Decide(base.Add(14*time.Second), true, false)
	assert.True(t, record)
	assert.False(t, alert)
}

func TestGateAlertReEntersAfterGap(t *testing.T) {
	g := NewEventGate(12*time.Second, 180*time.Second, false)
	base := time.Now()

	_, alert := g.Decide(base, true, false)
	assert.True(t, alert, "fresh entry alerts")

	// Person leaves; state must track the departure even though nothing records
	record, alert := g.Decide(base.Add(2*time.Second), false, false)
	assert.False(t, record)
	assert.False(t, alert)

	// Person returns after the event cooldown: new edge, alert despite the
	// 180s alert cooldown not having elapsed
	record, alert = g.Decide(base.Add(15*time.Second), true, false)
	assert.True(t, record)
	assert.True(t, alert)
}

func TestGateNoAlertWhenAuthorized(t *testing.T) {
	g := NewEventGate(12*time.Second, 180*time.Second, false)
	base := time.Now()

	record, alert := g.Decide(base, true, true)
	assert.True(t, record, "authorized person still records an event")
	assert.False(t, alert, "authorized person never alerts")
}

func TestGateAlertCooldownReAlert(t *testing.T) {
	g := NewEventGate(12*time.Second, 30*time.Second, false)
	base := time.Now()

	_, alert := g.Decide(base, true, false)
	assert.True(t, alert)

	// Sustained intruder: re-alert only once the alert cooldown elapses
	_, alert = g.Decide(base.Add(13*time.Second), true, false)
	assert.False(t, alert)
	_, alert = g.Decide(base.Add(31*time.Second), true, false)
	assert.True(t, alert)
}

func TestGateRecordWithoutPerson(t *testing.T) {
	tests := []struct {
		name                string
		recordWithoutPerson bool
		person              bool
		wantRecord          bool
	}{
		{"person only mode skips empty frames", false, false, false},
		{"person only mode records people", false, true, true},
		{"record all mode keeps empty frames", true, false, true},
		{"record all mode keeps people", true, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewEventGate(12*time.Second, 180*time.Second, tt.recordWithoutPerson)
			record, _ := g.Decide(time.Now(), tt.person, false)
			if record != tt.wantRecord {
				t.Errorf("record = %v, want %v", record, tt.wantRecord)
			}
		})
	}
}

func TestGateAlertNeedsRecord(t *testing.T) {
	g := NewEventGate(12*time.Second, 180*time.Second, false)
	base := time.Now()

	_, alert := g.Decide(base, true, false)
	assert.True(t, alert)

	// Person departs and a new intruder appears inside the event cooldown:
	// no record, so no alert either, but the edge state keeps tracking
	_, alert = g.Decide(base.Add(3*time.Second), false, false)
	assert.False(t, alert)
	record, alert := g.Decide(base.Add(6*time.Second), true, false)
	assert.False(t, record)
	assert.False(t, alert, "alert is only evaluated on recorded events")
}
