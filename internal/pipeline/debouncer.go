package pipeline

import (
	"sync"
)

// labelRingSize caps how many overlay label texts are kept; diagnostics
// prepend and push the oldest out.
const labelRingSize = 6

// OverlaySnapshot is a copy of the overlay state for drawing on frames.
type OverlaySnapshot struct {
	Boxes         []BBox
	LabelTexts    []string
	PersonVisible bool
}

// DetectionDebouncer turns raw per-frame person signals into confirmed
// transitions after a streak of consecutive positives, and owns the overlay
// state shown on published frames. The streak counts inference cycles, not
// wall-clock time, so the debounce window scales with the inference interval.
type DetectionDebouncer struct {
	minFrames int

	mu         sync.Mutex
	streak     int
	lastBoxes  []BBox
	labelTexts []string // Most recent first, capped at labelRingSize
	personFlag bool
}

// NewDetectionDebouncer creates a debouncer requiring minFrames consecutive
// person-positive cycles before confirming.
func NewDetectionDebouncer(minFrames int) *DetectionDebouncer {
	if minFrames <= 0 {
		minFrames = 2 // Default streak threshold
	}
	return &DetectionDebouncer{
		minFrames: minFrames,
	}
}

// Update records one cycle's raw result. The overlay (boxes, label texts,
// person flag) is always updated regardless of the streak. Returns
// DebounceConfirmed only when the person signal is raw-positive and has held
// for at least minFrames consecutive cycles.
func (d *DetectionDebouncer) Update(personDetected bool, boxes []BBox, labelTexts []string) DebounceDecision {
	d.mu.Lock()
	defer d.mu.Unlock()

	if personDetected {
		d.streak++
	} else {
		d.streak = 0
	}

	d.lastBoxes = boxes
	d.labelTexts = clipTexts(labelTexts)
	d.personFlag = personDetected

	if personDetected && d.streak >= d.minFrames {
		return DebounceConfirmed
	}
	return DebouncePending
}

// RecordFault prepends a diagnostic line to the overlay label texts so cycle
// failures stay visible to viewers.
func (d *DetectionDebouncer) RecordFault(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	texts := make([]string, 0, labelRingSize)
	texts = append(texts, text)
	texts = append(texts, d.labelTexts...)
	d.labelTexts = clipTexts(texts)
}

// Snapshot returns a copy of the current overlay state.
func (d *DetectionDebouncer) Snapshot() OverlaySnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	snap := OverlaySnapshot{
		Boxes:         make([]BBox, len(d.lastBoxes)),
		LabelTexts:    make([]string, len(d.labelTexts)),
		PersonVisible: d.personFlag,
	}
	copy(snap.Boxes, d.lastBoxes)
	copy(snap.LabelTexts, d.labelTexts)
	return snap
}

// Streak returns the current consecutive-positive count.
func (d *DetectionDebouncer) Streak() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.streak
}

// Reset clears the streak and the overlay, e.g. when the source changes.
func (d *DetectionDebouncer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.streak = 0
	d.lastBoxes = nil
	d.labelTexts = nil
	d.personFlag = false
}

func clipTexts(texts []string) []string {
	if len(texts) > labelRingSize {
		texts = texts[:labelRingSize]
	}
	return texts
}
