package pipeline

// lowConfidenceBound is the confidence below which an event is bumped to
// medium severity.
const lowConfidenceBound = 70

// Classify maps a detection outcome to its event type.
func Classify(personDetected, authorized bool) EventType {
	switch {
	case personDetected && !authorized:
		return EventIntrusion
	case personDetected && authorized:
		return EventAuthorized
	default:
		return EventMotion
	}
}

// SeverityFor ranks a detection outcome. An unauthorized person is always
// HIGH, regardless of confidence. Otherwise a present confidence below the
// bound yields MEDIUM, anything else LOW.
func SeverityFor(personDetected, authorized bool, confidence float32) Severity {
	if personDetected && !authorized {
		return SeverityHigh
	}
	if confidence > 0 && confidence < lowConfidenceBound {
		return SeverityMedium
	}
	return SeverityLow
}
