package pipeline

import (
	"fmt"
	"strings"
	"time"
)

// EventType classifies what a confirmed detection means
type EventType string

const (
	// EventIntrusion - person present and not authorized
	EventIntrusion EventType = "INTRUSION"
	// EventAuthorized - person present and recognized as authorized
	EventAuthorized EventType = "AUTHORIZED"
	// EventMotion - activity without a confirmed person
	EventMotion EventType = "MOTION"
)

// Severity ranks how urgent an event is
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// DebounceDecision is the outcome of one debouncer update
type DebounceDecision string

const (
	// DebouncePending - overlay updated, no downstream action yet
	DebouncePending DebounceDecision = "pending"
	// DebounceConfirmed - person signal sustained across the streak threshold
	DebounceConfirmed DebounceDecision = "confirmed"
)

// FrameData represents a captured video frame
type FrameData struct {
	SourceID  string    // Source identifier
	Data      []byte    // JPEG frame data
	Seq       uint64    // Frame sequence number
	Timestamp time.Time // Capture timestamp
	Width     int       // Frame width (if known)
	Height    int       // Frame height (if known)
}

// BBox represents a bounding box in normalized coordinates [0..1]
type BBox struct {
	X1 float32 `json:"x1"` // Left
	Y1 float32 `json:"y1"` // Top
	X2 float32 `json:"x2"` // Right
	Y2 float32 `json:"y2"` // Bottom
}

// Label is one ranked label returned by the detection service
type Label struct {
	Name       string  `json:"name"`
	Confidence float32 `json:"confidence"` // Percent [0-100]
	Boxes      []BBox  `json:"boxes,omitempty"`
}

// DetectionResult contains the ranked labels for one frame.
// Labels are ordered by descending confidence. Immutable once produced.
type DetectionResult struct {
	Labels      []Label
	InferenceMs float32
}

// Top returns the n highest-confidence labels.
func (r *DetectionResult) Top(n int) []Label {
	if n <= 0 || n >= len(r.Labels) {
		return r.Labels
	}
	return r.Labels[:n]
}

// PersonSignal reports whether any of the given labels is a person and the
// best confidence among person labels.
func PersonSignal(labels []Label) (bool, float32) {
	found := false
	var best float32
	for _, lab := range labels {
		if strings.EqualFold(lab.Name, "Person") {
			found = true
			if lab.Confidence > best {
				best = lab.Confidence
			}
		}
	}
	return found, best
}

// PersonBoxes collects the bounding boxes of all person labels.
func PersonBoxes(labels []Label) []BBox {
	var boxes []BBox
	for _, lab := range labels {
		if strings.EqualFold(lab.Name, "Person") {
			boxes = append(boxes, lab.Boxes...)
		}
	}
	return boxes
}

// LabelTexts formats labels for the overlay, e.g. "Person 98.7%".
func LabelTexts(labels []Label) []string {
	texts := make([]string, 0, len(labels))
	for _, lab := range labels {
		texts = append(texts, fmt.Sprintf("%s %.1f%%", lab.Name, lab.Confidence))
	}
	return texts
}

// FaceMatch is the best face match for one frame, or no match
type FaceMatch struct {
	Matched    bool    `json:"matched"`
	FaceID     string  `json:"face_id,omitempty"`
	Identity   string  `json:"identity,omitempty"`   // Person name, "Unknown" if unresolved
	Similarity float32 `json:"similarity,omitempty"` // Percent [0-100]
}

// EventLabel is the compact label form persisted with an event
type EventLabel struct {
	Name       string  `json:"Name" dynamodbav:"Name"`
	Confidence float32 `json:"Confidence" dynamodbav:"Confidence"`
}

// Event is a confirmed, cooldown-approved detection.
// Immutable once created; only the gate may create one.
type Event struct {
	ID             string       `json:"event_id" dynamodbav:"event_id"`
	Timestamp      int64        `json:"timestamp" dynamodbav:"timestamp"` // Unix milliseconds
	SourceID       string       `json:"camera_id" dynamodbav:"camera_id"`
	PersonDetected bool         `json:"person_detected" dynamodbav:"person_detected"`
	Authorized     bool         `json:"authorized" dynamodbav:"authorized"`
	Identity       string       `json:"person_name,omitempty" dynamodbav:"person_name,omitempty"`
	FaceID         string       `json:"face_id,omitempty" dynamodbav:"face_id,omitempty"`
	Similarity     float32      `json:"face_similarity,omitempty" dynamodbav:"face_similarity,omitempty"`
	Confidence     float32      `json:"confidence" dynamodbav:"confidence"`
	Labels         []EventLabel `json:"labels" dynamodbav:"labels"`
	MediaRef       string       `json:"s3_key" dynamodbav:"s3_key"`
	Type           EventType    `json:"event_type" dynamodbav:"event_type"`
	Severity       Severity     `json:"severity" dynamodbav:"severity"`
}

// EventID builds the canonical event identifier for a source at a moment.
func EventID(sourceID string, ts time.Time) string {
	return fmt.Sprintf("%s-%d", sourceID, ts.UnixMilli())
}
