package pipeline

import (
	"context"
)

// DetectionService is the external label-detection capability.
// Implementations are opaque, rate/latency-bounded and fallible; callers own
// throttling and failure handling.
type DetectionService interface {
	// DetectLabels submits one JPEG image and returns the ranked labels.
	DetectLabels(ctx context.Context, image []byte) (*DetectionResult, error)
}

// FaceMatchService is the external face-matching capability.
type FaceMatchService interface {
	// Search submits one JPEG image and returns the best face match.
	// An image without a detectable face is a no-match, not an error.
	Search(ctx context.Context, image []byte) (*FaceMatch, error)
}

// EventSink persists confirmed events and uploads their media.
type EventSink interface {
	// Persist stores one event. Implementations must not panic past the
	// caller; the caller logs failures and continues.
	Persist(ctx context.Context, ev *Event) error

	// UploadMedia stores an encoded image under the given key and returns
	// the reference to record on the event.
	UploadMedia(ctx context.Context, data []byte, key string) (string, error)
}

// AlertNotifier publishes alert notifications for confirmed events.
// Best-effort: no retries beyond transport defaults.
type AlertNotifier interface {
	Notify(ctx context.Context, ev *Event) error
}
