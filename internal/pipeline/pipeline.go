package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aws/smithy-go"

	"github.com/frnnnnn/Vision360/internal/media"
)

// Settings carries the tunables for one source's pipeline.
type Settings struct {
	InferInterval       time.Duration // Min spacing between detection cycles
	MinPersonFrames     int           // Consecutive person cycles before confirming
	EventCooldown       time.Duration // Min spacing between persisted events
	AlertCooldown       time.Duration // Min spacing between alerts (edge-trigger bypasses)
	RecordWithoutPerson bool          // Persist events even without a confirmed person
	TargetWidth         int           // Inference image width bound
	EncodeQuality       int           // Inference JPEG quality
	TopLabels           int           // Labels kept for overlay and event
	ThumbWidth          int           // Event thumbnail width bound
	ThumbQuality        int           // Event thumbnail JPEG quality
	MediaPrefix         string        // Media key prefix
}

// DefaultSettings returns the standard pipeline tuning.
func DefaultSettings() Settings {
	return Settings{
		InferInterval:       time.Second,
		MinPersonFrames:     2,
		EventCooldown:       12 * time.Second,
		AlertCooldown:       180 * time.Second,
		RecordWithoutPerson: false,
		TargetWidth:         640,
		EncodeQuality:       70,
		TopLabels:           4,
		ThumbWidth:          480,
		ThumbQuality:        60,
		MediaPrefix:         "events/raw",
	}
}

// Stats counts pipeline activity.
type Stats struct {
	CyclesRun      uint64
	CyclesFailed   uint64
	EventsRecorded uint64
	AlertsSent     uint64
}

// Pipeline owns the detection state for one source and runs detection cycles
// against the external services. The capture loop calls Process on every
// frame; the scheduler decides which frames actually launch a cycle, and the
// cycle runs on its own goroutine so the loop never blocks on the network.
type Pipeline struct {
	sourceID  string
	settings  Settings
	scheduler *InferenceScheduler
	debouncer *DetectionDebouncer
	gate      *EventGate

	detector DetectionService
	faces    FaceMatchService
	sink     EventSink
	alerts   AlertNotifier

	now func() time.Time

	cyclesRun      atomic.Uint64
	cyclesFailed   atomic.Uint64
	eventsRecorded atomic.Uint64
	alertsSent     atomic.Uint64
}

// NewPipeline wires a pipeline for one source.
func NewPipeline(sourceID string, settings Settings, detector DetectionService, faces FaceMatchService, sink EventSink, alerts AlertNotifier) *Pipeline {
	return &Pipeline{
		sourceID:  sourceID,
		settings:  settings,
		scheduler: NewInferenceScheduler(settings.InferInterval),
		debouncer: NewDetectionDebouncer(settings.MinPersonFrames),
		gate:      NewEventGate(settings.EventCooldown, settings.AlertCooldown, settings.RecordWithoutPerson),
		detector:  detector,
		faces:     faces,
		sink:      sink,
		alerts:    alerts,
		now:       time.Now,
	}
}

// Process offers one captured frame to the scheduler. Returns true when a
// detection cycle was launched for it.
func (p *Pipeline) Process(ctx context.Context, frame FrameData) bool {
	if !p.scheduler.TryLaunch(p.now()) {
		return false
	}
	go p.runCycle(ctx, frame)
	return true
}

// Overlay returns the current overlay state for drawing on published frames.
func (p *Pipeline) Overlay() OverlaySnapshot {
	return p.debouncer.Snapshot()
}

// Reset clears debounce and overlay state, e.g. after a source change.
func (p *Pipeline) Reset() {
	p.debouncer.Reset()
}

// GetStats returns a snapshot of pipeline counters.
func (p *Pipeline) GetStats() Stats {
	return Stats{
		CyclesRun:      p.cyclesRun.Load(),
		CyclesFailed:   p.cyclesFailed.Load(),
		EventsRecorded: p.eventsRecorded.Load(),
		AlertsSent:     p.alertsSent.Load(),
	}
}

// runCycle executes one detection cycle. Every exit path releases the
// in-flight slot; faults are recorded to the overlay and never propagate.
func (p *Pipeline) runCycle(ctx context.Context, frame FrameData) {
	defer p.scheduler.Release()
	p.cyclesRun.Add(1)

	image, err := media.ShrinkToWidth(frame.Data, p.settings.TargetWidth, p.settings.EncodeQuality)
	if err != nil {
		p.fail("prepare frame", err)
		return
	}

	result, err := p.detector.DetectLabels(ctx, image)
	if err != nil {
		p.fail("detect labels", err)
		return
	}

	labels := result.Top(p.settings.TopLabels)
	person, bestConf := PersonSignal(labels)
	boxes := PersonBoxes(labels)
	texts := LabelTexts(labels)

	match := &FaceMatch{}
	if person {
		m, err := p.faces.Search(ctx, image)
		if err != nil {
			// A failed face lookup downgrades to unauthorized, it does
			// not abort the cycle.
			log.Printf("[Pipeline] %s: face search failed: %v", p.sourceID, err)
		} else if m != nil {
			match = m
		}
	}
	authorized := match.Matched

	decision := p.debouncer.Update(person, boxes, texts)
	if person && decision != DebounceConfirmed {
		return
	}

	now := p.now()
	record, alert := p.gate.Decide(now, person, authorized)
	if !record {
		return
	}

	ev := p.buildEvent(now, labels, person, authorized, bestConf, match)
	log.Printf("[Pipeline] %s: recording event %s (%s, %s)", p.sourceID, ev.ID, ev.Type, ev.Severity)

	if thumb, err := media.ShrinkToWidth(image, p.settings.ThumbWidth, p.settings.ThumbQuality); err != nil {
		log.Printf("[Pipeline] %s: thumbnail failed: %v", p.sourceID, err)
	} else {
		key := mediaKey(p.settings.MediaPrefix, p.sourceID, now)
		if ref, err := p.sink.UploadMedia(ctx, thumb, key); err != nil {
			log.Printf("[Pipeline] %s: media upload failed: %v", p.sourceID, err)
		} else {
			ev.MediaRef = ref
		}
	}

	if err := p.sink.Persist(ctx, ev); err != nil {
		log.Printf("[Pipeline] %s: persist failed: %v", p.sourceID, err)
	}
	p.eventsRecorded.Add(1)

	if alert && p.alerts != nil {
		if err := p.alerts.Notify(ctx, ev); err != nil {
			log.Printf("[Pipeline] %s: alert publish failed: %v", p.sourceID, err)
		} else {
			p.alertsSent.Add(1)
		}
	}
}

func (p *Pipeline) buildEvent(now time.Time, labels []Label, person, authorized bool, bestConf float32, match *FaceMatch) *Event {
	compact := make([]EventLabel, 0, len(labels))
	for _, lab := range labels {
		compact = append(compact, EventLabel{Name: lab.Name, Confidence: round1(lab.Confidence)})
	}

	return &Event{
		ID:             EventID(p.sourceID, now),
		Timestamp:      now.UnixMilli(),
		SourceID:       p.sourceID,
		PersonDetected: person,
		Authorized:     authorized,
		Identity:       match.Identity,
		FaceID:         match.FaceID,
		Similarity:     round1(match.Similarity),
		Confidence:     round1(bestConf),
		Labels:         compact,
		Type:           Classify(person, authorized),
		Severity:       SeverityFor(person, authorized, bestConf),
	}
}

// fail records a cycle fault on the overlay so viewers see it.
func (p *Pipeline) fail(stage string, err error) {
	p.cyclesFailed.Add(1)
	p.debouncer.RecordFault(faultText(err))
	log.Printf("[Pipeline] %s: %s failed: %v", p.sourceID, stage, err)
}

// faultText condenses an error into a short overlay diagnostic.
func faultText(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return "AWSERR:" + apiErr.ErrorCode()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "ERR:Timeout"
	}
	return "ERR:" + errKind(err)
}

// errKind names an error's concrete type without its package path.
func errKind(err error) string {
	kind := strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
	if i := strings.LastIndexByte(kind, '.'); i >= 0 {
		kind = kind[i+1:]
	}
	return kind
}

// mediaKey builds the media object key, partitioned by UTC date.
func mediaKey(prefix, sourceID string, now time.Time) string {
	return fmt.Sprintf("%s/%s/%s.jpg", prefix, now.UTC().Format("2006-01-02"), EventID(sourceID, now))
}

func round1(v float32) float32 {
	return float32(math.Round(float64(v)*10) / 10)
}
