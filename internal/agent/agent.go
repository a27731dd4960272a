package agent

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/frnnnnn/Vision360/internal/config"
	"github.com/frnnnnn/Vision360/internal/pipeline"
	"github.com/frnnnnn/Vision360/internal/source"
)

// DetectionRunner is the per-frame detection entry point.
type DetectionRunner interface {
	Process(ctx context.Context, frame pipeline.FrameData) bool
	Overlay() pipeline.OverlaySnapshot
	Reset()
}

// FramePublisher pushes annotated frames to the live view.
type FramePublisher interface {
	Publish(frame []byte, overlay pipeline.OverlaySnapshot)
}

// ConfigSource provides remote camera config and accepts liveness reports.
type ConfigSource interface {
	Get(ctx context.Context, sourceID string) config.CameraConfig
	Heartbeat(ctx context.Context, sourceID string, now time.Time) error
}

// FrameSource is the slice of the camera source the agent drives.
type FrameSource interface {
	Subscribe(bufferSize int) *source.Subscription
	Unsubscribe(sub *source.Subscription)
	SetEndpoint(url, username, password string) bool
}

// CameraLabeler receives display-name updates from remote config.
type CameraLabeler interface {
	SetCamera(name, location string)
}

// Agent wires one camera to the detection pipeline and the live view. It
// owns the frame loop: every captured frame is published with the current
// overlay and offered to the pipeline, and on a poll cadence the agent
// refreshes remote config, reports a heartbeat, and pauses or retargets the
// camera as the backend directs.
type Agent struct {
	id         string
	instanceID string

	src       FrameSource
	runner    DetectionRunner
	publisher FramePublisher // optional
	remote    ConfigSource   // optional
	labeler   CameraLabeler  // optional

	pollInterval time.Duration
	now          func() time.Time

	running  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once

	lastPoll      time.Time // loop goroutine only
	paused        atomic.Bool
	framesHandled atomic.Uint64
}

// Stats is a snapshot of agent activity.
type Stats struct {
	InstanceID    string
	FramesHandled uint64
	Paused        bool
}

// New creates an agent for one camera.
func New(id string, src FrameSource, runner DetectionRunner, publisher FramePublisher, remote ConfigSource, labeler CameraLabeler, pollInterval time.Duration) *Agent {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Agent{
		id:           id,
		instanceID:   uuid.NewString(),
		src:          src,
		runner:       runner,
		publisher:    publisher,
		remote:       remote,
		labeler:      labeler,
		pollInterval: pollInterval,
		now:          time.Now,
		stopCh:       make(chan struct{}),
	}
}

// InstanceID identifies this agent process run.
func (a *Agent) InstanceID() string {
	return a.instanceID
}

// Start launches the frame loop.
func (a *Agent) Start(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return fmt.Errorf("agent %s already started", a.id)
	}
	sub := a.src.Subscribe(5)
	go a.run(ctx, sub)
	log.Printf("[Agent] %s: started (instance %s)", a.id, a.instanceID)
	return nil
}

// Stop halts the frame loop.
func (a *Agent) Stop() {
	a.stopOnce.Do(func() {
		close(a.stopCh)
	})
}

// GetStats returns a snapshot of agent activity.
func (a *Agent) GetStats() Stats {
	return Stats{
		InstanceID:    a.instanceID,
		FramesHandled: a.framesHandled.Load(),
		Paused:        a.paused.Load(),
	}
}

func (a *Agent) run(ctx context.Context, sub *source.Subscription) {
	defer a.running.Store(false)
	defer a.src.Unsubscribe(sub)

	for {
		select {
		case <-a.stopCh:
			return
		case <-ctx.Done():
			return
		case <-sub.Done:
			log.Printf("[Agent] %s: frame source closed", a.id)
			return
		case frame := <-sub.Channel:
			now := a.now()
			a.maybePoll(ctx, now)
			if a.paused.Load() {
				continue
			}

			if a.publisher != nil {
				a.publisher.Publish(frame.Data, a.runner.Overlay())
			}
			a.runner.Process(ctx, *frame)
			a.framesHandled.Add(1)
		}
	}
}

// maybePoll refreshes remote config and reports a heartbeat at the poll
// cadence. Runs on the loop goroutine between frames, never concurrently.
func (a *Agent) maybePoll(ctx context.Context, now time.Time) {
	if a.remote == nil || now.Sub(a.lastPoll) < a.pollInterval {
		return
	}
	a.lastPoll = now

	cfg := a.remote.Get(ctx, a.id)
	if err := a.remote.Heartbeat(ctx, a.id, now); err != nil {
		log.Printf("[Agent] %s: %v", a.id, err)
	}

	if a.labeler != nil {
		a.labeler.SetCamera(cfg.Name, cfg.Location)
	}

	if !cfg.Active && !a.paused.Load() {
		log.Printf("[Agent] %s: deactivated by remote config, pausing", a.id)
		a.paused.Store(true)
		a.runner.Reset()
	} else if cfg.Active && a.paused.Load() {
		log.Printf("[Agent] %s: reactivated, resuming", a.id)
		a.paused.Store(false)
	}

	if cfg.URL != "" {
		if a.src.SetEndpoint(cfg.URL, cfg.Username, cfg.Password) {
			a.runner.Reset()
		}
	}
}
