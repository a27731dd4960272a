package source

import (
	"fmt"
	"log"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/frnnnnn/Vision360/internal/pipeline"
)

// State names the acquisition phase of a source.
type State string

const (
	StateUninitialized State = "UNINITIALIZED"
	StateConnecting    State = "CONNECTING"
	StateStreaming     State = "STREAMING"
	StateReconnecting  State = "RECONNECTING"
)

// Config describes one video source.
type Config struct {
	ID             string
	URL            string // Network stream URL; empty means local device only
	Username       string // Optional stream credentials
	Password       string
	FallbackDevice string // Local device used when the URL is absent or unreachable
	FPS            int
	Width          int
	Height         int
	ProbeTimeout   time.Duration // Reachability probe timeout
	ConnectBackoff time.Duration // Wait between failed connect attempts
	ReadBackoff    time.Duration // Wait after losing an active stream
}

// Subscription receives captured frames until Done is closed. Slow
// subscribers lose frames rather than stalling capture.
type Subscription struct {
	SourceID string
	Channel  chan *pipeline.FrameData
	Done     chan struct{}
}

// Stats counts capture activity for a source.
type Stats struct {
	SourceID       string
	FramesCaptured uint64
	FramesDropped  uint64
	Reconnects     uint64
	LastFrameTime  int64
}

// Source acquires frames from one camera and broadcasts them to
// subscribers. It reconnects forever: a monitoring agent must never give up
// on its camera, so failures only ever change the state, not the lifetime.
type Source struct {
	cfgMu        sync.RWMutex
	cfg          Config
	useAlternate bool

	stateMu sync.RWMutex
	state   State

	running  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once

	cmdMu sync.Mutex
	cmd   *exec.Cmd

	subMu       sync.RWMutex
	subscribers map[*Subscription]bool

	frameSeq atomic.Uint64
	statsMu  sync.RWMutex
	stats    Stats
}

// NewSource creates a source with defaults filled in.
func NewSource(cfg Config) *Source {
	if cfg.FallbackDevice == "" {
		cfg.FallbackDevice = "/dev/video0"
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 15
	}
	if cfg.Width <= 0 {
		cfg.Width = 1280
	}
	if cfg.Height <= 0 {
		cfg.Height = 720
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 3 * time.Second
	}
	if cfg.ConnectBackoff <= 0 {
		cfg.ConnectBackoff = 5 * time.Second
	}
	if cfg.ReadBackoff <= 0 {
		cfg.ReadBackoff = 2 * time.Second
	}
	return &Source{
		cfg:         cfg,
		state:       StateUninitialized,
		stopCh:      make(chan struct{}),
		subscribers: make(map[*Subscription]bool),
		stats:       Stats{SourceID: cfg.ID},
	}
}

// Start launches the acquisition loop.
func (s *Source) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("source %s already started", s.cfg.ID)
	}
	go s.run()
	log.Printf("[Source] %s: started", s.cfg.ID)
	return nil
}

// Stop halts capture and closes all subscriptions.
func (s *Source) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.killCapture()

	s.subMu.Lock()
	for sub := range s.subscribers {
		close(sub.Done)
		delete(s.subscribers, sub)
	}
	s.subMu.Unlock()

	log.Printf("[Source] %s: stopped", s.cfg.ID)
}

// Subscribe returns a frame subscription. Callers must Unsubscribe when done.
func (s *Source) Subscribe(bufferSize int) *Subscription {
	if bufferSize <= 0 {
		bufferSize = 5
	}
	sub := &Subscription{
		SourceID: s.cfg.ID,
		Channel:  make(chan *pipeline.FrameData, bufferSize),
		Done:     make(chan struct{}),
	}

	s.subMu.Lock()
	s.subscribers[sub] = true
	total := len(s.subscribers)
	s.subMu.Unlock()

	log.Printf("[Source] %s: new subscriber (total: %d)", s.cfg.ID, total)
	return sub
}

// Unsubscribe removes a subscription.
func (s *Source) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	s.subMu.Lock()
	if _, ok := s.subscribers[sub]; ok {
		delete(s.subscribers, sub)
		close(sub.Done)
	}
	s.subMu.Unlock()
}

// State returns the current acquisition state.
func (s *Source) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// GetStats returns a copy of the capture counters.
func (s *Source) GetStats() Stats {
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()
	return s.stats
}

// SetEndpoint applies a remotely configured stream URL and credentials.
// A change kills the current capture so the loop reconnects with the new
// target. Returns true when anything changed.
func (s *Source) SetEndpoint(url, username, password string) bool {
	s.cfgMu.Lock()
	if s.cfg.URL == url && s.cfg.Username == username && s.cfg.Password == password {
		s.cfgMu.Unlock()
		return false
	}
	s.cfg.URL = url
	s.cfg.Username = username
	s.cfg.Password = password
	s.useAlternate = false
	s.cfgMu.Unlock()

	log.Printf("[Source] %s: endpoint changed, reconnecting", s.cfg.ID)
	s.killCapture()
	return true
}

// run is the acquisition loop: resolve a target, stream it until it fails,
// back off, repeat. There is no retry bound on purpose.
func (s *Source) run() {
	defer s.running.Store(false)

	for {
		if s.stopped() {
			return
		}

		target := s.nextTarget()
		s.setState(StateConnecting)
		log.Printf("[Source] %s: connecting to %s", s.cfg.ID, target)

		frames, err := s.capture(target)
		if s.stopped() {
			return
		}

		s.setState(StateReconnecting)
		s.bumpReconnects()

		if frames > 0 {
			log.Printf("[Source] %s: stream lost after %d frames: %v", s.cfg.ID, frames, err)
			s.sleep(s.readBackoff())
			continue
		}

		log.Printf("[Source] %s: connect failed: %v", s.cfg.ID, err)
		s.considerAlternate(target)
		s.sleep(s.connectBackoff())
	}
}

// nextTarget resolves where to capture from right now: the configured URL
// with credentials when it answers a probe, otherwise the local device.
func (s *Source) nextTarget() string {
	s.cfgMu.RLock()
	cfg := s.cfg
	alt := s.useAlternate
	s.cfgMu.RUnlock()

	if cfg.URL != "" && IsNetworkURL(cfg.URL) {
		target := InjectCredentials(cfg.URL, cfg.Username, cfg.Password)
		if alt {
			if a, ok := AlternatePath(target); ok {
				target = a
			}
		}
		if Reachable(target, cfg.ProbeTimeout) {
			return target
		}
		log.Printf("[Source] %s: %s unreachable, falling back to %s", cfg.ID, cfg.URL, cfg.FallbackDevice)
	}
	return cfg.FallbackDevice
}

// considerAlternate switches an HTTP target to its /video form after a
// failed connect. The switch sticks until the endpoint changes.
func (s *Source) considerAlternate(target string) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	if s.useAlternate {
		return
	}
	if alt, ok := AlternatePath(target); ok {
		log.Printf("[Source] %s: will retry with %s", s.cfg.ID, alt)
		s.useAlternate = true
	}
}

// capture runs one ffmpeg process until the stream ends. Returns the frame
// count delivered, and a nil error only when stopping.
func (s *Source) capture(target string) (uint64, error) {
	s.cfgMu.RLock()
	fps, width, height := s.cfg.FPS, s.cfg.Width, s.cfg.Height
	s.cfgMu.RUnlock()

	if !IsNetworkURL(target) && !deviceExists(target) {
		return 0, fmt.Errorf("device %s not found", target)
	}

	cmd, stdout, err := startFFmpeg(buildFFmpegArgs(target, fps, width, height))
	if err != nil {
		return 0, err
	}
	s.setCapture(cmd)
	defer func() {
		s.setCapture(nil)
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
		cmd.Wait()
	}()

	frameBuffer := make([]byte, 0, 1024*1024)
	chunk := make([]byte, 8192)
	var frames uint64

	for {
		select {
		case <-s.stopCh:
			return frames, nil
		default:
			n, err := stdout.Read(chunk)
			if err != nil {
				return frames, fmt.Errorf("read stream: %w", err)
			}
			frameBuffer = append(frameBuffer, chunk[:n]...)

			for {
				frame := extractJPEGFrame(&frameBuffer)
				if frame == nil {
					break
				}
				if frames == 0 {
					s.setState(StateStreaming)
					log.Printf("[Source] %s: streaming from %s", s.cfg.ID, target)
				}
				frames++
				s.broadcastFrame(frame, width, height)
			}
		}
	}
}

// broadcastFrame fans one frame out to all subscribers, dropping for the
// slow ones.
func (s *Source) broadcastFrame(data []byte, width, height int) {
	seq := s.frameSeq.Add(1)
	now := time.Now()

	frame := &pipeline.FrameData{
		SourceID:  s.cfg.ID,
		Data:      data,
		Seq:       seq,
		Timestamp: now,
		Width:     width,
		Height:    height,
	}

	s.statsMu.Lock()
	s.stats.FramesCaptured++
	s.stats.LastFrameTime = now.Unix()
	s.statsMu.Unlock()

	s.subMu.RLock()
	for sub := range s.subscribers {
		select {
		case sub.Channel <- frame:
		default:
			s.statsMu.Lock()
			s.stats.FramesDropped++
			s.statsMu.Unlock()
		}
	}
	s.subMu.RUnlock()
}

func (s *Source) setState(state State) {
	s.stateMu.Lock()
	s.state = state
	s.stateMu.Unlock()
}

func (s *Source) setCapture(cmd *exec.Cmd) {
	s.cmdMu.Lock()
	s.cmd = cmd
	s.cmdMu.Unlock()
}

func (s *Source) killCapture() {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
}

func (s *Source) bumpReconnects() {
	s.statsMu.Lock()
	s.stats.Reconnects++
	s.statsMu.Unlock()
}

func (s *Source) readBackoff() time.Duration {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg.ReadBackoff
}

func (s *Source) connectBackoff() time.Duration {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg.ConnectBackoff
}

func (s *Source) stopped() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

func (s *Source) sleep(d time.Duration) {
	select {
	case <-s.stopCh:
	case <-time.After(d):
	}
}
