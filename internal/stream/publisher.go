package stream

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/frnnnnn/Vision360/internal/media"
	"github.com/frnnnnn/Vision360/internal/pipeline"
)

// Publisher pushes annotated frames to the backend live-view socket as
// binary JPEG messages. Delivery is best effort: a dead socket drops frames
// and reconnection is only attempted on five-second boundaries so a downed
// backend does not get hammered at frame rate.
type Publisher struct {
	url     string
	width   int // resize bound before sending
	quality int
	dialer  *websocket.Dialer
	now     func() time.Time

	mu          sync.Mutex
	conn        *websocket.Conn
	lastDialSec int64

	framesSent    uint64
	framesDropped uint64
}

// PublisherConfig holds the live-view settings.
type PublisherConfig struct {
	Endpoint string // ws://host:port
	SourceID string
	Width    int
	Quality  int
}

// Stats counts live-view delivery.
type Stats struct {
	FramesSent    uint64
	FramesDropped uint64
	Connected     bool
}

// NewPublisher creates a publisher for one source's live view.
func NewPublisher(config PublisherConfig) *Publisher {
	if config.Width <= 0 {
		config.Width = 640
	}
	if config.Quality <= 0 {
		config.Quality = 60
	}
	return &Publisher{
		url:     fmt.Sprintf("%s/ws/camera/%s", config.Endpoint, config.SourceID),
		width:   config.Width,
		quality: config.Quality,
		dialer:  &websocket.Dialer{HandshakeTimeout: 3 * time.Second},
		now:     time.Now,
	}
}

// Publish annotates, shrinks and sends one frame. Never blocks the capture
// path on a broken socket.
func (p *Publisher) Publish(frame []byte, overlay pipeline.OverlaySnapshot) {
	annotated := Annotate(frame, overlay)
	scaled, err := media.ShrinkToWidth(annotated, p.width, p.quality)
	if err != nil {
		scaled = annotated
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		if !p.shouldDial(p.now()) {
			p.framesDropped++
			return
		}
		conn, _, err := p.dialer.Dial(p.url, nil)
		if err != nil {
			log.Printf("[Stream] dial %s failed: %v", p.url, err)
			p.framesDropped++
			return
		}
		log.Printf("[Stream] connected to %s", p.url)
		p.conn = conn
	}

	if err := p.conn.WriteMessage(websocket.BinaryMessage, scaled); err != nil {
		log.Printf("[Stream] send failed, dropping connection: %v", err)
		p.conn.Close()
		p.conn = nil
		p.framesDropped++
		return
	}
	p.framesSent++
}

// shouldDial gates reconnect attempts to one per five-second boundary.
func (p *Publisher) shouldDial(now time.Time) bool {
	sec := now.Unix()
	if sec%5 != 0 || sec == p.lastDialSec {
		return false
	}
	p.lastDialSec = sec
	return true
}

// GetStats returns delivery counters.
func (p *Publisher) GetStats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		FramesSent:    p.framesSent,
		FramesDropped: p.framesDropped,
		Connected:     p.conn != nil,
	}
}

// Close drops the socket.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}
