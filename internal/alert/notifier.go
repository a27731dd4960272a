package alert

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/frnnnnn/Vision360/internal/pipeline"
)

// Publisher is the transport that carries one alert message.
type Publisher interface {
	Publish(ctx context.Context, subject, body string) error
}

// MediaPresigner turns stored media keys into shareable download links.
type MediaPresigner interface {
	MediaURL(ctx context.Context, key string) (string, error)
}

// Notifier formats intrusion alerts and hands them to the publisher. Camera
// name and location come from remote config and may change while running.
type Notifier struct {
	publisher Publisher
	presigner MediaPresigner // optional

	mu         sync.RWMutex
	cameraName string
	location   string
}

// NewNotifier creates a notifier. The camera name and location seed the
// message header until remote config overrides them.
func NewNotifier(publisher Publisher, presigner MediaPresigner, cameraName, location string) *Notifier {
	if cameraName == "" {
		cameraName = "Vision360"
	}
	return &Notifier{
		publisher:  publisher,
		presigner:  presigner,
		cameraName: cameraName,
		location:   location,
	}
}

var _ pipeline.AlertNotifier = (*Notifier)(nil)

// SetCamera updates the display name and location used in messages.
func (n *Notifier) SetCamera(name, location string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if name != "" {
		n.cameraName = name
	}
	n.location = location
}

// Notify publishes one alert. A failed media link drops the image line, not
// the alert.
func (n *Notifier) Notify(ctx context.Context, ev *pipeline.Event) error {
	n.mu.RLock()
	name, location := n.cameraName, n.location
	n.mu.RUnlock()

	subject := fmt.Sprintf("🚨 Alerta Vision360: %s", name)
	if location != "" {
		subject = fmt.Sprintf("🚨 Alerta Vision360: %s (%s)", name, location)
	}

	if err := n.publisher.Publish(ctx, subject, n.message(ctx, ev, name, location)); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	log.Printf("[Alert] published %s (%s)", ev.ID, ev.Severity)
	return nil
}

func (n *Notifier) message(ctx context.Context, ev *pipeline.Event, name, location string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Se ha detectado una intrusión en %s.\n\n", name)

	if location != "" {
		fmt.Fprintf(&b, "📍 Ubicación: %s\n", location)
	}
	if ev.Identity != "" {
		fmt.Fprintf(&b, "👤 Persona: %s\n", ev.Identity)
	}
	fmt.Fprintf(&b, "🎯 Confianza: %.1f%%\n", ev.Confidence)
	fmt.Fprintf(&b, "⏰ Fecha y hora: %s\n", time.UnixMilli(ev.Timestamp).Format("2006-01-02 15:04:05"))

	if ev.MediaRef != "" && n.presigner != nil {
		if url, err := n.presigner.MediaURL(ctx, ev.MediaRef); err != nil {
			log.Printf("[Alert] media link for %s failed: %v", ev.ID, err)
		} else if url != "" {
			fmt.Fprintf(&b, "📸 Imagen: %s\n", url)
		}
	}

	fmt.Fprintf(&b, "💾 Evento: %s", ev.ID)
	return b.String()
}
