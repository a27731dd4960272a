package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/frnnnnn/Vision360/internal/pipeline"
)

const replayBatch = 50

// FallbackSink wraps the primary event store with two rescue paths: a local
// backend receiver, then the on-disk spool. An event is only reported lost
// when all three refuse it.
type FallbackSink struct {
	primary  pipeline.EventSink
	backend  string // optional HTTP event receiver base URL
	client   *http.Client
	spool    *Spool // optional
	interval time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
}

// FallbackConfig holds the rescue path settings.
type FallbackConfig struct {
	BackendURL     string        // e.g. http://localhost:8000
	ReplayInterval time.Duration // spool drain cadence
}

// NewFallbackSink wraps a primary sink. Both the backend URL and the spool
// are optional; with neither this is a pass-through.
func NewFallbackSink(primary pipeline.EventSink, spool *Spool, config FallbackConfig) *FallbackSink {
	if config.ReplayInterval <= 0 {
		config.ReplayInterval = 30 * time.Second
	}
	return &FallbackSink{
		primary:  primary,
		backend:  strings.TrimRight(config.BackendURL, "/"),
		client:   &http.Client{Timeout: 5 * time.Second},
		spool:    spool,
		interval: config.ReplayInterval,
		stopCh:   make(chan struct{}),
	}
}

var _ pipeline.EventSink = (*FallbackSink)(nil)

// Persist tries the primary store, then the backend receiver, then the
// spool. Returns nil as soon as one of them holds the event.
func (f *FallbackSink) Persist(ctx context.Context, ev *pipeline.Event) error {
	err := f.primary.Persist(ctx, ev)
	if err == nil {
		return nil
	}
	log.Printf("[Events] primary store rejected %s: %v", ev.ID, err)

	if f.backend != "" {
		if berr := f.postBackend(ctx, ev); berr == nil {
			log.Printf("[Events] %s delivered to backend receiver", ev.ID)
			return nil
		} else {
			log.Printf("[Events] backend receiver rejected %s: %v", ev.ID, berr)
		}
	}

	if f.spool != nil {
		if serr := f.spool.Insert(ev); serr == nil {
			log.Printf("[Events] %s spooled for replay", ev.ID)
			return nil
		} else {
			log.Printf("[Events] spool rejected %s: %v", ev.ID, serr)
		}
	}

	return err
}

// UploadMedia goes straight to the primary store. A missing thumbnail is
// acceptable; a lost event is not.
func (f *FallbackSink) UploadMedia(ctx context.Context, data []byte, key string) (string, error) {
	return f.primary.UploadMedia(ctx, data, key)
}

func (f *FallbackSink) postBackend(ctx context.Context, ev *pipeline.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.backend+"/events", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}
	return nil
}

// StartReplay launches the background spool drain. No-op without a spool.
func (f *FallbackSink) StartReplay() {
	if f.spool == nil {
		return
	}
	go f.replayLoop()
}

// Stop halts the replay loop.
func (f *FallbackSink) Stop() {
	f.stopOnce.Do(func() {
		close(f.stopCh)
	})
}

func (f *FallbackSink) replayLoop() {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-f.stopCh:
			return
		case <-ticker.C:
			f.replayPending(context.Background())
		}
	}
}

// replayPending pushes held events back at the primary store, oldest first,
// stopping at the first failure so order is preserved.
func (f *FallbackSink) replayPending(ctx context.Context) {
	held, err := f.spool.Pending(replayBatch)
	if err != nil {
		log.Printf("[Events] spool read failed: %v", err)
		return
	}

	for _, row := range held {
		var ev pipeline.Event
		if err := json.Unmarshal(row.Payload, &ev); err != nil {
			log.Printf("[Events] dropping undecodable spool row %s: %v", row.ID, err)
			f.spool.Remove(row.ID)
			continue
		}
		if err := f.primary.Persist(ctx, &ev); err != nil {
			return
		}
		if err := f.spool.Remove(row.ID); err != nil {
			log.Printf("[Events] failed to clear replayed row %s: %v", row.ID, err)
			return
		}
		log.Printf("[Events] replayed %s from spool", ev.ID)
	}
}
