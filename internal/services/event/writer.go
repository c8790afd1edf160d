package event

import (
	"log"
	"sync"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"
)

// Writer incapsula WriteAPI e traccia l'ultimo errore di scrittura per /healthz e /readyz.
type Writer struct {
	api     api.WriteAPI
	mu      sync.RWMutex
	lastErr time.Time
	counts  map[string]int64
}

// NewWriter starts draining the asynchronous error channel of w.
func NewWriter(w api.WriteAPI) *Writer {
	ww := &Writer{
		api:     w,
		lastErr: time.Now().Add(-24 * time.Hour),
		counts:  make(map[string]int64),
	}
	if w != nil {
		go func() {
			for err := range w.Errors() {
				if err != nil {
					ww.markError()
					log.Printf("event-svc: influx write error: %v", err)
				}
			}
		}()
	}
	return ww
}

// Write normalises evt and queues it on the batching write API.
func (w *Writer) Write(evt CommonEvent) {
	if w == nil || w.api == nil {
		return
	}
	w.api.WritePoint(EventToPoint(evt))
	w.MarkIngest(evt.EventType)
}

func (w *Writer) markError() {
	w.mu.Lock()
	w.lastErr = time.Now()
	w.mu.Unlock()
}

// LastErrorAge ritorna da quanto tempo non si verificano errori di scrittura.
func (w *Writer) LastErrorAge() time.Duration {
	if w == nil {
		return 99999 * time.Hour
	}
	w.mu.RLock()
	t := w.lastErr
	w.mu.RUnlock()
	return time.Since(t)
}

// MarkIngest counts ingested events per type.
func (w *Writer) MarkIngest(eventType string) {
	if w == nil {
		return
	}
	w.mu.Lock()
	w.counts[eventType]++
	w.mu.Unlock()
}

func (w *Writer) Count(eventType string) int64 {
	if w == nil {
		return 0
	}
	w.mu.RLock()
	c := w.counts[eventType]
	w.mu.RUnlock()
	return c
}

// Flush forces pending points out.
func (w *Writer) Flush() {
	if w != nil && w.api != nil {
		w.api.Flush()
	}
}
