// Package dedup drops repeated deliveries seen within a TTL window. MQTT QoS1
// is at-least-once, so consumers use it to make handlers idempotent.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

type Deduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	max  int
	seen map[string]time.Time
	now  func() time.Time
}

func New(ttl time.Duration, max int) *Deduper {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if max <= 0 {
		max = 10000
	}
	return &Deduper{ttl: ttl, max: max, seen: make(map[string]time.Time, max), now: time.Now}
}

// ShouldProcess reports whether id has not been seen within the TTL and marks
// it as seen. Empty IDs are always processed.
func (d *Deduper) ShouldProcess(id string) bool {
	if id == "" {
		return true
	}
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	if exp, ok := d.seen[id]; ok && now.Before(exp) {
		return false
	}
	d.seen[id] = now.Add(d.ttl)
	if len(d.seen) > d.max {
		d.evict(now)
	}
	return true
}

// ShouldProcessPayload keys on topic plus a hash of the payload, for messages
// that carry no ID of their own.
func (d *Deduper) ShouldProcessPayload(topic string, payload []byte) bool {
	return d.ShouldProcess(Key(topic, payload))
}

// Key returns the dedup key of a topic and payload.
func Key(topic string, payload []byte) string {
	sum := sha256.Sum256(payload)
	return topic + "|" + hex.EncodeToString(sum[:])
}

// Len returns the number of tracked keys.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

func (d *Deduper) evict(now time.Time) {
	for k, v := range d.seen {
		if now.After(v) {
			delete(d.seen, k)
		}
	}
	// Still over the limit: drop the entries closest to expiry.
	for len(d.seen) > d.max {
		var oldest string
		var oldestExp time.Time
		for k, v := range d.seen {
			if oldest == "" || v.Before(oldestExp) {
				oldest, oldestExp = k, v
			}
		}
		delete(d.seen, oldest)
	}
}
