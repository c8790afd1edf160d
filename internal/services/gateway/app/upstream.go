package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// Upstream incapsula chiamate HTTP con Circuit Breaker e cache dell'ultimo
// payload valido per path.
type Upstream struct {
	base    string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	name    string

	mu       sync.RWMutex
	lastGood map[string][]byte
}

// NewUpstream costruisce un client verso un servizio a monte
func NewUpstream(name, base string, timeout time.Duration, breaker *gobreaker.CircuitBreaker) *Upstream {
	return &Upstream{
		base:     strings.TrimRight(strings.TrimSpace(base), "/"),
		client:   &http.Client{Timeout: timeout},
		breaker:  breaker,
		name:     name,
		lastGood: make(map[string][]byte),
	}
}

// GetJSON fetches path and decodes it into out. When the call fails or the
// breaker is open, the last good payload for path is decoded instead and
// stale is true. err is set only when nothing could be decoded.
func (u *Upstream) GetJSON(ctx context.Context, path string, out any) (stale bool, err error) {
	if u == nil || u.base == "" {
		// upstream opzionale non configurato
		return false, nil
	}
	body, err := u.breaker.Execute(func() (any, error) {
		return u.fetch(ctx, path)
	})
	if err == nil {
		b := body.([]byte)
		if err = json.Unmarshal(b, out); err == nil {
			u.mu.Lock()
			u.lastGood[path] = b
			u.mu.Unlock()
			return false, nil
		}
		err = fmt.Errorf("%s decode error: %w", u.name, err)
	}

	u.mu.RLock()
	cached, ok := u.lastGood[path]
	u.mu.RUnlock()
	if ok && json.Unmarshal(cached, out) == nil {
		return true, nil
	}
	return false, err
}

func (u *Upstream) fetch(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.base+"/"+strings.TrimLeft(path, "/"), nil)
	if err != nil {
		return nil, err
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request error: %w", u.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// nessun dato: non conta come guasto dell'upstream
		return []byte("null"), nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s upstream status %d", u.name, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}

// State returns the breaker state name.
func (u *Upstream) State() string {
	if u == nil || u.breaker == nil {
		return "disabled"
	}
	return u.breaker.State().String()
}
