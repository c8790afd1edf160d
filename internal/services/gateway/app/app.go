package app

import (
	"log"
	"net/http"
	"time"
)

type Config struct {
	ControllerBaseURL  string
	EventsBaseURL      string
	ControllerGRPCAddr string // empty disables the health probe
	HTTPTimeout        time.Duration

	BreakerFailures int
	BreakerOpenFor  time.Duration

	Logger *log.Logger
}

type Gateway struct {
	cfg        Config
	controller *Upstream
	events     *Upstream
	health     *HealthProbe
}

func NewGateway(cfg Config) (*Gateway, error) {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 3 * time.Second
	}
	// Un breaker per ciascun upstream
	c := NewUpstream("controller", cfg.ControllerBaseURL, cfg.HTTPTimeout,
		NewBreaker("controller", cfg.BreakerFailures, cfg.BreakerOpenFor, cfg.Logger))
	e := NewUpstream("events", cfg.EventsBaseURL, cfg.HTTPTimeout,
		NewBreaker("events", cfg.BreakerFailures, cfg.BreakerOpenFor, cfg.Logger))

	g := &Gateway{cfg: cfg, controller: c, events: e}
	if cfg.ControllerGRPCAddr != "" {
		hp, err := NewHealthProbe(cfg.ControllerGRPCAddr)
		if err != nil {
			return nil, err
		}
		g.health = hp
	}
	return g, nil
}

// Routes mounts the gateway endpoints.
func (g *Gateway) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/dashboard/data", g.HandleDashboard)
	return mux
}

// Close releases the gRPC connection.
func (g *Gateway) Close() {
	if g.health != nil {
		g.health.Close()
	}
}
