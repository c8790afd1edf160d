package main

import (
	"os"
	"strconv"
	"time"

	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/services/gateway/app"
)

type Config struct {
	Port string
	app.Config
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func loadConfig() Config {
	return Config{
		Port: getenv("PORT", "5009"),
		Config: app.Config{
			ControllerBaseURL:  getenv("CONTROLLER_URL", "http://controller:8080"),
			EventsBaseURL:      getenv("EVENT_URL", "http://event-service:8080"),
			ControllerGRPCAddr: getenv("CONTROLLER_GRPC_ADDR", "controller:50051"),
			HTTPTimeout:        time.Duration(getenvInt("TIMEOUT_MS", 3000)) * time.Millisecond,
			BreakerFailures:    getenvInt("CB_FAILURES", 3),
			BreakerOpenFor:     time.Duration(getenvInt("CB_OPEN_MS", 10000)) * time.Millisecond,
		},
	}
}
