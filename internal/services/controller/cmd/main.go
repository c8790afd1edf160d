package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/services/controller"
	"github.com/LeonardoBeccarini/sdcc_greenhouse/pkg/bus"
	"github.com/LeonardoBeccarini/sdcc_greenhouse/pkg/rabbitmq"
)

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("controller: .env: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MQTT
	cfg := &rabbitmq.RabbitMQConfig{
		Host:         env("RABBITMQ_HOST", "localhost"),
		Port:         envInt("RABBITMQ_PORT", 1883),
		User:         env("RABBITMQ_USER", "guest"),
		Password:     env("RABBITMQ_PASSWORD", "guest"),
		ClientID:     fmt.Sprintf("GreenhouseController-%s", env("HOSTNAME", "local")),
		CleanSession: false,
	}
	mqClient, err := rabbitmq.NewRabbitMQConn(cfg, ctx)
	if err != nil {
		log.Fatalf("controller: MQTT connect failed: %v", err)
	}
	ready := func() bool { return mqClient.IsConnectionOpen() }

	// NATS (opzionale)
	var notifier bus.Notifier = bus.Nop{}
	if url := env("NATS_URL", ""); url != "" {
		p, err := bus.NewPublisher(ctx, url, "greenhouse-controller", 30*time.Second)
		if err != nil {
			log.Printf("controller: escalations disabled: %v", err)
		} else {
			notifier = p
			defer p.Close()
		}
	}

	sites, err := controller.LoadSites(env("SITES_CONFIG_PATH", ""))
	if err != nil {
		log.Fatalf("controller: %v", err)
	}

	snapshotSub := env("SNAPSHOT_SUB_TOPIC", "greenhouse/snapshot/#")
	consumer := rabbitmq.NewConsumer(mqClient, snapshotSub, nil)
	publisher := rabbitmq.NewPublisher(mqClient, "", 1)

	ctrl, err := controller.NewController(controller.Config{
		DecisionTopicTmpl: env("DECISION_TOPIC_TEMPLATE", "greenhouse/decision/{greenhouse}"),
		EscalationPrefix:  env("ESCALATION_SUBJECT_PREFIX", "greenhouse.escalation."),
		HistoryRetention:  envInt("HISTORY_RETENTION", 500),
	}, consumer, publisher, notifier, sites, controller.NewMetrics())
	if err != nil {
		log.Fatalf("controller init: %v", err)
	}

	// HTTP
	api := &controller.API{Ctrl: ctrl, Ready: ready}
	hs := &http.Server{
		Addr:              ":" + env("HTTP_PORT", "8080"),
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("controller: HTTP listening on %s", hs.Addr)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("controller: http server error: %v", err)
		}
	}()

	// gRPC health
	hsrv := controller.NewHealthServer(ready)
	go func() {
		if err := hsrv.Serve(ctx, ":"+env("GRPC_PORT", "50051"), 5*time.Second); err != nil {
			log.Printf("controller: grpc health: %v", err)
		}
	}()

	go ctrl.Start(ctx)
	log.Printf("controller: running sub=%s sites=%d", snapshotSub, len(sites.Greenhouses))

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	<-sigc
	log.Printf("controller: shutting down...")
	cancel()

	shCtx, shCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shCancel()
	_ = hs.Shutdown(shCtx)
}
