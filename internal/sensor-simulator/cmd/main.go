package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	sensorSimulator "github.com/LeonardoBeccarini/sdcc_greenhouse/internal/sensor-simulator"
	"github.com/LeonardoBeccarini/sdcc_greenhouse/pkg/rabbitmq"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("sensor: .env: %v", err)
	}

	// define flags
	greenhouseID := flag.String("greenhouse", "gh-1", "greenhouse identifier")
	clientID := flag.String("client-id", "greenhousePublisher1", "MQTT client ID")
	host := flag.String("host", envOr("RABBITMQ_HOST", "localhost"), "MQTT broker host")
	port := flag.Int("port", 1883, "MQTT broker port")
	interval := flag.Duration("interval", 5*time.Second, "publish interval")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random walk seed")
	feedback := flag.Bool("feedback", true, "apply controller decisions to the simulated climate")
	flag.Parse()

	cfg := &rabbitmq.RabbitMQConfig{
		Host:     *host,
		Port:     *port,
		User:     envOr("RABBITMQ_USER", "guest"),
		Password: envOr("RABBITMQ_PASSWORD", "guest"),
		ClientID: *clientID,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := rabbitmq.NewRabbitMQConn(cfg, ctx)
	if err != nil {
		log.Fatal(err)
	}

	publisher := rabbitmq.NewPublisher(client, "", 1)
	var consumer rabbitmq.IConsumer
	if *feedback {
		consumer = rabbitmq.NewConsumer(client, "greenhouse/decision/"+*greenhouseID, nil)
	}
	generator := sensorSimulator.NewDataGenerator(*seed, nil)
	sim := sensorSimulator.NewSensorSimulator(consumer, publisher, generator, *greenhouseID, "")

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
		<-sigc
		cancel()
	}()

	sim.Start(ctx, *interval)
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
