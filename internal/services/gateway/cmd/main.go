package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/services/gateway/app"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("gateway: .env: %v", err)
	}
	cfg := loadConfig()

	g, err := app.NewGateway(cfg.Config)
	if err != nil {
		log.Fatalf("gateway init: %v", err)
	}
	defer g.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           g.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Printf("gateway listening on %s", srv.Addr)
	log.Fatal(srv.ListenAndServe())
}
