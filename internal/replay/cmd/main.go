package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/replay"
	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/rules"
)

func main() {
	file := flag.String("file", "", "CSV of snapshots (soil_moisture,light,humidity,temperature,co2); stdin if empty")
	retention := flag.Int("retention", 500, "history points kept")
	width := flag.Int("width", 60, "sparkline width")
	flag.Parse()

	in := os.Stdin
	if *file != "" {
		f, err := os.Open(*file)
		if err != nil {
			log.Fatalf("replay: %v", err)
		}
		defer f.Close()
		in = f
	}

	rows, err := replay.Load(in)
	if err != nil {
		log.Fatalf("%v", err)
	}
	steps, h := replay.Run(rows, rules.DefaultPolicy(), *retention)
	fmt.Print(replay.Render(steps, h, *width))
}
