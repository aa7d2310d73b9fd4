// Command scrape-rawg fetches games from the RAWG API for a date window and
// writes the raw export (CSV, or JSON when -out ends in .json) that the
// rawg cleaner consumes. Games the API returns outside the requested window
// are dropped before writing.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"gamecat/internal/clean"
	"gamecat/internal/metrics"
	"gamecat/internal/metrics/datadog"
	"gamecat/internal/scrape/rawg"
)

func main() {
	var (
		start, end     string
		apiKey         string
		out            string
		pageSize       int
		metricsBackend string
	)

	flag.StringVar(&start, "start", "2024-11-11", "start date (YYYY-MM-DD)")
	flag.StringVar(&end, "end", "2025-11-11", "end date (YYYY-MM-DD)")
	flag.StringVar(&apiKey, "api-key", os.Getenv("RAWG_API_KEY"), "RAWG API key (or RAWG_API_KEY env var)")
	flag.StringVar(&out, "out", "data/RAWG/rawg_data.csv", "output path (.csv or .json)")
	flag.IntVar(&pageSize, "page-size", 40, "API page size")
	flag.StringVar(&metricsBackend, "metrics-backend", "", "metrics backend (datadog, none)")
	flag.Parse()

	window, err := clean.NewWindow(start, end)
	if err != nil {
		log.Fatalf("invalid window: %v", err)
	}

	if metricsBackend == "datadog" {
		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			JobName: "scrape_rawg",
			Tags:    datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS")),
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; metrics disabled", err)
		} else {
			metrics.SetBackend(b)
			defer func() {
				if err := b.Close(); err != nil {
					log.Printf("metrics: datadog close/flush error: %v", err)
				}
			}()
		}
	}

	log.Printf("fetching RAWG games between %s and %s", start, end)

	client := &rawg.Client{APIKey: apiKey, PageSize: pageSize}
	var fetched []rawg.Game
	err = client.Fetch(context.Background(), start, end, func(g rawg.Game) error {
		d, ok := clean.ParseDate(g.ReleaseDate)
		if !window.Contains(d, ok) {
			return nil
		}
		fetched = append(fetched, g)
		return nil
	})
	if err != nil {
		log.Fatalf("fetch: %v", err)
	}

	if strings.HasSuffix(strings.ToLower(out), ".json") {
		err = rawg.WriteJSON(out, fetched)
	} else {
		err = rawg.WriteCSV(out, fetched)
	}
	if err != nil {
		log.Fatalf("write: %v", err)
	}

	fmt.Printf("saved %d RAWG records to %s\n", len(fetched), out)
}
