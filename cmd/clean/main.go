// Command clean runs the streaming cleaner for one or all catalog sources:
// chunked ingestion of the raw export, normalization, window filtering,
// crash-safe appends to the partial output, and the finalize collapse into
// the canonical cleaned CSV.
//
// A failed run prints where the log is and leaves a resumable partial
// behind; rerunning picks up after the last flushed chunk.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"gamecat/internal/clean"
	"gamecat/internal/logging"
	"gamecat/internal/metrics"
	"gamecat/internal/metrics/datadog"
)

func main() {
	var (
		source         string
		dataDir        string
		start, end     string
		chunkSize      int
		metricsBackend string
		logLevel       string
	)

	flag.StringVar(&source, "source", "all", "source to clean (rawg, metacritic, steam or all)")
	flag.StringVar(&dataDir, "data-dir", "data", "data directory root")
	flag.StringVar(&start, "start", "2024-11-11", "window start date (YYYY-MM-DD, inclusive)")
	flag.StringVar(&end, "end", "2025-11-11", "window end date (YYYY-MM-DD, inclusive)")
	flag.IntVar(&chunkSize, "chunk-size", clean.DefaultChunkSize, "rows per processing chunk")
	flag.StringVar(&metricsBackend, "metrics-backend", "", "metrics backend (datadog, none)")
	flag.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	verbose := flag.Bool("v", false, "also log progress to stderr")
	flag.Parse()

	window, err := clean.NewWindow(start, end)
	if err != nil {
		fatalf("invalid window: %v", err)
	}

	sources := clean.Sources(dataDir)
	if source != "all" {
		s, ok := clean.SourceByName(dataDir, source)
		if !ok {
			fatalf("unknown source %q (want rawg, metacritic, steam or all)", source)
		}
		sources = []clean.Source{s}
	}

	// Metrics backend: flag, then env, then disabled.
	backendName := metricsBackend
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "datadog":
		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			JobName: "clean",
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
	case "", "none":
		// metrics disabled; nop backend remains
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}

	ctx := context.Background()
	level := logging.ParseLevel(logLevel)
	failed := 0

	for _, src := range sources {
		started := time.Now()

		logger, closer, err := logging.Open(src.LogPath, level)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: cannot open log %s: %v\n", src.Name, src.LogPath, err)
			failed++
			continue
		}

		c := &clean.Cleaner{
			Source:    src,
			Window:    window,
			ChunkSize: chunkSize,
			Log:       logger,
		}
		stats, err := c.Run(ctx)
		if err == nil {
			err = clean.Finalize(src, logger)
			if err != nil {
				logger.Error("finalize failed", "source", src.Name, "error", err)
			}
		}
		closer.Close()

		if err != nil {
			// Details stay in the log; the console only gets a pointer.
			fmt.Fprintf(os.Stderr, "cleaning failed for %s: see %s\n", src.Name, src.LogPath)
			failed++
			continue
		}
		if *verbose {
			fmt.Fprintf(os.Stderr, "%s: wrote %d rows (%d chunks, %d resume-skipped, %d out of window) in %s\n",
				src.Name, stats.Written, stats.Chunks, stats.ResumeSkipped,
				stats.WindowDropped, time.Since(started).Truncate(time.Millisecond))
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
