// Command extract-metacritic turns a directory of saved Metacritic browse
// pages into the raw CSV export the metacritic cleaner consumes.
package main

import (
	"flag"
	"fmt"
	"log"

	"gamecat/internal/scrape/metacritic"
)

func main() {
	in := flag.String("in", "data/metacritic/pages", "directory of saved .html pages")
	out := flag.String("out", "data/metacritic/metacritic_dataset_raw.csv", "output CSV path")
	flag.Parse()

	records, err := metacritic.ExtractDir(*in, metacritic.DefaultMappings, func(path string, err error) {
		log.Printf("skipping %s: %v", path, err)
	})
	if err != nil {
		log.Fatalf("extract: %v", err)
	}
	if err := metacritic.WriteCSV(*out, records); err != nil {
		log.Fatalf("write: %v", err)
	}

	fmt.Printf("extracted %d records to %s\n", len(records), *out)
}
