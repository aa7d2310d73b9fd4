// Command lookup reports a game's ratings and sales figures across the
// cleaned datasets. The name comes from the arguments, or from a prompt when
// run without any.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"gamecat/internal/lookup"
)

// fieldsBySource lists which columns each source's report shows, in order.
var fieldsBySource = map[string][][2]string{
	"rawg": {
		{"Name", "name"},
		{"RAWG rating", "ratings"},
		{"Metacritic", "metacritic"},
		{"Platforms", "platforms"},
	},
	"metacritic": {
		{"Name", "name"},
		{"Metascore", "metascore"},
		{"User score", "user_score"},
		{"Platform", "platform"},
	},
	"steam": {
		{"Name", "game_name"},
		{"Estimated downloads", "estimated_downloads"},
		{"Reviews like rate", "reviews_like_rate"},
		{"Price", "price"},
	},
}

func main() {
	dataDir := flag.String("data-dir", "data", "data directory root")
	flag.Parse()

	name := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if name == "" {
		fmt.Print("Enter full or partial game name: ")
		sc := bufio.NewScanner(os.Stdin)
		if sc.Scan() {
			name = strings.TrimSpace(sc.Text())
		}
	}
	if name == "" {
		fmt.Println("No name provided, exiting.")
		return
	}

	for _, res := range lookup.Search(*dataDir, name) {
		fmt.Printf("\n== %s ==\n", res.Source)
		if res.Err != nil {
			fmt.Printf("Could not read this source's dataset: %v\n", res.Err)
			continue
		}
		if res.Row == nil {
			fmt.Println("No match found in this source.")
			continue
		}
		if res.Fuzzy {
			fmt.Println("(closest match)")
		}
		for _, f := range fieldsBySource[res.Source] {
			fmt.Printf("%s: %s\n", f[0], res.Row[f[1]])
		}
	}
}
