// Package rawg fetches the RAWG games catalog for a date window and writes
// the raw export the cleaner consumes. It is the upstream producer for the
// "rawg" source: it must write either the CSV or the JSON input file before
// a cleaning run.
package rawg

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"gamecat/internal/metrics"
)

// DefaultBaseURL is the public RAWG API root.
const DefaultBaseURL = "https://api.rawg.io/api"

// Game is one combined record: list-endpoint fields merged with the detail
// fields (description, ESRB) fetched per slug.
type Game struct {
	ID          int64    `json:"rawg_id"`
	Slug        string   `json:"rawg_slug"`
	Name        string   `json:"name"`
	ReleaseDate string   `json:"release_date"`
	Genres      []string `json:"genres"`
	Tags        []string `json:"tags"`
	Rating      float64  `json:"ratings"`
	Platforms   []string `json:"platforms"`
	ESRB        string   `json:"esrb"`
	Metacritic  int64    `json:"metacritic"`
	Description string   `json:"description"`
}

// Client pages through the RAWG list endpoint and fetches per-game details.
type Client struct {
	BaseURL    string
	APIKey     string
	PageSize   int
	HTTPClient *http.Client

	// Sleep is called between list pages to stay under rate limits.
	// Defaults to a 500ms real sleep; tests inject a no-op.
	Sleep func(d time.Duration)
}

type listResponse struct {
	Next    string       `json:"next"`
	Results []listResult `json:"results"`
}

type named struct {
	Name string `json:"name"`
}

type platformEntry struct {
	Platform named `json:"platform"`
}

type listResult struct {
	ID         int64           `json:"id"`
	Slug       string          `json:"slug"`
	Name       string          `json:"name"`
	Released   string          `json:"released"`
	Rating     float64         `json:"rating"`
	Metacritic int64           `json:"metacritic"`
	Genres     []named         `json:"genres"`
	Tags       []named         `json:"tags"`
	Platforms  []platformEntry `json:"platforms"`
}

type detailResponse struct {
	Released       string          `json:"released"`
	Rating         float64         `json:"rating"`
	Metacritic     int64           `json:"metacritic"`
	DescriptionRaw string          `json:"description_raw"`
	Description    string          `json:"description"`
	ESRB           *named          `json:"esrb_rating"`
	Genres         []named         `json:"genres"`
	Tags           []named         `json:"tags"`
	Platforms      []platformEntry `json:"platforms"`
}

// Fetch yields one combined Game per catalog entry released inside
// [start,end] (ISO dates, the API's own dates filter). fn returning an error
// stops the walk and surfaces that error.
//
// A failed detail fetch is not fatal: the list-level fields still make a
// useful record, so the game is yielded without description/ESRB.
func (c *Client) Fetch(ctx context.Context, start, end string, fn func(Game) error) error {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	pageSize := c.PageSize
	if pageSize <= 0 {
		pageSize = 40
	}
	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	sleep := c.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("dates", start+","+end)
		q.Set("page_size", strconv.Itoa(pageSize))
		q.Set("page", strconv.Itoa(page))
		if c.APIKey != "" {
			q.Set("key", c.APIKey)
		}

		var lr listResponse
		if err := c.getJSON(ctx, client, base+"/games?"+q.Encode(), &lr); err != nil {
			return fmt.Errorf("rawg list page %d: %w", page, err)
		}
		if len(lr.Results) == 0 {
			return nil
		}

		for _, r := range lr.Results {
			if r.Slug == "" {
				continue
			}
			g := c.combine(ctx, client, base, r)
			if err := fn(g); err != nil {
				return err
			}
		}

		if lr.Next == "" {
			return nil
		}
		sleep(500 * time.Millisecond)
	}
}

func (c *Client) combine(ctx context.Context, client *http.Client, base string, r listResult) Game {
	var detail detailResponse
	detailURL := base + "/games/" + url.PathEscape(r.Slug)
	if c.APIKey != "" {
		detailURL += "?key=" + url.QueryEscape(c.APIKey)
	}
	// Detail failures degrade the record instead of failing the walk.
	_ = c.getJSON(ctx, client, detailURL, &detail)

	g := Game{
		ID:          r.ID,
		Slug:        r.Slug,
		Name:        r.Name,
		ReleaseDate: firstNonEmpty(r.Released, detail.Released),
		Rating:      r.Rating,
		Metacritic:  r.Metacritic,
		Description: firstNonEmpty(detail.DescriptionRaw, detail.Description),
	}
	if g.Rating == 0 {
		g.Rating = detail.Rating
	}
	if g.Metacritic == 0 {
		g.Metacritic = detail.Metacritic
	}
	if detail.ESRB != nil {
		g.ESRB = detail.ESRB.Name
	}
	g.Genres = names(r.Genres, detail.Genres)
	g.Tags = names(r.Tags, detail.Tags)
	g.Platforms = platformNames(r.Platforms, detail.Platforms)
	return g
}

func (c *Client) getJSON(ctx context.Context, client *http.Client, rawURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	started := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		metrics.IncCounter("http_errors_total", 1, metrics.Labels{"status": "transport"})
		return err
	}
	defer resp.Body.Close()

	status := strconv.Itoa(resp.StatusCode)
	metrics.IncCounter("http_requests_total", 1, metrics.Labels{"status": status})
	metrics.ObserveHistogram("http_request_duration_seconds",
		time.Since(started).Seconds(), metrics.Labels{"status": status})

	if resp.StatusCode != http.StatusOK {
		metrics.IncCounter("http_errors_total", 1, metrics.Labels{"status": status})
		return fmt.Errorf("get %s: status %d", rawURL, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}

// names extracts non-empty Name fields, preferring the primary list and
// falling back to the secondary when the primary yields nothing.
func names(primary, secondary []named) []string {
	out := make([]string, 0, len(primary))
	for _, n := range primary {
		if n.Name != "" {
			out = append(out, n.Name)
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, n := range secondary {
		if n.Name != "" {
			out = append(out, n.Name)
		}
	}
	return out
}

func platformNames(primary, secondary []platformEntry) []string {
	out := make([]string, 0, len(primary))
	for _, p := range primary {
		if p.Platform.Name != "" {
			out = append(out, p.Platform.Name)
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, p := range secondary {
		if p.Platform.Name != "" {
			out = append(out, p.Platform.Name)
		}
	}
	return out
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
