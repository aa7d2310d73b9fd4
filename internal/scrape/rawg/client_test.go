package rawg

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"
)

// fakeAPI serves a two-page list endpoint plus per-slug detail responses.
func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()

	var srv *httptest.Server
	mux := http.NewServeMux()

	mux.HandleFunc("/games", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("dates"); got != "2024-11-11,2025-11-11" {
			t.Errorf("dates filter = %q", got)
		}
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("api key = %q", got)
		}

		page := r.URL.Query().Get("page")
		switch page {
		case "1":
			fmt.Fprintf(w, `{
				"next": %q,
				"results": [
					{"id": 1, "slug": "hades", "name": "Hades", "released": "2024-11-12",
					 "rating": 4.5, "metacritic": 93,
					 "genres": [{"name": "Action"}, {"name": "Roguelike"}],
					 "tags": [{"name": "Indie"}],
					 "platforms": [{"platform": {"name": "PC"}}]},
					{"id": 2, "slug": "", "name": "no-slug"}
				]
			}`, srv.URL+"/games?page=2")
		case "2":
			fmt.Fprint(w, `{
				"next": "",
				"results": [
					{"id": 3, "slug": "celeste", "name": "Celeste", "released": "2025-01-15"}
				]
			}`)
		default:
			fmt.Fprint(w, `{"next": "", "results": []}`)
		}
	})

	mux.HandleFunc("/games/hades", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"description_raw": "god of the dead",
			"esrb_rating": {"name": "Teen"}
		}`)
	})
	mux.HandleFunc("/games/celeste", func(w http.ResponseWriter, r *http.Request) {
		// Detail failure must degrade the record, not fail the walk.
		http.Error(w, "upstream busted", http.StatusInternalServerError)
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch(t *testing.T) {
	srv := fakeAPI(t)
	c := &Client{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Sleep:   func(time.Duration) {},
	}

	var games []Game
	err := c.Fetch(context.Background(), "2024-11-11", "2025-11-11", func(g Game) error {
		games = append(games, g)
		return nil
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	// The slugless entry is skipped; both pages are walked.
	if len(games) != 2 {
		t.Fatalf("games = %d, want 2", len(games))
	}

	hades := games[0]
	if hades.ID != 1 || hades.Name != "Hades" || hades.ReleaseDate != "2024-11-12" {
		t.Fatalf("hades = %+v", hades)
	}
	if hades.ESRB != "Teen" || hades.Description != "god of the dead" {
		t.Fatalf("detail fields not merged: %+v", hades)
	}
	if !reflect.DeepEqual(hades.Genres, []string{"Action", "Roguelike"}) {
		t.Fatalf("genres = %v", hades.Genres)
	}
	if !reflect.DeepEqual(hades.Platforms, []string{"PC"}) {
		t.Fatalf("platforms = %v", hades.Platforms)
	}

	celeste := games[1]
	if celeste.Name != "Celeste" || celeste.ReleaseDate != "2025-01-15" {
		t.Fatalf("celeste = %+v", celeste)
	}
	if celeste.ESRB != "" || celeste.Description != "" {
		t.Fatalf("failed detail fetch must leave detail fields empty: %+v", celeste)
	}
}

func TestFetch_CallbackErrorStopsWalk(t *testing.T) {
	srv := fakeAPI(t)
	c := &Client{BaseURL: srv.URL, APIKey: "test-key", Sleep: func(time.Duration) {}}

	boom := fmt.Errorf("stop here")
	calls := 0
	err := c.Fetch(context.Background(), "2024-11-11", "2025-11-11", func(Game) error {
		calls++
		return boom
	})
	if err != boom {
		t.Fatalf("err = %v, want the callback error", err)
	}
	if calls != 1 {
		t.Fatalf("callback ran %d times after erroring", calls)
	}
}

func TestFetch_ListErrorIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, Sleep: func(time.Duration) {}}
	err := c.Fetch(context.Background(), "2024-11-11", "2025-11-11", func(Game) error { return nil })
	if err == nil {
		t.Fatal("list endpoint failure must surface")
	}
}

func TestNames_SecondaryFallback(t *testing.T) {
	primary := []named{{Name: ""}}
	secondary := []named{{Name: "Action"}, {Name: ""}}

	got := names(primary, secondary)
	if !reflect.DeepEqual(got, []string{"Action"}) {
		t.Fatalf("names = %v", got)
	}

	got = names([]named{{Name: "RPG"}}, secondary)
	if !reflect.DeepEqual(got, []string{"RPG"}) {
		t.Fatalf("names with primary = %v", got)
	}
}

func TestGameJSONShape(t *testing.T) {
	// The JSON field names are the raw input schema the cleaner expects.
	b, err := json.Marshal(Game{ID: 1, Slug: "hades", Name: "Hades"})
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	for _, key := range Columns {
		if _, ok := m[key]; !ok {
			t.Fatalf("marshaled Game missing %q (got %v)", key, m)
		}
	}
}
