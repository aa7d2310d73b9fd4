// Package metacritic turns saved Metacritic browse pages into the raw CSV
// export the cleaner consumes. Pages are parsed with CSS-selector mappings:
// one selector picks the record containers, field selectors pick values
// relative to each container.
package metacritic

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Mapping extracts one field from a record container: the text of the first
// element matched by Selector, or the named attribute when Attr is set.
type Mapping struct {
	Field    string
	Selector string
	Attr     string
}

// RecordSelector matches one game card per record on a saved browse page.
const RecordSelector = "div.c-finderProductCard"

// DefaultMappings extract the metacritic source's raw columns from a game
// card.
var DefaultMappings = []Mapping{
	{Field: "name", Selector: "h3.c-finderProductCard_titleHeading span:last-child"},
	{Field: "platform", Selector: "span.c-finderProductCard_platform"},
	{Field: "release_date", Selector: "span.c-finderProductCard_meta span.u-text-uppercase"},
	{Field: "metascore", Selector: "div.c-siteReviewScore span"},
	{Field: "user_score", Selector: "div.c-siteReviewScore_user span"},
	{Field: "developer", Selector: "span.c-finderProductCard_developer"},
	{Field: "publisher", Selector: "span.c-finderProductCard_publisher"},
	{Field: "genre", Selector: "span.c-finderProductCard_genre"},
}

// ExtractRecords parses html and returns one field map per record container,
// in DOM order. Missing selectors produce missing fields, not errors; a
// record with no extracted fields at all is dropped.
func ExtractRecords(html, recordSelector string, mappings []Mapping) ([]map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var records []map[string]string
	doc.Find(recordSelector).Each(func(_ int, rec *goquery.Selection) {
		obj := make(map[string]string, len(mappings))
		for _, m := range mappings {
			sel := rec.Find(m.Selector).First()
			if sel.Length() == 0 {
				continue
			}
			var v string
			if m.Attr != "" {
				v, _ = sel.Attr(m.Attr)
			} else {
				v = sel.Text()
			}
			if v = strings.TrimSpace(v); v != "" {
				obj[m.Field] = v
			}
		}
		if len(obj) > 0 {
			records = append(records, obj)
		}
	})
	return records, nil
}

// ExtractDir walks dir for saved .html pages (sorted by name, so page order
// is stable) and extracts records from each. Pages that fail to parse are
// reported through onErr and skipped.
func ExtractDir(dir string, mappings []Mapping, onErr func(path string, err error)) ([]map[string]string, error) {
	var pages []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".html") {
			pages = append(pages, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(pages)

	var all []map[string]string
	for _, p := range pages {
		b, err := os.ReadFile(p)
		if err != nil {
			if onErr != nil {
				onErr(p, err)
			}
			continue
		}
		recs, err := ExtractRecords(string(b), RecordSelector, mappings)
		if err != nil {
			if onErr != nil {
				onErr(p, err)
			}
			continue
		}
		all = append(all, recs...)
	}
	return all, nil
}
