// Package clean implements the resumable streaming cleaning pipeline for the
// per-source game-catalog exports: field normalization, date-window filtering,
// resume-by-key deduplication over an append-only partial file, and the final
// collapse into the canonical CSV.
package clean

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ListSep is the separator used for list-valued cells in cleaned output.
const ListSep = "|"

// ParseListField normalizes a cell that may carry a native list, a
// stringified list literal, or a delimited string into a slice of trimmed
// elements.
//
// Contract (pure, total):
//   - nil -> empty
//   - a native list ([]any or []string) -> trimmed elements, nil entries dropped
//   - a "[...]" string -> parsed as a list literal, silently falling back to
//     delimiter splitting when the literal does not parse
//   - otherwise split on the first of "|", ",", ";" present, dropping
//     empty elements; a plain non-empty string is a single element
func ParseListField(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, strings.TrimSpace(e))
		}
		return out
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if e == nil {
				continue
			}
			out = append(out, strings.TrimSpace(cellString(e)))
		}
		return out
	case string:
		return parseListString(t)
	default:
		return []string{cellString(v)}
	}
}

func parseListString(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		if arr, ok := parseListLiteral(s); ok {
			return arr
		}
	}

	for _, sep := range []string{ListSep, ",", ";"} {
		if strings.Contains(s, sep) {
			parts := strings.Split(s, sep)
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
			return out
		}
	}

	return []string{s}
}

// parseListLiteral parses a stringified list. JSON syntax is tried first;
// single-quoted literals (the common repr style in scraped exports) are
// retried with quotes swapped when the raw form contains no double quotes.
func parseListLiteral(s string) ([]string, bool) {
	try := func(in string) ([]string, bool) {
		var arr []any
		if err := json.Unmarshal([]byte(in), &arr); err != nil {
			return nil, false
		}
		out := make([]string, 0, len(arr))
		for _, e := range arr {
			if e == nil {
				continue
			}
			out = append(out, strings.TrimSpace(cellString(e)))
		}
		return out, true
	}

	if out, ok := try(s); ok {
		return out, true
	}
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		if out, ok := try(strings.ReplaceAll(s, "'", `"`)); ok {
			return out, true
		}
	}
	return nil, false
}

// JoinListField serializes list elements with ListSep, skipping empty and
// whitespace-only elements.
func JoinListField(elems []string) string {
	var b strings.Builder
	n := 0
	for _, e := range elems {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if n > 0 {
			b.WriteString(ListSep)
		}
		b.WriteString(e)
		n++
	}
	return b.String()
}

// ParseDate parses a cell as a calendar date, best effort. It accepts ISO
// forms as well as natural-language forms like "Nov 12, 2024". The second
// return is false when no date could be recovered; ParseDate never returns an
// error and never panics.
func ParseDate(v any) (t time.Time, ok bool) {
	// dateparse is known to panic on a few malformed inputs; the contract
	// here is strictly "no date" on anything unparseable.
	defer func() {
		if recover() != nil {
			t, ok = time.Time{}, false
		}
	}()

	s := strings.TrimSpace(cellString(v))
	if s == "" {
		return time.Time{}, false
	}
	d, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// FormatDate renders a cell as ISO-8601 YYYY-MM-DD, or "" when unparseable.
func FormatDate(v any) string {
	d, ok := ParseDate(v)
	if !ok {
		return ""
	}
	return d.Format("2006-01-02")
}

// cellString renders a parser cell value as a plain string. json.Number keeps
// its literal form; nil is the empty string.
func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		// Only reached for non-UseNumber decoders.
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
