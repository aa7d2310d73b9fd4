package clean

import "strings"

// KeySep separates key components. It never appears in trimmed field values
// used for identity (names, platforms, ISO dates).
const KeySep = "||"

// keyBuilder computes RecordKeys for rows aligned to a fixed column order.
//
// Key components are trimmed, and the date column is canonicalized to
// ISO-8601 before joining. Canonicalizing at key-build time is what makes a
// key computed from raw input equal to the key rebuilt from a partial file,
// where the date has already been normalized; resume dedup depends on that.
type keyBuilder struct {
	fields []string
	ix     []int
	dateIx int
}

func newKeyBuilder(columns, keyFields []string, dateColumn string) keyBuilder {
	pos := make(map[string]int, len(columns))
	for i, c := range columns {
		pos[c] = i
	}

	kb := keyBuilder{fields: keyFields, dateIx: -1}
	kb.ix = make([]int, len(keyFields))
	for i, f := range keyFields {
		if p, ok := pos[f]; ok {
			kb.ix[i] = p
		} else {
			kb.ix[i] = -1
		}
		if f == dateColumn {
			kb.dateIx = i
		}
	}
	return kb
}

// Key builds the composite key for a row of cells aligned to the builder's
// column order. Missing fields contribute an empty component.
func (kb keyBuilder) Key(cells []any) string {
	var b strings.Builder
	for i, p := range kb.ix {
		if i > 0 {
			b.WriteString(KeySep)
		}
		if p < 0 || p >= len(cells) {
			continue
		}
		if i == kb.dateIx {
			b.WriteString(FormatDate(cells[p]))
			continue
		}
		b.WriteString(strings.TrimSpace(cellString(cells[p])))
	}
	return b.String()
}

// KeyStrings is Key for rows already materialized as strings (partial and
// final file contents).
func (kb keyBuilder) KeyStrings(cells []string) string {
	vals := make([]any, len(cells))
	for i, c := range cells {
		vals[i] = c
	}
	return kb.Key(vals)
}
