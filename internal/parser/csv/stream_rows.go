// Package csv streams CSV catalog exports into pooled record rows.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"gamecat/internal/config"
	"gamecat/internal/record"
)

// StreamRows streams CSV from src into pooled *record.Row values aligned to
// the target 'columns' order. Cells are string or nil (empty cell).
//
// The header row is normalized before matching: surrounding whitespace and a
// leading BOM are stripped, then header_map is applied, then the fallback of
// lowercasing and replacing spaces with underscores.
//
// onHeader, when non-nil, is called once before any row is emitted with the
// subset of 'columns' actually present in the input, in 'columns' order.
//
// Supported options:
//   - has_header (bool, default true)
//   - comma (string, first rune, default ',')
//   - trim_space (bool, default true)
//   - lazy_quotes (bool, default false)
//   - header_map (map original header -> target column)
//
// NOTE on cancellation: in-flight rows must be Dropped, not Freed, so the
// parser cannot reuse them while a canceled consumer still reads them.
func StreamRows(
	ctx context.Context,
	src io.ReadCloser,
	columns []string,
	opt config.Options,
	out chan<- *record.Row,
	onHeader func(present []string),
	onErr func(line int, err error),
) error {
	defer src.Close()

	var line int

	hasHeader := opt.Bool("has_header", true)
	trim := opt.Bool("trim_space", true)
	hm := opt.StringMap("header_map")

	cr := csv.NewReader(src)
	cr.Comma = opt.Rune("comma", ',')
	cr.ReuseRecord = true
	cr.LazyQuotes = opt.Bool("lazy_quotes", false)
	cr.FieldsPerRecord = -1

	colIx := make([]int, len(columns))
	for i := range colIx {
		colIx[i] = -1
	}

	readRec := func() ([]string, error) {
		line++
		return cr.Read()
	}

	if hasHeader {
		hdr, err := readRec()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			if onErr != nil {
				onErr(line, fmt.Errorf("read header: %w", err))
			}
			return err
		}
		srcToIdx := make(map[string]int, len(hdr))
		for i, h := range hdr {
			h = strings.TrimSpace(h)
			if i == 0 {
				h = strings.TrimPrefix(h, "\uFEFF")
			}
			if mapped, ok := hm[h]; ok {
				h = mapped
			} else {
				h = strings.ReplaceAll(strings.ToLower(h), " ", "_")
			}
			srcToIdx[h] = i
		}
		for t, target := range columns {
			if si, ok := srcToIdx[target]; ok {
				colIx[t] = si
			}
		}
	} else {
		for i := range columns {
			colIx[i] = i
		}
	}

	if onHeader != nil {
		present := make([]string, 0, len(columns))
		for t, target := range columns {
			if colIx[t] >= 0 {
				present = append(present, target)
			}
		}
		onHeader(present)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, err := readRec()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if onErr != nil {
				onErr(line, fmt.Errorf("csv read: %w", err))
			}
			continue
		}

		row := record.Get(len(columns))
		row.Line = line

		for t := range columns {
			si := colIx[t]
			if si < 0 || si >= len(rec) {
				row.V[t] = nil
				continue
			}
			v := rec[si]
			if trim {
				v = strings.TrimSpace(v)
			}
			if v == "" {
				row.V[t] = nil
			} else {
				row.V[t] = v
			}
		}

		select {
		case out <- row:
		case <-ctx.Done():
			row.Drop()
			return ctx.Err()
		}
	}
}
