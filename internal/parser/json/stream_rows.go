// Package json streams JSON catalog exports into pooled record rows.
package json

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"gamecat/internal/config"
	"gamecat/internal/record"
)

// StreamRows parses JSON from r and streams one *record.Row per object into
// out, aligned to the target 'columns' order.
//
// Accepted input shapes:
//   - a root array of objects (null elements are skipped), the shape the
//     scraper's JSON writer produces
//   - a single root object (one record)
//   - a stream of concatenated objects (JSONL), including objects trailing a
//     root array
//
// Values are passed through as decoded: strings stay strings, numbers are
// json.Number, arrays stay []any. Flattening list values is the cleaner's
// job, not the parser's.
//
// onHeader, when non-nil, is called before the first row with the subset of
// 'columns' present in the first decoded object, in 'columns' order. Later
// objects may carry additional keys; column presence is fixed by the first
// record, matching the uniform-schema contract of the upstream writers.
//
// Supported options:
//   - header_map (map original key -> target column)
func StreamRows(
	ctx context.Context,
	r io.Reader,
	columns []string,
	opt config.Options,
	out chan<- *record.Row,
	onHeader func(present []string),
	onErr func(line int, err error),
) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	rev := reverseHeaderMap(opt.StringMap("header_map"))

	line := 0
	headerSent := false

	emit := func(obj map[string]any) error {
		line++

		if !headerSent {
			headerSent = true
			if onHeader != nil {
				onHeader(presentColumns(obj, columns, rev))
			}
		}

		row := record.Get(len(columns))
		row.Line = line
		for i, col := range columns {
			v, ok := obj[col]
			if !ok {
				if orig, ok2 := rev[col]; ok2 {
					v = obj[orig]
				}
			}
			row.V[i] = v
		}

		select {
		case out <- row:
			return nil
		case <-ctx.Done():
			row.Drop()
			return ctx.Err()
		}
	}

	// Peek the first token so a root array can be streamed element-by-element
	// without buffering the whole file.
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil
		}
		if onErr != nil {
			onErr(0, err)
		}
		return fmt.Errorf("json: read first token: %w", err)
	}

	d, ok := tok.(json.Delim)
	if !ok {
		return fmt.Errorf("json: unsupported root token %T (want object or array)", tok)
	}

	switch d {
	case '[':
		for dec.More() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			var raw any
			if err := dec.Decode(&raw); err != nil {
				if onErr != nil {
					onErr(line+1, err)
				}
				return fmt.Errorf("json: decode array element: %w", err)
			}
			if raw == nil {
				continue
			}
			obj, ok := raw.(map[string]any)
			if !ok {
				err := fmt.Errorf("json: array element not an object (got %T)", raw)
				if onErr != nil {
					onErr(line+1, err)
				}
				return err
			}
			if err := emit(obj); err != nil {
				return err
			}
		}
		if end, err := dec.Token(); err != nil {
			return fmt.Errorf("json: read array end: %w", err)
		} else if end != json.Delim(']') {
			return fmt.Errorf("json: expected array end ']', got %v", end)
		}
		return streamTrailingObjects(dec, emit, onErr, &line)

	case '{':
		obj, err := decodeOpenObject(dec)
		if err != nil {
			if onErr != nil {
				onErr(line+1, err)
			}
			return err
		}
		if err := emit(obj); err != nil {
			return err
		}
		return streamTrailingObjects(dec, emit, onErr, &line)

	default:
		return fmt.Errorf("json: unsupported root delimiter %q", d)
	}
}

// streamTrailingObjects decodes concatenated JSON objects until EOF.
func streamTrailingObjects(
	dec *json.Decoder,
	emit func(map[string]any) error,
	onErr func(line int, err error),
	line *int,
) error {
	for {
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			if err == io.EOF {
				return nil
			}
			if onErr != nil {
				onErr(*line+1, err)
			}
			return fmt.Errorf("json: decode trailing object: %w", err)
		}
		if err := emit(obj); err != nil {
			return err
		}
	}
}

// decodeOpenObject materializes the object whose '{' has already been
// consumed from the decoder.
func decodeOpenObject(dec *json.Decoder) (map[string]any, error) {
	obj := make(map[string]any)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("json: read object key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("json: object key not a string (got %T)", keyTok)
		}
		var val any
		if err := dec.Decode(&val); err != nil {
			return nil, fmt.Errorf("json: decode object value: %w", err)
		}
		obj[key] = val
	}
	end, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("json: read object end: %w", err)
	}
	if end != json.Delim('}') {
		return nil, fmt.Errorf("json: expected object end '}', got %v", end)
	}
	return obj, nil
}

func presentColumns(obj map[string]any, columns []string, rev map[string]string) []string {
	present := make([]string, 0, len(columns))
	for _, col := range columns {
		if _, ok := obj[col]; ok {
			present = append(present, col)
			continue
		}
		if orig, ok := rev[col]; ok {
			if _, ok := obj[orig]; ok {
				present = append(present, col)
			}
		}
	}
	return present
}

// reverseHeaderMap builds target->original for lookup without per-record map
// copies.
func reverseHeaderMap(h map[string]string) map[string]string {
	out := make(map[string]string, len(h))
	for orig, target := range h {
		if orig == "" || target == "" {
			continue
		}
		out[target] = orig
	}
	return out
}
