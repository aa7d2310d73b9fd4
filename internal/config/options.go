// Package config holds the small, loosely-typed option bag used by the input
// parsers. Values typically come from JSON, so getters accept the types
// encoding/json produces (string, bool, float64, map[string]any) as well as
// their native Go counterparts.
package config

import "encoding/json"

// Options is a free-form option map with typed accessors.
// A missing key or a value of the wrong type yields the caller's default.
type Options map[string]any

// Any returns the raw value for key, or nil if absent.
func (o Options) Any(key string) any {
	if o == nil {
		return nil
	}
	return o[key]
}

// String returns the string value for key, or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key, or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key, or def. JSON numbers decode as float64,
// so both int and float64 are accepted.
func (o Options) Int(key string, def int) int {
	switch v := o[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return def
}

// Rune returns the first rune of the string value for key, or def.
func (o Options) Rune(key string, def rune) rune {
	if s := o.String(key, ""); s != "" {
		for _, r := range s {
			return r
		}
	}
	return def
}

// StringMap returns the map value for key with string values only.
// Non-string values are dropped. Returns an empty map when absent.
func (o Options) StringMap(key string) map[string]string {
	out := map[string]string{}
	switch m := o[key].(type) {
	case map[string]string:
		for k, v := range m {
			out[k] = v
		}
	case map[string]any:
		for k, v := range m {
			if s, ok := v.(string); ok {
				out[k] = s
			}
		}
	}
	return out
}
