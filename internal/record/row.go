// Package record defines the pooled row container passed from the input
// parsers to the cleaner. Pooling keeps per-row allocations off the hot path
// when streaming large catalog exports.
package record

import "sync"

// Row is a pooled positional row aligned to the column order the consumer
// asked the parser for.
//
// Ownership contract:
//   - Exactly one goroutine owns a Row at a time.
//   - A Row may be handed downstream via a channel (ownership transfer).
//   - The final consumer calls Free() once it is fully done with the Row and
//     anything referencing r.V.
//   - On cancellation paths use Drop() instead of Free(): a canceled consumer
//     may still be reading the Row while the parser unwinds, and re-pooling it
//     would let the parser reuse it concurrently.
type Row struct {
	V    []any
	Line int // 1-based logical record number, if known
}

var rowPool sync.Pool

// Get returns a pooled Row with length colCount and all elements zeroed.
func Get(colCount int) *Row {
	if v := rowPool.Get(); v != nil {
		r := v.(*Row)
		if cap(r.V) < colCount {
			r.V = make([]any, colCount)
		}
		r.V = r.V[:colCount]
		for i := range r.V {
			r.V[i] = nil
		}
		r.Line = 0
		return r
	}
	return &Row{V: make([]any, colCount)}
}

// Free returns the Row to the pool. Call only when no other goroutine can
// observe r or r.V.
func (r *Row) Free() {
	rowPool.Put(r)
}

// Drop discards the Row without re-pooling it; the GC reclaims it.
func (r *Row) Drop() {
	r.V = nil
	r.Line = 0
}
