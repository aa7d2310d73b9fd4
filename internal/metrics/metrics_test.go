package metrics

import "testing"

type captureBackend struct {
	counters   map[string]float64
	histograms map[string][]float64
	flushed    int
}

func newCaptureBackend() *captureBackend {
	return &captureBackend{
		counters:   map[string]float64{},
		histograms: map[string][]float64{},
	}
}

func (c *captureBackend) IncCounter(name string, delta float64, labels Labels) {
	c.counters[name+"/"+labels["source"]] += delta
}

func (c *captureBackend) ObserveHistogram(name string, value float64, labels Labels) {
	c.histograms[name] = append(c.histograms[name], value)
}

func (c *captureBackend) Flush() error {
	c.flushed++
	return nil
}

func TestFacadeRoutesToInstalledBackend(t *testing.T) {
	cb := newCaptureBackend()
	SetBackend(cb)
	defer SetBackend(nil)

	IncCounter("clean_rows_total", 3, Labels{"source": "rawg"})
	IncCounter("clean_rows_total", 2, Labels{"source": "rawg"})
	ObserveHistogram("clean_chunk_duration_seconds", 0.25, nil)

	if got := cb.counters["clean_rows_total/rawg"]; got != 5 {
		t.Fatalf("counter = %v, want 5", got)
	}
	if got := cb.histograms["clean_chunk_duration_seconds"]; len(got) != 1 || got[0] != 0.25 {
		t.Fatalf("histogram = %v", got)
	}

	if err := Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if cb.flushed != 1 {
		t.Fatalf("flushed = %d", cb.flushed)
	}
}

func TestDefaultBackendDiscards(t *testing.T) {
	SetBackend(nil)

	// Must not panic and must not buffer anything.
	IncCounter("clean_rows_total", 1, nil)
	ObserveHistogram("clean_chunk_duration_seconds", 1, nil)
	if err := Flush(); err != nil {
		t.Fatalf("Flush on nop backend: %v", err)
	}
}
