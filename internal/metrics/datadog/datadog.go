// Package datadog implements a Datadog backend for the internal/metrics
// facade.
//
// The backend buffers observations in memory, submits them on a periodic
// Flush() ticker, and submits one final time on Close(). Cleaning runs are
// usually short, so the final flush matters most; the periodic flush keeps
// long scraper runs visible as a real time series instead of a single spike
// at exit.
//
// Concurrency model:
//   - pipeline goroutines may call IncCounter/ObserveHistogram at any time
//   - Flush snapshots and resets buffers under a mutex, then submits
//     out-of-lock
//   - the flush loop calls Flush() periodically; Close() stops the loop
package datadog

import (
	"context"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"gamecat/internal/metrics"
)

// Options controls Datadog backend configuration.
type Options struct {
	// JobName becomes tag "job:<name>" on every metric. Defaults to "gamecat".
	JobName string

	// Tags are extra Datadog tags (e.g. []string{"env:prod"}).
	Tags []string

	// FlushEvery controls the periodic submission interval. Defaults to 60s.
	FlushEvery time.Duration

	// Unexported test seams. Production code never sets these; unit tests use
	// them to avoid real network submission and nondeterministic tickers.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

// metricsSubmitter is the minimal slice of the Datadog SDK this backend
// needs, kept private so tests can stub submission without HTTP.
type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api ddSubmitterWithCtx

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}

	baseTags []string

	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu sync.Mutex

	rowCounts   map[string]float64 // source\x00kind -> count
	chunkCounts map[string]float64 // source -> count
	httpCounts  map[string]float64 // status -> count
	httpErrs    map[string]float64 // status -> count

	chunkDur map[string][]float64 // source -> seconds
	httpDur  map[string][]float64 // status -> seconds
}

type ddSubmitterWithCtx struct {
	s   metricsSubmitter
	ctx context.Context
}

func resolveEnvTag() string {
	if v := strings.TrimSpace(os.Getenv("ENV")); v != "" {
		return "env:" + v
	}
	if v := strings.TrimSpace(os.Getenv("DD_ENV")); v != "" {
		return "env:" + v
	}
	return "env:unknown"
}

// NewBackend constructs a Datadog backend using the official client and
// starts its periodic flush goroutine. Credentials come from the standard
// DD_API_KEY / DD_APP_KEY environment; network errors surface from Flush(),
// not from construction.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	job := opts.JobName
	if job == "" {
		job = "gamecat"
	}
	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}

	baseTags := make([]string, 0, 2+len(opts.Tags))
	baseTags = append(baseTags, resolveEnvTag(), "job:"+job)
	baseTags = append(baseTags, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}

	submitter := opts.submitter
	if submitter == nil {
		client := dd.NewAPIClient(dd.NewConfiguration())
		submitter = datadogV2.NewMetricsApi(client)
	}

	b := &Backend{
		api:        ddSubmitterWithCtx{s: submitter, ctx: dd.NewDefaultContext(parent)},
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		baseTags:   baseTags,
		now:        nowFn,
		newTicker:  newTicker,

		rowCounts:   map[string]float64{},
		chunkCounts: map[string]float64{},
		httpCounts:  map[string]float64{},
		httpErrs:    map[string]float64{},
		chunkDur:    map[string][]float64{},
		httpDur:     map[string][]float64{},
	}

	go b.loop()
	return b, nil
}

func (b *Backend) loop() {
	defer close(b.doneCh)
	t := b.newTicker(b.flushEvery)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// Close stops the flush loop and performs one final Flush(). Call once.
func (b *Backend) Close() error {
	close(b.stopCh)
	<-b.doneCh
	return b.Flush()
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch name {
	case "clean_rows_total":
		b.rowCounts[pairKey(labels["source"], labels["kind"])] += delta
	case "clean_chunks_total":
		b.chunkCounts[orUnknown(labels["source"])] += delta
	case "http_requests_total":
		b.httpCounts[orUnknown(labels["status"])] += delta
	case "http_errors_total":
		b.httpErrs[orUnknown(labels["status"])] += delta
	default:
		// Unknown metrics are ignored.
	}
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch name {
	case "clean_chunk_duration_seconds":
		k := orUnknown(labels["source"])
		b.chunkDur[k] = append(b.chunkDur[k], value)
	case "http_request_duration_seconds":
		k := orUnknown(labels["status"])
		b.httpDur[k] = append(b.httpDur[k], value)
	default:
	}
}

type snapshot struct {
	rowCounts   map[string]float64
	chunkCounts map[string]float64
	httpCounts  map[string]float64
	httpErrs    map[string]float64
	chunkDur    map[string][]float64
	httpDur     map[string][]float64
}

func (s snapshot) isEmpty() bool {
	return len(s.rowCounts) == 0 && len(s.chunkCounts) == 0 &&
		len(s.httpCounts) == 0 && len(s.httpErrs) == 0 &&
		len(s.chunkDur) == 0 && len(s.httpDur) == 0
}

func (b *Backend) snapshotAndReset() snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := snapshot{
		rowCounts:   b.rowCounts,
		chunkCounts: b.chunkCounts,
		httpCounts:  b.httpCounts,
		httpErrs:    b.httpErrs,
		chunkDur:    b.chunkDur,
		httpDur:     b.httpDur,
	}
	b.rowCounts = map[string]float64{}
	b.chunkCounts = map[string]float64{}
	b.httpCounts = map[string]float64{}
	b.httpErrs = map[string]float64{}
	b.chunkDur = map[string][]float64{}
	b.httpDur = map[string][]float64{}
	return s
}

// Flush submits buffered metrics and resets local buffers. Buffers are reset
// even when submission fails, to keep the pipeline hot path unblocked.
func (b *Backend) Flush() error {
	snap := b.snapshotAndReset()
	if snap.isEmpty() {
		return nil
	}
	payload := datadogV2.MetricPayload{Series: b.buildSeries(snap, b.now().Unix())}
	_, _, err := b.api.s.SubmitMetrics(b.api.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

// buildSeries is pure (no locks, network, or clocks), which keeps the
// naming/tagging contract unit-testable.
func (b *Backend) buildSeries(s snapshot, nowUnix int64) []datadogV2.MetricSeries {
	series := make([]datadogV2.MetricSeries, 0, 16)

	for k, v := range s.rowCounts {
		if v == 0 {
			continue
		}
		source, kind := splitPairKey(k)
		tags := withTags(b.baseTags, "source:"+source, "kind:"+kind)
		series = append(series, countSeries("gamecat.clean.rows.total", v, tags, nowUnix))
	}
	for source, v := range s.chunkCounts {
		if v == 0 {
			continue
		}
		tags := withTags(b.baseTags, "source:"+source)
		series = append(series, countSeries("gamecat.clean.chunks.total", v, tags, nowUnix))
	}
	for status, v := range s.httpCounts {
		if v == 0 {
			continue
		}
		tags := withTags(b.baseTags, "status:"+status)
		series = append(series, countSeries("gamecat.http.requests.total", v, tags, nowUnix))
	}
	for status, v := range s.httpErrs {
		if v == 0 {
			continue
		}
		tags := withTags(b.baseTags, "status:"+status)
		series = append(series, countSeries("gamecat.http.errors.total", v, tags, nowUnix))
	}

	for source, samples := range s.chunkDur {
		tags := withTags(b.baseTags, "source:"+source)
		addPercentiles(&series, "gamecat.clean.chunk_duration_seconds", samples, tags, nowUnix)
	}
	for status, samples := range s.httpDur {
		tags := withTags(b.baseTags, "status:"+status)
		addPercentiles(&series, "gamecat.http.request_duration_seconds", samples, tags, nowUnix)
	}

	return series
}

// addPercentiles appends a fixed set of percentile gauges for a sample set.
// It sorts a copy and does nothing for empty samples.
func addPercentiles(series *[]datadogV2.MetricSeries, metricPrefix string, samples []float64, tags []string, nowUnix int64) {
	if len(samples) == 0 {
		return
	}
	cp := append([]float64(nil), samples...)
	sort.Float64s(cp)

	*series = append(*series, gaugeSeries(metricPrefix+".p50", percentileNearestRank(cp, 0.50), tags, nowUnix))
	*series = append(*series, gaugeSeries(metricPrefix+".p90", percentileNearestRank(cp, 0.90), tags, nowUnix))
	*series = append(*series, gaugeSeries(metricPrefix+".p99", percentileNearestRank(cp, 0.99), tags, nowUnix))
	*series = append(*series, gaugeSeries(metricPrefix+".max", cp[len(cp)-1], tags, nowUnix))
	*series = append(*series, gaugeSeries(metricPrefix+".samples", float64(len(cp)), tags, nowUnix))
}

func countSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_COUNT.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

func gaugeSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_GAUGE.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

func pairKey(a, b string) string {
	return orUnknown(a) + "\x00" + orUnknown(b)
}

func splitPairKey(k string) (string, string) {
	parts := strings.SplitN(k, "\x00", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return k, "unknown"
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func withTags(base []string, extras ...string) []string {
	out := make([]string, 0, len(base)+len(extras))
	out = append(out, base...)
	out = append(out, extras...)
	return out
}

func percentileNearestRank(s []float64, p float64) float64 {
	n := len(s)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return s[0]
	}
	if p >= 1 {
		return s[n-1]
	}
	idx := int(p*float64(n-1) + 0.5)
	if idx >= n {
		idx = n - 1
	}
	return s[idx]
}

var _ metrics.Backend = (*Backend)(nil)

// ParseTagsCSV parses comma-separated tags like "env:prod,service:gamecat".
func ParseTagsCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
