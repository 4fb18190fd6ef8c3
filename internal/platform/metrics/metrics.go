package metrics

import (
	"sync/atomic"
	"time"
)

// Collector counts request outcomes plus the payroll attendance fallbacks.
// The two fallback reasons are tracked separately so a missing-tracking-data
// month can be told apart from an all-absent month.
type Collector struct {
	totalRequests         uint64
	errorRequests         uint64
	rateLimited           uint64
	totalDurationMs       uint64
	fallbackNoRecords     uint64
	fallbackZeroPresent   uint64
	lettersRendered       uint64
	letterRenderFailures  uint64
	balanceCreateConflict uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

func (c *Collector) RecordFallbackNoRecords() {
	atomic.AddUint64(&c.fallbackNoRecords, 1)
}

func (c *Collector) RecordFallbackZeroPresent() {
	atomic.AddUint64(&c.fallbackZeroPresent, 1)
}

func (c *Collector) RecordLetterRendered() {
	atomic.AddUint64(&c.lettersRendered, 1)
}

func (c *Collector) RecordLetterRenderFailure() {
	atomic.AddUint64(&c.letterRenderFailures, 1)
}

func (c *Collector) RecordBalanceCreateConflict() {
	atomic.AddUint64(&c.balanceCreateConflict, 1)
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":                 total,
		"errorsTotal":                   atomic.LoadUint64(&c.errorRequests),
		"rateLimitedTotal":              atomic.LoadUint64(&c.rateLimited),
		"avgDurationMs":                 avg,
		"attendanceFallbackNoRecords":   atomic.LoadUint64(&c.fallbackNoRecords),
		"attendanceFallbackZeroPresent": atomic.LoadUint64(&c.fallbackZeroPresent),
		"lettersRenderedTotal":          atomic.LoadUint64(&c.lettersRendered),
		"letterRenderFailuresTotal":     atomic.LoadUint64(&c.letterRenderFailures),
		"balanceCreateConflictsTotal":   atomic.LoadUint64(&c.balanceCreateConflict),
	}
}
