// Package aggregate folds classified task events into report metrics.
//
// Metrics is a pure accumulator: counting is pointwise, so shards
// aggregated independently merge into the same result as a single
// sequential pass (Merge is associative and commutative).
package aggregate

import (
	"errors"
	"sort"

	"github.com/schedlens/schedlens/internal/model"
)

// ErrBucketWidthMismatch is returned when merging metrics that were
// bucketed with different widths.
var ErrBucketWidthMismatch = errors.New("aggregate: bucket width mismatch")

// TypeStatus keys the per-(task type, status) breakdown.
type TypeStatus struct {
	TaskType string
	Status   model.ScheduleStatus
}

// DurationStats accumulates duration tallies in log time units.
type DurationStats struct {
	Count int64
	Sum   int64
	Min   int64
	Max   int64
}

func (d *DurationStats) add(v int64) {
	if d.Count == 0 || v < d.Min {
		d.Min = v
	}
	if d.Count == 0 || v > d.Max {
		d.Max = v
	}
	d.Count++
	d.Sum += v
}

func (d *DurationStats) merge(o DurationStats) {
	if o.Count == 0 {
		return
	}
	if d.Count == 0 {
		*d = o
		return
	}
	if o.Min < d.Min {
		d.Min = o.Min
	}
	if o.Max > d.Max {
		d.Max = o.Max
	}
	d.Count += o.Count
	d.Sum += o.Sum
}

// Mean returns the mean duration, or ok=false when no durations were
// observed.
func (d DurationStats) Mean() (float64, bool) {
	if d.Count == 0 {
		return 0, false
	}
	return float64(d.Sum) / float64(d.Count), true
}

// Metrics is the aggregation accumulator. Ratios are computed at read
// time, never stored, so they can't go stale.
type Metrics struct {
	// BucketWidth is the trend bucket width in log time units.
	BucketWidth int64

	// Total is the number of classified events folded in.
	Total int64

	// ByStatus counts events per schedule status.
	ByStatus map[model.ScheduleStatus]int64

	// ByTypeStatus counts events per (task type, status) pair.
	ByTypeStatus map[TypeStatus]int64

	// ByOutcome counts events per execution outcome.
	ByOutcome map[model.Outcome]int64

	// Buckets counts events per time bucket. Buckets with zero events
	// are not synthesized; gap filling is a rendering decision.
	Buckets map[int64]int64

	// DurationByStatus tallies run durations per status, counting only
	// events that carried a duration field.
	DurationByStatus map[model.ScheduleStatus]DurationStats

	// Parse-quality counters. LinesRead excludes nothing; BlankLines
	// are skipped silently; ParseErrors counts rejected lines;
	// Filtered counts events dropped by a time-range filter before
	// aggregation.
	LinesRead   int64
	BlankLines  int64
	ParseErrors int64
	Filtered    int64
	ByReason    map[model.ParseReason]int64
}

// New creates an empty accumulator for the given bucket width. A width
// of zero or less disables time bucketing.
func New(bucketWidth int64) *Metrics {
	return &Metrics{
		BucketWidth:      bucketWidth,
		ByStatus:         make(map[model.ScheduleStatus]int64),
		ByTypeStatus:     make(map[TypeStatus]int64),
		ByOutcome:        make(map[model.Outcome]int64),
		Buckets:          make(map[int64]int64),
		DurationByStatus: make(map[model.ScheduleStatus]DurationStats),
		ByReason:         make(map[model.ParseReason]int64),
	}
}

// Add folds one classified event into the accumulator.
func (m *Metrics) Add(e *model.TaskEvent) {
	m.Total++
	m.ByStatus[e.Status]++
	m.ByTypeStatus[TypeStatus{TaskType: e.TaskType, Status: e.Status}]++
	m.ByOutcome[e.Outcome]++

	if m.BucketWidth > 0 {
		m.Buckets[BucketKey(e.Timestamp, m.BucketWidth)]++
	}
	if e.Duration > 0 {
		d := m.DurationByStatus[e.Status]
		d.add(e.Duration)
		m.DurationByStatus[e.Status] = d
	}
}

// AddParseError records one rejected line.
func (m *Metrics) AddParseError(reason model.ParseReason) {
	m.ParseErrors++
	m.ByReason[reason]++
}

// ObserveLine records one raw line read from the source.
func (m *Metrics) ObserveLine(blank bool) {
	m.LinesRead++
	if blank {
		m.BlankLines++
	}
}

// ObserveFiltered records one event dropped by a time-range filter.
func (m *Metrics) ObserveFiltered() {
	m.Filtered++
}

// Merge folds another accumulator into this one: pointwise sum of all
// counts, bucket series aligned by bucket key.
func (m *Metrics) Merge(o *Metrics) error {
	if m.BucketWidth != o.BucketWidth {
		return ErrBucketWidthMismatch
	}
	m.Total += o.Total
	for k, v := range o.ByStatus {
		m.ByStatus[k] += v
	}
	for k, v := range o.ByTypeStatus {
		m.ByTypeStatus[k] += v
	}
	for k, v := range o.ByOutcome {
		m.ByOutcome[k] += v
	}
	for k, v := range o.Buckets {
		m.Buckets[k] += v
	}
	for k, v := range o.DurationByStatus {
		d := m.DurationByStatus[k]
		d.merge(v)
		m.DurationByStatus[k] = d
	}
	m.LinesRead += o.LinesRead
	m.BlankLines += o.BlankLines
	m.ParseErrors += o.ParseErrors
	m.Filtered += o.Filtered
	for k, v := range o.ByReason {
		m.ByReason[k] += v
	}
	return nil
}

// BucketKey maps a timestamp to its bucket via floor division, correct
// for negative timestamps.
func BucketKey(ts, width int64) int64 {
	k := ts / width
	if ts%width != 0 && (ts < 0) != (width < 0) {
		k--
	}
	return k
}

// ScheduledRatio returns scheduled/total, ok=false when total is zero.
func (m *Metrics) ScheduledRatio() (float64, bool) {
	return m.ratio(model.StatusScheduled)
}

// UnscheduledRatio returns unscheduled/total, ok=false when total is zero.
func (m *Metrics) UnscheduledRatio() (float64, bool) {
	return m.ratio(model.StatusUnscheduled)
}

func (m *Metrics) ratio(s model.ScheduleStatus) (float64, bool) {
	if m.Total == 0 {
		return 0, false
	}
	return float64(m.ByStatus[s]) / float64(m.Total), true
}

// ParseSuccessRate returns parsed/(parsed+rejected) over non-blank
// lines, ok=false when nothing was read. Filtered events parsed fine,
// so they count toward the numerator.
func (m *Metrics) ParseSuccessRate() (float64, bool) {
	parsed := m.Total + m.Filtered
	considered := parsed + m.ParseErrors
	if considered == 0 {
		return 0, false
	}
	return float64(parsed) / float64(considered), true
}

// UnknownCount returns how many events classified as unknown.
func (m *Metrics) UnknownCount() int64 {
	return m.ByStatus[model.StatusUnknown]
}

// BucketKeys returns the observed bucket keys in ascending order.
func (m *Metrics) BucketKeys() []int64 {
	keys := make([]int64, 0, len(m.Buckets))
	for k := range m.Buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// PeakBucket returns the bucket with the highest count, the earliest
// bucket on ties. ok=false when no buckets were observed.
func (m *Metrics) PeakBucket() (key, count int64, ok bool) {
	for _, k := range m.BucketKeys() {
		if !ok || m.Buckets[k] > count {
			key, count, ok = k, m.Buckets[k], true
		}
	}
	return key, count, ok
}

// TaskTypes returns the observed task types in ascending order.
func (m *Metrics) TaskTypes() []string {
	seen := make(map[string]struct{})
	for k := range m.ByTypeStatus {
		seen[k.TaskType] = struct{}{}
	}
	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
