package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/schedlens/schedlens/internal/model"
	"github.com/schedlens/schedlens/pkg/aggregate"
	"github.com/schedlens/schedlens/pkg/snapshot"
)

// Assembler maps metrics and snapshot references into the fixed report
// template. It is pure data transformation: no pixels, no bytes.
type Assembler struct {
	now func() time.Time
}

// NewAssembler creates an assembler.
func NewAssembler() *Assembler {
	return &Assembler{now: time.Now}
}

// Assemble produces the ordered section sequence:
// summary narrative, status breakdown table, per-task-type table,
// trend chart-data, dashboard image references, data-quality narrative.
func (a *Assembler) Assemble(m *aggregate.Metrics, snaps []snapshot.Ref) []Section {
	sections := []Section{
		a.summary(m),
		a.statusBreakdown(m),
		a.byTaskType(m),
		a.trend(m),
	}
	for _, ref := range snaps {
		ref := ref
		sections = append(sections, Section{
			Title: "Dashboard: " + ref.Label,
			Kind:  KindImageRef,
			Image: &ref,
		})
	}
	sections = append(sections, a.dataQuality(m))
	return sections
}

func (a *Assembler) summary(m *aggregate.Metrics) Section {
	var b strings.Builder
	fmt.Fprintf(&b, "Scheduler log analysis generated %s.\n",
		a.now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Tasks analyzed: %d.", m.Total)

	if r, ok := m.ScheduledRatio(); ok {
		fmt.Fprintf(&b, " Scheduled: %d (%.1f%%).",
			m.ByStatus[model.StatusScheduled], r*100)
	}
	if r, ok := m.UnscheduledRatio(); ok {
		fmt.Fprintf(&b, " Unscheduled: %d (%.1f%%).",
			m.ByStatus[model.StatusUnscheduled], r*100)
	}
	if m.Total == 0 {
		b.WriteString(" No classifiable events; ratios are undefined.")
	}
	if key, count, ok := m.PeakBucket(); ok {
		fmt.Fprintf(&b, " Peak period: bucket %d with %d tasks.", key, count)
	}
	if d, ok := m.DurationByStatus[model.StatusScheduled].Mean(); ok {
		fmt.Fprintf(&b, " Mean scheduled-task duration: %.2f.", d)
	}
	if d, ok := m.DurationByStatus[model.StatusUnscheduled].Mean(); ok {
		fmt.Fprintf(&b, " Mean unscheduled-task duration: %.2f.", d)
	}
	if n := m.ByOutcome[model.OutcomeFailure]; n > 0 {
		fmt.Fprintf(&b, " Failed: %d.", n)
	}
	if n := m.ByOutcome[model.OutcomeRetry]; n > 0 {
		fmt.Fprintf(&b, " Retried: %d.", n)
	}

	return Section{Title: "Summary", Kind: KindNarrative, Text: b.String()}
}

func (a *Assembler) statusBreakdown(m *aggregate.Metrics) Section {
	table := &Table{Columns: []string{"Status", "Count", "Share"}}
	for _, s := range []model.ScheduleStatus{
		model.StatusScheduled, model.StatusUnscheduled, model.StatusUnknown,
	} {
		share := "n/a"
		if m.Total > 0 {
			share = fmt.Sprintf("%.1f%%", float64(m.ByStatus[s])/float64(m.Total)*100)
		}
		table.Rows = append(table.Rows, []string{
			s.String(),
			strconv.FormatInt(m.ByStatus[s], 10),
			share,
		})
	}
	return Section{Title: "Scheduled vs. Unscheduled", Kind: KindTable, Table: table}
}

func (a *Assembler) byTaskType(m *aggregate.Metrics) Section {
	table := &Table{Columns: []string{"Task Type", "Scheduled", "Unscheduled", "Unknown", "Total"}}
	for _, t := range m.TaskTypes() {
		scheduled := m.ByTypeStatus[aggregate.TypeStatus{TaskType: t, Status: model.StatusScheduled}]
		unscheduled := m.ByTypeStatus[aggregate.TypeStatus{TaskType: t, Status: model.StatusUnscheduled}]
		unknown := m.ByTypeStatus[aggregate.TypeStatus{TaskType: t, Status: model.StatusUnknown}]
		label := t
		if label == "" {
			label = "(untyped)"
		}
		table.Rows = append(table.Rows, []string{
			label,
			strconv.FormatInt(scheduled, 10),
			strconv.FormatInt(unscheduled, 10),
			strconv.FormatInt(unknown, 10),
			strconv.FormatInt(scheduled+unscheduled+unknown, 10),
		})
	}
	return Section{Title: "Breakdown by Task Type", Kind: KindTable, Table: table}
}

func (a *Assembler) trend(m *aggregate.Metrics) Section {
	series := &ChartSeries{
		Name:        "tasks per period",
		BucketWidth: m.BucketWidth,
	}
	for _, k := range m.BucketKeys() {
		series.Points = append(series.Points, ChartPoint{Bucket: k, Count: m.Buckets[k]})
	}
	return Section{Title: "Task Volume Trend", Kind: KindChartData, Chart: series}
}

func (a *Assembler) dataQuality(m *aggregate.Metrics) Section {
	var b strings.Builder
	fmt.Fprintf(&b, "Lines read: %d (%d blank, skipped).", m.LinesRead, m.BlankLines)
	fmt.Fprintf(&b, " Parsed: %d. Rejected: %d.", m.Total+m.Filtered, m.ParseErrors)
	if m.Filtered > 0 {
		fmt.Fprintf(&b, " Outside the requested time range: %d.", m.Filtered)
	}
	if rate, ok := m.ParseSuccessRate(); ok {
		fmt.Fprintf(&b, " Unparseable fraction: %.2f%%.", (1-rate)*100)
	}
	for _, reason := range []model.ParseReason{
		model.ReasonMalformed, model.ReasonMissingField, model.ReasonBadTimestamp,
	} {
		if n := m.ByReason[reason]; n > 0 {
			fmt.Fprintf(&b, " %s: %d.", reason, n)
		}
	}
	fmt.Fprintf(&b, " Classified as unknown: %d.", m.UnknownCount())
	return Section{Title: "Data Quality", Kind: KindNarrative, Text: b.String()}
}
