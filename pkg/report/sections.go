// Package report assembles aggregated metrics into the ordered section
// sequence handed to external document renderers.
package report

import (
	"github.com/schedlens/schedlens/pkg/snapshot"
)

// Kind is the section content type.
type Kind uint8

const (
	KindNarrative Kind = iota
	KindTable
	KindChartData
	KindImageRef
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindTable:
		return "table"
	case KindChartData:
		return "chart-data"
	case KindImageRef:
		return "image-reference"
	default:
		return "narrative-text"
	}
}

// Table is a rendered-agnostic table payload.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// ChartPoint is one trend data point.
type ChartPoint struct {
	// Bucket is the bucket key (timestamp floor-divided by width).
	Bucket int64 `json:"bucket"`
	// Count is the number of events in the bucket.
	Count int64 `json:"count"`
}

// ChartSeries is the chart-data payload. Gaps between buckets are
// preserved; filling them is the renderer's decision.
type ChartSeries struct {
	Name        string       `json:"name"`
	BucketWidth int64        `json:"bucket_width"`
	Points      []ChartPoint `json:"points"`
}

// Section is one named, typed unit of report content. Exactly one
// payload field is set, matching Kind.
type Section struct {
	Title string `json:"title"`
	Kind  Kind   `json:"kind"`

	Text  string        `json:"text,omitempty"`
	Table *Table        `json:"table,omitempty"`
	Chart *ChartSeries  `json:"chart,omitempty"`
	Image *snapshot.Ref `json:"image,omitempty"`
}
