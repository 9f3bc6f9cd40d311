package rag

import (
	"math"
	"time"
)

// TraceStep records one timed stage of the answer pipeline.
type TraceStep struct {
	Name   string  `json:"name"`
	Ms     float64 `json:"ms"`
	Detail string  `json:"detail,omitempty"`
}

// Trace summarizes a whole ask request for the explain view.
type Trace struct {
	TopK    int         `json:"top_k"`
	Hits    int         `json:"hits"`
	Steps   []TraceStep `json:"steps"`
	DocIDs  []int64     `json:"doc_ids"`
	TotalMs float64     `json:"total_ms"`
}

func (t *Trace) Add(name string, elapsed time.Duration, detail string) {
	t.Steps = append(t.Steps, TraceStep{
		Name:   name,
		Ms:     roundMs(elapsed),
		Detail: detail,
	})
}

// roundMs converts a duration to milliseconds rounded to two decimals.
func roundMs(d time.Duration) float64 {
	ms := float64(d.Nanoseconds()) / 1e6
	return math.Round(ms*100) / 100
}
