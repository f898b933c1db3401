package extract

import (
	"fmt"
	"sync/atomic"
)

// DefaultProgressInterval is how many extractions pass between progress
// lines.
const DefaultProgressInterval = 1000

// Progress counts successful extractions across every worker of a run.
//
// It is created by the coordinator for one run and shared by pointer; the
// count only ever grows and each Add is applied exactly once.
type Progress struct {
	done     atomic.Int64
	total    int64
	interval int64
}

// NewProgress creates a counter for a manifest of total paths that
// reports every interval extractions. interval <= 0 disables reports.
func NewProgress(total, interval int) *Progress {
	return &Progress{
		total:    int64(total),
		interval: int64(interval),
	}
}

// Add records one extraction. It returns the new count and whether the
// caller's increment landed on a reporting boundary; exactly one caller
// observes each boundary.
func (p *Progress) Add() (done int64, report bool) {
	n := p.done.Add(1)
	return n, p.interval > 0 && n%p.interval == 0
}

// Load returns the current count.
func (p *Progress) Load() int64 {
	return p.done.Load()
}

// Total returns the manifest length the counter was created for.
func (p *Progress) Total() int64 {
	return p.total
}

// String formats the counter as completed/total.
func (p *Progress) String() string {
	return format(p.Load(), p.total)
}

func format(done, total int64) string {
	return fmt.Sprintf("%d/%d", done, total)
}
