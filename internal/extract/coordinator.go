package extract

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/handiism/xivextract/internal/manifest"
	"github.com/handiism/xivextract/internal/model"
	"golang.org/x/sync/errgroup"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents an extraction progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Options tunes a run.
type Options struct {
	// Workers is the requested worker count. It is clamped to the
	// manifest length; values below 1 mean 1.
	Workers int

	// ProgressInterval is the number of extractions between progress
	// lines. Zero selects DefaultProgressInterval; negative disables them.
	ProgressInterval int
}

// Summary describes a finished run.
type Summary struct {
	Stats

	// Total is the manifest length.
	Total int

	// Workers is the number of workers actually started.
	Workers int

	// Duration is the wall time from partitioning to the last join.
	Duration time.Duration
}

// Coordinator runs one extraction: fetch, partition, extract, join.
type Coordinator struct {
	source manifest.Source
	open   Opener
	writer Writer
	opts   Options

	manifest model.Manifest
	fetched  bool
	progress atomic.Pointer[Progress]
	workers  atomic.Pointer[[]*worker]

	onProgress func(ProgressEvent)
	mu         sync.Mutex
}

// NewCoordinator creates a Coordinator.
//
// onProgress may be nil. It is called from worker goroutines and must be
// safe for concurrent use; events from different workers interleave in no
// particular order.
func NewCoordinator(source manifest.Source, open Opener, writer Writer, opts Options, onProgress func(ProgressEvent)) *Coordinator {
	if opts.ProgressInterval == 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	return &Coordinator{
		source:     source,
		open:       open,
		writer:     writer,
		opts:       opts,
		onProgress: onProgress,
	}
}

// Fetch retrieves the manifest. It is the only network operation of a run
// and happens before any worker starts.
func (c *Coordinator) Fetch(ctx context.Context) (model.Manifest, error) {
	c.progressEvent(ProgressEvent{Message: "Fetching file list...", Level: LevelInfo})

	paths, err := c.source.Fetch(ctx)
	if err != nil {
		c.progressEvent(ProgressEvent{Message: fmt.Sprintf("Error fetching file list: %v", err), Level: LevelError})
		return nil, err
	}

	if paths == nil {
		paths = model.Manifest{}
	}
	c.mu.Lock()
	c.manifest = paths
	c.fetched = true
	c.mu.Unlock()

	c.progressEvent(ProgressEvent{Message: fmt.Sprintf("Found %d files to export!", paths.Len()), Level: LevelInfo})
	return paths, nil
}

// Manifest returns the fetched manifest, or nil before Fetch succeeds.
func (c *Coordinator) Manifest() model.Manifest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.manifest
}

// Plan returns the chunks the fetched manifest will be split into.
func (c *Coordinator) Plan() []model.Chunk {
	return Partition(c.Manifest(), c.opts.Workers)
}

// Run fetches the manifest and extracts it.
func (c *Coordinator) Run(ctx context.Context) (Summary, error) {
	if _, err := c.Fetch(ctx); err != nil {
		return Summary{}, err
	}
	return c.Extract(ctx)
}

// Extract processes the fetched manifest and blocks until every worker
// has finished.
//
// The returned error joins every fatal worker error (write failures,
// archive open failures) and, if the context was cancelled, ctx.Err().
// Summary is populated in every case.
func (c *Coordinator) Extract(ctx context.Context) (Summary, error) {
	c.mu.Lock()
	paths, fetched := c.manifest, c.fetched
	c.mu.Unlock()
	if !fetched {
		return Summary{}, ErrNoManifest
	}

	start := time.Now()
	chunks := Partition(paths, c.opts.Workers)
	progress := NewProgress(paths.Len(), c.opts.ProgressInterval)
	c.progress.Store(progress)

	workers := make([]*worker, len(chunks))
	for i, chunk := range chunks {
		workers[i] = &worker{
			chunk:    chunk,
			open:     c.open,
			writer:   c.writer,
			progress: progress,
			emit:     c.progressEvent,
		}
	}
	c.workers.Store(&workers)

	c.progressEvent(ProgressEvent{
		Message: fmt.Sprintf("Extracting with %d worker(s)", len(workers)),
		Level:   LevelVerbose,
	})

	// A plain Group: one worker failing must not cancel its siblings.
	var g errgroup.Group
	errs := make([]error, len(workers))
	for i, w := range workers {
		g.Go(func() error {
			errs[i] = w.run(ctx)
			return errs[i]
		})
	}
	_ = g.Wait()

	summary := Summary{
		Total:    paths.Len(),
		Workers:  len(workers),
		Duration: time.Since(start),
	}
	for _, w := range workers {
		summary.add(w.stats)
	}

	err := joinWorkerErrors(ctx, errs)
	if err != nil {
		c.progressEvent(ProgressEvent{Message: fmt.Sprintf("Extraction failed after %s files", progress), Level: LevelError})
		return summary, err
	}

	c.progressEvent(ProgressEvent{Message: fmt.Sprintf("All files exported! (%s)", progress), Level: LevelSuccess})
	return summary, nil
}

// joinWorkerErrors keeps every worker failure but reports cancellation once.
func joinWorkerErrors(ctx context.Context, errs []error) error {
	var fatal []error
	for _, err := range errs {
		if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			continue
		}
		fatal = append(fatal, err)
	}
	if ctx.Err() != nil {
		fatal = append(fatal, ctx.Err())
	}
	return errors.Join(fatal...)
}

// GetProgress returns the exact completed count and manifest length of the
// current run. Both are zero before Extract starts.
func (c *Coordinator) GetProgress() (completed, total int64) {
	p := c.progress.Load()
	if p == nil {
		return 0, 0
	}
	return p.Load(), p.Total()
}

// WorkerStates returns the lifecycle stage of every started worker.
func (c *Coordinator) WorkerStates() []WorkerState {
	ws := c.workers.Load()
	if ws == nil {
		return nil
	}
	states := make([]WorkerState, len(*ws))
	for i, w := range *ws {
		states[i] = w.State()
	}
	return states
}

func (c *Coordinator) progressEvent(event ProgressEvent) {
	if c.onProgress != nil {
		c.onProgress(event)
	}
}
