package extract

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	ioutils "github.com/handiism/xivextract/internal/io"
	"github.com/handiism/xivextract/internal/model"
	"github.com/handiism/xivextract/internal/sqpack"
)

// Reader is an archive handle owned by a single worker.
//
// Read must return an error wrapping sqpack.ErrNotFound when the archive
// holds no entry for the path. Implementations need not be safe for
// concurrent use.
type Reader interface {
	Read(path string) ([]byte, error)
	Close() error
}

// Opener opens a new, independent Reader. It is called once per worker.
type Opener func() (Reader, error)

// Writer persists extracted bytes and returns the local path written.
type Writer interface {
	Write(ctx context.Context, virtualPath string, data []byte) (string, error)
}

// SQPackOpener opens an sqpack.Reader on installPath for every worker.
func SQPackOpener(installPath string, opts ...sqpack.Option) Opener {
	return func() (Reader, error) {
		return sqpack.Open(installPath, opts...)
	}
}

// WorkerState is the lifecycle stage of one worker.
type WorkerState int32

const (
	WorkerIdle WorkerState = iota
	WorkerRunning
	WorkerDone
)

func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "idle"
	case WorkerRunning:
		return "running"
	case WorkerDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Stats tallies outcomes for a worker or a whole run.
type Stats struct {
	Extracted  int
	NotFound   int
	ReadFailed int
	Rejected   int
	Bytes      int64
}

func (s *Stats) add(o Stats) {
	s.Extracted += o.Extracted
	s.NotFound += o.NotFound
	s.ReadFailed += o.ReadFailed
	s.Rejected += o.Rejected
	s.Bytes += o.Bytes
}

func (s *Stats) record(o model.Outcome) {
	switch o.Kind {
	case model.OutcomeExtracted:
		s.Extracted++
		s.Bytes += int64(o.Bytes)
	case model.OutcomeNotFound:
		s.NotFound++
	case model.OutcomeReadFailed:
		s.ReadFailed++
	case model.OutcomeRejected:
		s.Rejected++
	}
}

// worker processes one chunk in order with a private Reader.
type worker struct {
	chunk    model.Chunk
	open     Opener
	writer   Writer
	progress *Progress
	emit     func(ProgressEvent)

	state atomic.Int32
	stats Stats
}

func (w *worker) State() WorkerState {
	return WorkerState(w.state.Load())
}

// run walks the chunk. It returns nil once every path is handled, a
// *WriteError on the first write failure, or the context error.
func (w *worker) run(ctx context.Context) error {
	w.state.Store(int32(WorkerRunning))
	defer w.state.Store(int32(WorkerDone))

	if w.chunk.Empty() {
		return nil
	}

	reader, err := w.open()
	if err != nil {
		return fmt.Errorf("worker %d: %w: %w", w.chunk.Index, ErrArchiveOpen, err)
	}
	defer reader.Close()

	w.emit(ProgressEvent{
		Message: fmt.Sprintf("Worker %d: %d paths (%d..%d)", w.chunk.Index, w.chunk.Len(), w.chunk.Start, w.chunk.End()),
		Level:   LevelVerbose,
	})

	for _, path := range w.chunk.Paths {
		if err := ctx.Err(); err != nil {
			return err
		}

		outcome := w.extract(ctx, reader, path)
		w.stats.record(outcome)

		if outcome.Fatal() {
			werr := &WriteError{
				Worker:    w.chunk.Index,
				Path:      path,
				LocalPath: outcome.LocalPath,
				Err:       outcome.Err,
			}
			w.emit(ProgressEvent{Message: werr.Error(), Level: LevelError})
			return werr
		}

		switch outcome.Kind {
		case model.OutcomeExtracted:
			if done, report := w.progress.Add(); report {
				w.emit(ProgressEvent{Message: format(done, w.progress.Total()), Level: LevelInfo})
			}
		case model.OutcomeReadFailed:
			w.emit(ProgressEvent{Message: fmt.Sprintf("Skipping %s: %v", path, outcome.Err), Level: LevelWarning})
		case model.OutcomeRejected:
			w.emit(ProgressEvent{Message: fmt.Sprintf("Refusing %s: %v", path, outcome.Err), Level: LevelWarning})
		}
	}

	w.emit(ProgressEvent{
		Message: fmt.Sprintf("Worker %d finished: %d extracted, %d missing", w.chunk.Index, w.stats.Extracted, w.stats.NotFound),
		Level:   LevelVerbose,
	})
	return nil
}

// extract attempts a single path.
func (w *worker) extract(ctx context.Context, reader Reader, path string) model.Outcome {
	data, err := reader.Read(path)
	if err != nil {
		if errors.Is(err, sqpack.ErrNotFound) {
			return model.Outcome{Path: path, Kind: model.OutcomeNotFound, Err: err}
		}
		return model.Outcome{Path: path, Kind: model.OutcomeReadFailed, Err: err}
	}

	local, err := w.writer.Write(ctx, path, data)
	if err != nil {
		if errors.Is(err, ioutils.ErrUnsafePath) {
			return model.Outcome{Path: path, Kind: model.OutcomeRejected, Err: err}
		}
		return model.Outcome{Path: path, Kind: model.OutcomeWriteFailed, LocalPath: local, Err: err}
	}

	return model.Outcome{Path: path, Kind: model.OutcomeExtracted, Bytes: len(data), LocalPath: local}
}
