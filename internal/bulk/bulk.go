// Package bulk runs whole-folder processing: enumerate eligible files, push
// them through the engine on a bounded worker pool, and expose live progress.
// The pool is shared across folders so concurrent bulk runs never exceed the
// configured worker count in total. Job state is written through to the
// store on every counter change, which is what makes progress restart-safe.
package bulk

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"shelve/internal/engine"
	"shelve/internal/logging"
	"shelve/internal/settings"
	"shelve/internal/store"
)

// ErrAlreadyProcessing is returned when a folder already has a live bulk run.
var ErrAlreadyProcessing = errors.New("folder already being processed")

// ErrNoJob is returned when progress is requested for a folder with no
// pollable job.
var ErrNoJob = errors.New("no job for folder")

// Summary is the outcome of a finished synchronous run. Processed counts
// only files that landed in a category destination; low-confidence and
// ignored files are reported in their own counters.
type Summary struct {
	FileCount     int
	Processed     int
	Failed        int
	LowConfidence int
	Ignored       int
}

// Progress is a point-in-time snapshot of a job. Counters always satisfy
// Completed + Failed + InProgress <= Total, with equality only if every file
// has been picked up.
type Progress struct {
	JobID      string
	FolderID   int64
	Status     store.JobStatus
	Total      int
	Completed  int
	Failed     int
	InProgress int
	Error      string
}

// Processor coordinates bulk runs across folders.
type Processor struct {
	store     *store.Store
	engine    *engine.Engine
	holder    *settings.Holder
	sem       chan struct{}
	retention time.Duration
	logger    *slog.Logger

	mu   sync.Mutex
	jobs map[int64]*job
}

type job struct {
	id       string
	folderID int64
	cancel   context.CancelFunc
	done     chan struct{}

	mu            sync.Mutex
	status        store.JobStatus
	total         int
	completed     int
	moved         int
	failed        int
	inProgress    int
	lowConfidence int
	ignored       int
	errMessage    string
	startedAt     time.Time
	finishedAt    *time.Time
}

// NewProcessor builds a processor with the given shared worker pool width.
func NewProcessor(st *store.Store, eng *engine.Engine, holder *settings.Holder, workers int, retention time.Duration, logger *slog.Logger) *Processor {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Processor{
		store:     st,
		engine:    eng,
		holder:    holder,
		sem:       make(chan struct{}, workers),
		retention: retention,
		logger:    logger.With(logging.String(logging.FieldComponent, "bulk")),
		jobs:      make(map[int64]*job),
	}
}

// RunSync processes every eligible file in the folder and blocks until the
// run finishes, returning its summary.
func (p *Processor) RunSync(ctx context.Context, folderID int64) (*Summary, error) {
	j, err := p.start(ctx, folderID)
	if err != nil {
		return nil, err
	}
	select {
	case <-j.done:
	case <-ctx.Done():
		j.cancel()
		<-j.done
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return &Summary{
		FileCount:     j.total,
		Processed:     j.moved,
		Failed:        j.failed,
		LowConfidence: j.lowConfidence,
		Ignored:       j.ignored,
	}, nil
}

// RunAsync starts a run in the background and returns its job id. Progress
// is polled separately.
func (p *Processor) RunAsync(ctx context.Context, folderID int64) (string, error) {
	j, err := p.start(ctx, folderID)
	if err != nil {
		return "", err
	}
	return j.id, nil
}

// Progress returns the live snapshot for a folder's job, falling back to
// the persisted row when the in-memory job is gone but not yet archived.
func (p *Processor) Progress(folderID int64) (*Progress, error) {
	p.mu.Lock()
	j, ok := p.jobs[folderID]
	p.mu.Unlock()
	if ok {
		snapshot := j.snapshot()
		return &snapshot, nil
	}

	persisted, err := p.store.ActiveJobForFolder(context.Background(), folderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoJob
		}
		return nil, err
	}
	return &Progress{
		JobID:      persisted.ID,
		FolderID:   persisted.FolderID,
		Status:     persisted.Status,
		Total:      persisted.Total,
		Completed:  persisted.Completed,
		Failed:     persisted.Failed,
		InProgress: persisted.InProgress,
		Error:      persisted.ErrorMessage,
	}, nil
}

// Cancel aborts a folder's in-flight run. Files not yet picked up are
// abandoned and counted as failed; workers finish the file they hold.
func (p *Processor) Cancel(folderID int64) error {
	p.mu.Lock()
	j, ok := p.jobs[folderID]
	p.mu.Unlock()
	if !ok {
		return ErrNoJob
	}
	j.mu.Lock()
	terminal := j.status.Terminal()
	j.mu.Unlock()
	if terminal {
		return ErrNoJob
	}
	j.cancel()
	return nil
}

func (p *Processor) start(ctx context.Context, folderID int64) (*job, error) {
	folder, err := p.store.FolderByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	files, err := p.enumerate(folder.Path)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	if existing, ok := p.jobs[folderID]; ok {
		existing.mu.Lock()
		live := !existing.status.Terminal()
		existing.mu.Unlock()
		if live {
			p.mu.Unlock()
			return nil, ErrAlreadyProcessing
		}
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	j := &job{
		id:        uuid.NewString(),
		folderID:  folderID,
		cancel:    cancel,
		done:      make(chan struct{}),
		status:    store.JobRunning,
		total:     len(files),
		startedAt: time.Now(),
	}
	p.jobs[folderID] = j
	p.mu.Unlock()

	p.persist(j)
	p.logger.Info("bulk run started",
		logging.Int64(logging.FieldFolderID, folderID),
		logging.String(logging.FieldJobID, j.id),
		logging.Int("files", len(files)))

	go p.run(runCtx, j, folderID, files)
	return j, nil
}

func (p *Processor) run(ctx context.Context, j *job, folderID int64, files []string) {
	defer close(j.done)

	var wg sync.WaitGroup
	cancelled := false
	for _, path := range files {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		select {
		case p.sem <- struct{}{}:
		case <-ctx.Done():
			cancelled = true
		}
		if cancelled {
			break
		}

		j.mu.Lock()
		j.inProgress++
		j.mu.Unlock()
		p.persist(j)

		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			defer func() { <-p.sem }()
			// Workers finish the file they hold even when the job is
			// cancelled; only queued files are abandoned.
			result := p.engine.ProcessFile(context.WithoutCancel(ctx), folderID, path)
			j.mu.Lock()
			j.inProgress--
			switch result.Status {
			case engine.StatusMoved:
				j.completed++
				j.moved++
			case engine.StatusFailed:
				j.failed++
			case engine.StatusIgnored:
				j.completed++
				j.ignored++
			default:
				j.completed++
				j.lowConfidence++
			}
			j.mu.Unlock()
			p.persist(j)
		}(path)
	}
	wg.Wait()

	j.mu.Lock()
	if cancelled {
		// Abandoned files count as failed so the counters still add up
		// to the announced total.
		j.failed += j.total - j.completed - j.failed
		j.status = store.JobCancelled
		j.errMessage = "cancelled"
	} else {
		j.status = store.JobCompleted
	}
	now := time.Now()
	j.finishedAt = &now
	j.mu.Unlock()
	p.persist(j)

	p.logger.Info("bulk run finished",
		logging.Int64(logging.FieldFolderID, folderID),
		logging.String(logging.FieldJobID, j.id),
		logging.String("status", string(j.status)))

	time.AfterFunc(p.retention, func() { p.archive(j, folderID) })
}

func (p *Processor) archive(j *job, folderID int64) {
	if err := p.store.ArchiveJob(context.Background(), j.id); err != nil {
		p.logger.Warn("archive job", logging.String(logging.FieldJobID, j.id), logging.Error(err))
	}
	p.mu.Lock()
	if current, ok := p.jobs[folderID]; ok && current == j {
		delete(p.jobs, folderID)
	}
	p.mu.Unlock()
}

// enumerate lists the files a bulk run will process, applying the hidden and
// size rules up front so the announced total matches what the engine will
// actually attempt.
func (p *Processor) enumerate(dir string) ([]string, error) {
	cfg := p.holder.Current()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if cfg.SkipHiddenFiles && strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if info, err := entry.Info(); err != nil || info.Size() > cfg.MaxFileSize {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	return files, nil
}

func (j *job) snapshot() Progress {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Progress{
		JobID:      j.id,
		FolderID:   j.folderID,
		Status:     j.status,
		Total:      j.total,
		Completed:  j.completed,
		Failed:     j.failed,
		InProgress: j.inProgress,
		Error:      j.errMessage,
	}
}

func (p *Processor) persist(j *job) {
	j.mu.Lock()
	row := &store.Job{
		ID:           j.id,
		FolderID:     j.folderID,
		Status:       j.status,
		Total:        j.total,
		Completed:    j.completed,
		Failed:       j.failed,
		InProgress:   j.inProgress,
		ErrorMessage: j.errMessage,
		StartedAt:    j.startedAt,
		FinishedAt:   j.finishedAt,
	}
	j.mu.Unlock()
	if err := p.store.SaveJob(context.Background(), row); err != nil {
		p.logger.Warn("persist job", logging.String(logging.FieldJobID, j.id), logging.Error(err))
	}
}
