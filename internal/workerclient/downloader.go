package workerclient

import (
	"context"
	"sync"
	"time"

	"github.com/five82/grav1go/internal/config"
	"github.com/five82/grav1go/internal/logging"
)

// heldSet tracks scenes this worker currently has in flight (queued,
// encoding, or uploading), so the downloader never re-fetches a scene
// it is already holding.
type heldSet struct {
	mu   sync.Mutex
	held map[SceneRef]struct{}
}

func newHeldSet() *heldSet {
	return &heldSet{held: make(map[SceneRef]struct{})}
}

func (h *heldSet) add(ref SceneRef) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.held[ref] = struct{}{}
}

func (h *heldSet) remove(ref SceneRef) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.held, ref)
}

func (h *heldSet) snapshot() []SceneRef {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]SceneRef, 0, len(h.held))
	for ref := range h.held {
		out = append(out, ref)
	}
	return out
}

// Downloader runs one goroutine that keeps a bounded prefetch queue of
// downloaded-but-not-yet-encoded jobs full, polling get_job on a
// backoff when the coordinator has nothing to hand out. Suspend/Resume
// let the pool pause prefetching without tearing the goroutine down,
// built on a condition variable the way the teacher's codebase guards
// shared mutable state with sync.Mutex rather than ad hoc channels.
// jobFetcher is the subset of *Client the downloader needs, broken out
// so tests can fake the coordinator.
type jobFetcher interface {
	FetchJob(ctx context.Context, held []SceneRef, destDir string) (*Job, bool, error)
}

type Downloader struct {
	client  jobFetcher
	destDir string
	backoff time.Duration
	logger  *logging.Logger

	held *heldSet
	out  chan *Job

	cond      *sync.Cond
	suspended bool
}

// NewDownloader builds a Downloader with a prefetch queue of the given
// capacity (0 disables prefetch: the channel holds at most one job).
func NewDownloader(client jobFetcher, destDir string, queue int, logger *logging.Logger) *Downloader {
	capacity := queue
	if capacity < 1 {
		capacity = 1
	}
	return &Downloader{
		client:  client,
		destDir: destDir,
		backoff: time.Duration(config.DefaultJobFetchBackoffSecs) * time.Second,
		logger:  logger,
		held:    newHeldSet(),
		out:     make(chan *Job, capacity),
		cond:    sync.NewCond(&sync.Mutex{}),
	}
}

// Jobs returns the channel downloaded jobs arrive on.
func (d *Downloader) Jobs() <-chan *Job {
	return d.out
}

// Release marks a job's scene no longer held, called once its upload
// is verified (saved) or the worker gives up on it.
func (d *Downloader) Release(ref SceneRef) {
	d.held.remove(ref)
}

// Suspend pauses prefetching until Resume is called. Jobs already
// queued in the channel are left for the pool to drain.
func (d *Downloader) Suspend() {
	d.cond.L.Lock()
	d.suspended = true
	d.cond.L.Unlock()
}

// Resume wakes a suspended downloader.
func (d *Downloader) Resume() {
	d.cond.L.Lock()
	d.suspended = false
	d.cond.L.Unlock()
	d.cond.Broadcast()
}

// Run drains the coordinator's dispatch until ctx is cancelled. Call
// once, typically in a goroutine.
func (d *Downloader) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		d.cond.L.Lock()
		for d.suspended {
			d.cond.Wait()
			if ctx.Err() != nil {
				d.cond.L.Unlock()
				return
			}
		}
		d.cond.L.Unlock()

		job, ok, err := d.client.FetchJob(ctx, d.held.snapshot(), d.destDir)
		if err != nil {
			if d.logger != nil {
				d.logger.Warn(logging.CategoryWorker, "fetch job: %v", err)
			}
			if !sleepOrDone(ctx, d.backoff) {
				return
			}
			continue
		}
		if !ok {
			if !sleepOrDone(ctx, d.backoff) {
				return
			}
			continue
		}

		d.held.add(SceneRef{ProjectID: job.ProjectID, Scene: job.Scene})
		select {
		case d.out <- job:
		case <-ctx.Done():
			return
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
