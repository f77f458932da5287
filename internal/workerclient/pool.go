package workerclient

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/five82/grav1go/internal/config"
	"github.com/five82/grav1go/internal/logging"
	"github.com/five82/grav1go/internal/mediautil"
)

// slot tracks one encode goroutine's live state, read by Pool.shrink
// to pick the least-disruptive goroutine to retire when the operator
// asks for fewer workers.
type slot struct {
	id       int
	stop     chan struct{}
	mu       sync.Mutex
	hasPipe  bool // an encoder subprocess is currently running
	hasJob   bool // a job is checked out, even before the subprocess starts
	progress float64
}

func (s *slot) snapshot() (hasPipe, hasJob bool, progress float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasPipe, s.hasJob, s.progress
}

func (s *slot) set(hasPipe, hasJob bool, progress float64) {
	s.mu.Lock()
	s.hasPipe = hasPipe
	s.hasJob = hasJob
	s.progress = progress
	s.mu.Unlock()
}

// EncodeFunc abstracts mediautil.RunTwoPassEncode so tests can fake it.
type EncodeFunc func(ctx context.Context, spec mediautil.EncodeSpec, onProgress mediautil.ProgressFunc) error

// jobCanceler is the subset of *Client a Pool needs to release a held
// job back to the coordinator without completing it — broken out so
// tests can fake the coordinator the same way jobFetcher/jobUploader do.
type jobCanceler interface {
	CancelJob(ctx context.Context, client, projectID, scene string) error
	FetchGrainTable(ctx context.Context, projectID, scene, destPath string) error
}

// Pool runs a dynamically resizable set of encode goroutines pulling
// from a Downloader's job channel and handing finished scenes to an
// Uploader. Mirrors the teacher's worker+collector shape in
// internal/encode.EncodeAll, generalized so the worker count can grow
// or shrink at runtime from the terminal keypress menu.
type Pool struct {
	cfg            config.WorkerConfig
	clientID       string
	down           *Downloader
	upload         *Uploader
	canceler       jobCanceler
	localVersions  map[config.EncoderKind]string
	encode         EncodeFunc
	logger         *logging.Logger
	onFinish       func(FinishOutcome)
	onFatalVersion func(reason string)

	mu     sync.Mutex
	slots  map[int]*slot
	nextID int
	wg     sync.WaitGroup
}

// NewPool builds a Pool with no running slots; call AddWorker to
// start some. localVersions is the worker's own detected
// aomenc/vpxenc version per encoder kind, checked against each job's
// Version at dispatch time (spec §4.5's encoder version check);
// onFatalVersion is invoked once, on the first mismatch, so the caller
// can shut the whole worker down rather than just failing one job.
func NewPool(cfg config.WorkerConfig, down *Downloader, upload *Uploader, canceler jobCanceler, clientID string, localVersions map[config.EncoderKind]string, logger *logging.Logger, onFinish func(FinishOutcome), onFatalVersion func(reason string)) *Pool {
	return &Pool{
		cfg:            cfg,
		clientID:       clientID,
		down:           down,
		upload:         upload,
		canceler:       canceler,
		localVersions:  localVersions,
		encode:         mediautil.RunTwoPassEncode,
		logger:         logger,
		onFinish:       onFinish,
		onFatalVersion: onFatalVersion,
		slots:          make(map[int]*slot),
	}
}

// ActiveWorkers returns the current goroutine count.
func (p *Pool) ActiveWorkers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}

// AddWorker starts one additional encode goroutine.
func (p *Pool) AddWorker(ctx context.Context) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	s := &slot{id: id, stop: make(chan struct{})}
	p.slots[id] = s
	p.mu.Unlock()

	p.wg.Add(1)
	go p.run(ctx, s)
}

// RemoveWorker stops the single least-disruptive goroutine: ranked
// ascending by (has an open encoder pipe, progress fraction, has a
// checked-out job), so an idle slot goes before one mid-encode, and
// among mid-encode slots the one with the least progress goes first
// and the one closest to done stays alive longest.
func (p *Pool) RemoveWorker() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.slots) == 0 {
		return false
	}

	type candidate struct {
		s                           *slot
		hasPipe, hasJob             bool
		progress                    float64
	}
	candidates := make([]candidate, 0, len(p.slots))
	for _, s := range p.slots {
		hasPipe, hasJob, progress := s.snapshot()
		candidates = append(candidates, candidate{s: s, hasPipe: hasPipe, hasJob: hasJob, progress: progress})
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.hasPipe != b.hasPipe {
			return !a.hasPipe
		}
		if a.progress != b.progress {
			return a.progress < b.progress
		}
		return !a.hasJob
	})

	chosen := candidates[0].s
	delete(p.slots, chosen.id)
	close(chosen.stop)
	return true
}

// Wait blocks until every running slot has exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, s *slot) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case job, ok := <-p.down.Jobs():
			if !ok {
				return
			}
			// jobCtx cascades this slot's stop signal into the
			// in-flight encode/upload, so RemoveWorker killing a
			// mid-encode slot actually tears down its child process
			// instead of leaving it running unobserved.
			jobCtx, jobCancel := context.WithCancel(ctx)
			done := make(chan struct{})
			go func() {
				select {
				case <-s.stop:
					jobCancel()
				case <-done:
				}
			}()
			p.processJob(jobCtx, s, job)
			close(done)
			jobCancel()
		}
	}
}

func (p *Pool) processJob(ctx context.Context, s *slot, job *Job) {
	ref := SceneRef{ProjectID: job.ProjectID, Scene: job.Scene}

	if want := p.localVersions[job.Encoder]; job.Version != want {
		if p.logger != nil {
			p.logger.Error(logging.CategoryEncode, "bad %s encoder version for %s/%s: coordinator wants %q, have %q",
				job.Encoder, job.ProjectID, job.Scene, job.Version, want)
		}
		p.cancelHeldJob(ctx, ref)
		p.down.Release(ref)
		if p.onFatalVersion != nil {
			p.onFatalVersion(fmt.Sprintf("bad %s encoder version: have %q, coordinator wants %q", job.Encoder, want, job.Version))
		}
		return
	}

	s.set(false, true, 0)
	defer s.set(false, false, 0)

	outPath := job.SegmentPath + ".encoded.ivf"
	var grainTablePath string
	if job.Grain {
		path := job.SegmentPath + ".grain.table"
		if err := p.canceler.FetchGrainTable(ctx, job.ProjectID, job.Scene, path); err != nil {
			if p.logger != nil {
				p.logger.Error(logging.CategoryEncode, "fetch grain table %s/%s: %v", job.ProjectID, job.Scene, err)
			}
			p.cancelHeldJob(ctx, ref)
			p.down.Release(ref)
			return
		}
		grainTablePath = path
	}

	spec := mediautil.EncodeSpec{
		Encoder:        job.Encoder,
		FFmpegPath:     p.cfg.FfmpegPath,
		AomencPath:     p.cfg.AomencPath,
		VpxencPath:     p.cfg.VpxencPath,
		InputSegment:   job.SegmentPath,
		OutputPath:     outPath,
		Start:          uint64(job.Start),
		Frames:         uint64(job.Frames),
		Threads:        p.cfg.Threads,
		EncoderArgs:    splitEncoderArgs(job.EncoderParams),
		FFmpegFilter:   job.FFmpegParams,
		VMAFModelPath:  p.cfg.VMAFModelPath,
		GrainTablePath: grainTablePath,
	}

	s.set(true, true, 0)
	err := p.encode(ctx, spec, func(tick mediautil.PassProgress) {
		if job.Frames == 0 {
			return
		}
		frac := float64(tick.Frame) / float64(job.Frames)
		if tick.Pass == 2 {
			s.set(true, true, 0.5+frac/2)
		} else {
			s.set(true, true, frac/2)
		}
	})
	s.set(false, true, 1)

	if err != nil {
		if p.logger != nil {
			p.logger.Error(logging.CategoryEncode, "encode %s/%s: %v", job.ProjectID, job.Scene, err)
		}
		p.cancelHeldJob(ctx, ref)
		p.down.Release(ref)
		return
	}

	outcome := p.upload.Upload(ctx, job, outPath)
	p.down.Release(ref)
	if p.onFinish != nil {
		p.onFinish(outcome)
	}
}

// cancelHeldJob tells the coordinator this worker is giving up on a
// scene without uploading it (spec §4.5 cancellation: "if a job was
// held, sends a cancel to the coordinator"). Uses a background
// context since the caller's ctx may already be the one that's being
// torn down.
func (p *Pool) cancelHeldJob(ctx context.Context, ref SceneRef) {
	if p.canceler == nil {
		return
	}
	if err := p.canceler.CancelJob(context.WithoutCancel(ctx), p.clientID, ref.ProjectID, ref.Scene); err != nil && p.logger != nil {
		p.logger.Warn(logging.CategoryEncode, "cancel %s/%s: %v", ref.ProjectID, ref.Scene, err)
	}
}

// splitEncoderArgs turns the project's stored encoder-params string
// into an argv-style slice (spec §3 Job.encoder_params: a
// whitespace-separated flag string, e.g. "--cq-level=20 --cpu-used=4").
func splitEncoderArgs(params string) []string {
	return strings.Fields(params)
}
