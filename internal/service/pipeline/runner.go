// Package pipeline chains the segmenter, aligner, splitter and planner into
// tracked runs that log, record metrics, publish events and persist artifacts.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"narration-timeline-service/internal/artifact"
	"narration-timeline-service/internal/errs"
	"narration-timeline-service/internal/models"
	"narration-timeline-service/internal/observability/logging"
	"narration-timeline-service/internal/observability/metrics"
	"narration-timeline-service/internal/schema"
	"narration-timeline-service/internal/service/audio"
	"narration-timeline-service/internal/service/slides"
	"narration-timeline-service/internal/service/timeline"
	"narration-timeline-service/internal/service/transcript"
)

// Run kinds, used as metric labels.
const (
	KindSplit = "split"
	KindCSV   = "csv"
	KindPlan  = "plan"
)

// Stage names.
const (
	StageDecode   = "decode"
	StageSplit    = "split"
	StageRows     = "rows"
	StageProbe    = "probe"
	StageAlign    = "align"
	StageSlides   = "slides"
	StageScript   = "script"
	StagePlan     = "plan"
	StageValidate = "validate"
	StagePublish  = "publish"
	StageStore    = "store"
)

// EventPublisher publishes a run event. *events.Publisher satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, runID, eventType string, payload any) error
}

// Deps are the collaborators of a Runner. Publisher and Store are optional.
type Deps struct {
	Segmenter audio.Config
	Aligner   *transcript.Aligner
	Splitter  *slides.Splitter
	Planner   *timeline.Planner
	Validator *schema.Validator
	Publisher EventPublisher
	Store     *artifact.Store
}

// Runner executes pipeline jobs. Each call is an independent run.
type Runner struct {
	deps  Deps
	newID func() string
}

// NewRunner returns a Runner.
func NewRunner(deps Deps) *Runner {
	if deps.Validator == nil {
		deps.Validator = schema.New()
	}
	return &Runner{deps: deps, newID: func() string { return xid.New().String() }}
}

// SplitJob splits one long recording at silences.
type SplitJob struct {
	InputPath string
	OutDir    string
	DryRun    bool
}

// CSVJob aligns a speaker/text CSV against per-row clips in AudioDir or a
// single recording at AudioPath, then packs slides. With neither, timings
// are estimated from text length.
type CSVJob struct {
	CSVPath   string
	AudioDir  string
	AudioPath string
	Title     string
	Slides    slides.SplitOptions
}

// PlanJob lays Script (or the script at ScriptPath) out against the audio
// at AudioPath, or AudioDuration seconds when no path is given.
type PlanJob struct {
	Script        *models.Script
	ScriptPath    string
	AudioPath     string
	AudioDuration float64
	Notes         string
}

// Result is the outcome of a run.
type Result struct {
	RunID      string
	State      State
	Split      *models.SplitResult
	Transcript *models.TranscriptInfo
	Slides     []models.SlideContent
	Plan       *models.TimelinePlan
	Artifacts  map[string]string
}

type run struct {
	*Runner
	ctx    context.Context
	kind   string
	lc     *Lifecycle
	log    zerolog.Logger
	result *Result
}

func (r *Runner) begin(ctx context.Context, kind string) *run {
	id := r.newID()
	metrics.DefaultMetrics.RecordRunStart(kind)
	lg := logging.WithRun(id)
	lg.Info().Str("kind", kind).Msg("Run started")
	return &run{
		Runner: r,
		ctx:    ctx,
		kind:   kind,
		lc:     NewLifecycle(id),
		log:    lg,
		result: &Result{RunID: id, Artifacts: map[string]string{}},
	}
}

// stage runs fn as the named stage, timing it and failing the run on error.
func (rn *run) stage(name string, fn func() error) error {
	if err := rn.ctx.Err(); err != nil {
		return rn.fail(name, err)
	}
	if err := rn.lc.Enter(name); err != nil {
		return err
	}
	start := time.Now()
	err := fn()
	metrics.DefaultMetrics.RecordStage(name, time.Since(start).Seconds())
	if err != nil {
		return rn.fail(name, err)
	}
	return nil
}

func (rn *run) fail(stage string, err error) error {
	wrapped := fmt.Errorf("%s: %w", stage, err)
	if !rn.lc.Fail(wrapped) {
		return wrapped
	}
	kind := errs.Kind(err)
	metrics.DefaultMetrics.RecordRunFailed(stage, kind)
	metrics.DefaultMetrics.RecordRunEnd()
	rn.result.State = StateFailed
	rn.log.Error().Err(err).Str("stage", stage).Str("errorKind", kind).Msg("Run failed")

	// The failure event is best effort; the caller already has the error.
	if rn.deps.Publisher != nil {
		failure := models.RunFailure{Stage: stage, Kind: kind, Error: err.Error()}
		if perr := rn.deps.Publisher.Publish(context.WithoutCancel(rn.ctx), rn.lc.RunId(), models.EventRunFailed, failure); perr != nil {
			rn.log.Warn().Err(perr).Msg("Failed to publish failure event")
		}
	}
	return wrapped
}

func (rn *run) publish(eventType string, payload any) error {
	if rn.deps.Publisher == nil {
		return nil
	}
	return rn.stage(StagePublish, func() error {
		return rn.deps.Publisher.Publish(rn.ctx, rn.lc.RunId(), eventType, payload)
	})
}

func (rn *run) store(name string, v any) error {
	if rn.deps.Store == nil {
		return nil
	}
	return rn.stage(StageStore, func() error {
		path, err := rn.deps.Store.Write(rn.lc.RunId(), name, v)
		if err != nil {
			return err
		}
		rn.result.Artifacts[name] = path
		return nil
	})
}

func (rn *run) finish() (*Result, error) {
	if err := rn.lc.Complete(); err != nil {
		return nil, err
	}
	metrics.DefaultMetrics.RecordRunEnd()
	rn.result.State = StateCompleted
	rn.log.Info().Str("kind", rn.kind).Int("artifactCount", len(rn.result.Artifacts)).Msg("Run completed")
	return rn.result, nil
}

// failed returns the partially filled result alongside err.
func (rn *run) failed(err error) (*Result, error) {
	rn.result.State = rn.lc.State()
	return rn.result, err
}

// RunSplit decodes job.InputPath and writes numbered segments to job.OutDir.
func (r *Runner) RunSplit(ctx context.Context, job SplitJob) (*Result, error) {
	rn := r.begin(ctx, KindSplit)

	cfg := r.deps.Segmenter
	cfg.DryRun = cfg.DryRun || job.DryRun

	var buf audio.Buffer
	if err := rn.stage(StageDecode, func() (err error) {
		buf, err = audio.Decode(job.InputPath)
		return err
	}); err != nil {
		return rn.failed(err)
	}

	if err := rn.stage(StageSplit, func() error {
		seg, err := audio.NewSegmenter(cfg)
		if err != nil {
			return err
		}
		rn.result.Split, err = seg.Split(buf, job.OutDir)
		return err
	}); err != nil {
		return rn.failed(err)
	}

	if err := rn.stage(StageValidate, func() error {
		return r.deps.Validator.ValidateSplit(*rn.result.Split)
	}); err != nil {
		return rn.failed(err)
	}
	if err := rn.publish(models.EventAudioSegmented, rn.result.Split); err != nil {
		return rn.failed(err)
	}
	if err := rn.store(artifact.DocSegments, rn.result.Split); err != nil {
		return rn.failed(err)
	}
	return rn.finish()
}

// RunCSV builds a transcript and slides from a CSV script.
func (r *Runner) RunCSV(ctx context.Context, job CSVJob) (*Result, error) {
	rn := r.begin(ctx, KindCSV)

	var rows []transcript.Row
	if err := rn.stage(StageRows, func() (err error) {
		rows, err = transcript.LoadRows(job.CSVPath)
		return err
	}); err != nil {
		return rn.failed(err)
	}

	src := transcript.Source{Title: job.Title}
	if src.Title == "" {
		src.Title = transcript.TitleFromPath(job.CSVPath)
	}
	if err := rn.stage(StageProbe, func() error {
		switch {
		case job.AudioDir != "":
			clips, err := audio.ProbeDir(rn.ctx, job.AudioDir)
			if err != nil {
				return err
			}
			src.PerRow = clips
			if len(rows) > 0 && len(clips) != len(rows) {
				// Reported here so the message names the directory.
				return fmt.Errorf("%w: %d rows, %d clips in %s", errs.ErrAlignmentMismatch, len(rows), len(clips), job.AudioDir)
			}
		case job.AudioPath != "":
			info, err := audio.Probe(job.AudioPath)
			if err != nil {
				return err
			}
			src.Total = &info
		}
		return nil
	}); err != nil {
		return rn.failed(err)
	}

	if err := rn.stage(StageAlign, func() (err error) {
		rn.result.Transcript, err = r.deps.Aligner.Align(rows, src)
		if err != nil {
			return err
		}
		return r.deps.Validator.ValidateTranscript(*rn.result.Transcript)
	}); err != nil {
		return rn.failed(err)
	}

	if err := rn.stage(StageSlides, func() (err error) {
		rn.result.Slides, err = r.deps.Splitter.Split(*rn.result.Transcript, job.Slides)
		if err != nil {
			return err
		}
		return r.deps.Validator.ValidateSlides(rn.result.Slides, *rn.result.Transcript)
	}); err != nil {
		return rn.failed(err)
	}

	if err := rn.publish(models.EventTranscriptAligned, rn.result.Transcript); err != nil {
		return rn.failed(err)
	}
	if err := rn.publish(models.EventSlidesSplit, rn.result.Slides); err != nil {
		return rn.failed(err)
	}
	if err := rn.store(artifact.DocTranscript, rn.result.Transcript); err != nil {
		return rn.failed(err)
	}
	if err := rn.store(artifact.DocSlides, rn.result.Slides); err != nil {
		return rn.failed(err)
	}
	return rn.finish()
}

// RunPlan builds a timeline plan.
func (r *Runner) RunPlan(ctx context.Context, job PlanJob) (*Result, error) {
	rn := r.begin(ctx, KindPlan)

	var script models.Script
	if err := rn.stage(StageScript, func() (err error) {
		switch {
		case job.Script != nil:
			script = *job.Script
		case job.ScriptPath != "":
			script, err = timeline.LoadScript(job.ScriptPath)
		}
		return err
	}); err != nil {
		return rn.failed(err)
	}

	duration := job.AudioDuration
	if job.AudioPath != "" {
		if err := rn.stage(StageProbe, func() error {
			info, err := audio.Probe(job.AudioPath)
			duration = info.Duration
			return err
		}); err != nil {
			return rn.failed(err)
		}
	}

	if err := rn.stage(StagePlan, func() (err error) {
		rn.result.Plan, err = r.deps.Planner.Plan(script, duration, job.Notes)
		if err != nil {
			return err
		}
		return r.deps.Validator.ValidatePlan(*rn.result.Plan)
	}); err != nil {
		return rn.failed(err)
	}

	if err := rn.publish(models.EventPlanCreated, rn.result.Plan); err != nil {
		return rn.failed(err)
	}
	if err := rn.store(artifact.DocPlan, rn.result.Plan); err != nil {
		return rn.failed(err)
	}
	return rn.finish()
}
