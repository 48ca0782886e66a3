// Package api holds the transport-neutral request handling shared by the
// HTTP router and the gRPC server.
package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"narration-timeline-service/internal/app"
	"narration-timeline-service/internal/errs"
	"narration-timeline-service/internal/models"
	"narration-timeline-service/internal/service/pipeline"
	"narration-timeline-service/internal/service/slides"
	"narration-timeline-service/internal/service/transcript"
)

// ErrBadRequest marks a request that is malformed or missing fields.
var ErrBadRequest = errors.New("bad request")

// Kind extends errs.Kind with the request-level kinds.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline_exceeded"
	default:
		return errs.Kind(err)
	}
}

// SplitAudioRequest asks for a silence split of one recording.
type SplitAudioRequest struct {
	InputPath string `json:"input_path"`
	OutDir    string `json:"out_dir"`
	DryRun    bool   `json:"dry_run"`
}

// SplitAudioResponse carries the written segments.
type SplitAudioResponse struct {
	RunID     string              `json:"run_id"`
	Split     *models.SplitResult `json:"split"`
	Artifacts map[string]string   `json:"artifacts,omitempty"`
}

// RowInput is one inline transcript row. Duration is only read when every
// row carries one.
type RowInput struct {
	Speaker  string  `json:"speaker"`
	Text     string  `json:"text"`
	Duration float64 `json:"duration,omitempty"`
}

// SlideOptions overrides the configured slide limits. Zero fields keep the
// configured value; MaxCharsPerSlide 0 means unbounded when set.
type SlideOptions struct {
	MaxCharsPerSlide *int    `json:"max_chars_per_slide,omitempty"`
	MaxSlides        int     `json:"max_slides,omitempty"`
	MaxSlideDuration float64 `json:"max_slide_duration,omitempty"`
	Overflow         string  `json:"overflow,omitempty"`
}

// AlignTranscriptRequest builds a transcript either from a CSV on disk
// (CSVPath with AudioDir or AudioPath) or from inline Rows timed by their
// own durations or by TotalDuration.
type AlignTranscriptRequest struct {
	Title         string        `json:"title"`
	CSVPath       string        `json:"csv_path,omitempty"`
	AudioDir      string        `json:"audio_dir,omitempty"`
	AudioPath     string        `json:"audio_path,omitempty"`
	Rows          []RowInput    `json:"rows,omitempty"`
	TotalDuration float64       `json:"total_duration,omitempty"`
	Slides        *SlideOptions `json:"slides,omitempty"`
}

// AlignTranscriptResponse carries the transcript and, for CSV runs or when
// slide options were given, its slides.
type AlignTranscriptResponse struct {
	RunID      string                 `json:"run_id,omitempty"`
	Transcript *models.TranscriptInfo `json:"transcript"`
	Slides     []models.SlideContent  `json:"slides,omitempty"`
	Artifacts  map[string]string      `json:"artifacts,omitempty"`
}

// SplitSlidesRequest packs an existing transcript into slides.
type SplitSlidesRequest struct {
	Transcript models.TranscriptInfo `json:"transcript"`
	Options    *SlideOptions         `json:"options,omitempty"`
}

// SplitSlidesResponse carries the slides.
type SplitSlidesResponse struct {
	Slides []models.SlideContent `json:"slides"`
}

// PlanTimelineRequest lays a script out against measured or given audio.
type PlanTimelineRequest struct {
	Script        *models.Script `json:"script,omitempty"`
	ScriptPath    string         `json:"script_path,omitempty"`
	AudioPath     string         `json:"audio_path,omitempty"`
	AudioDuration float64        `json:"audio_duration"`
	Notes         string         `json:"notes,omitempty"`
}

// PlanTimelineResponse carries the plan.
type PlanTimelineResponse struct {
	RunID     string               `json:"run_id"`
	Plan      *models.TimelinePlan `json:"plan"`
	Artifacts map[string]string    `json:"artifacts,omitempty"`
}

// Service executes requests against the application's components.
type Service struct {
	app *app.Application
}

// NewService returns a Service over application.
func NewService(application *app.Application) *Service {
	return &Service{app: application}
}

// Ready reports application readiness.
func (s *Service) Ready() bool {
	return s.app.Ready()
}

// SplitAudio runs a split job.
func (s *Service) SplitAudio(ctx context.Context, req SplitAudioRequest) (*SplitAudioResponse, error) {
	if req.InputPath == "" {
		return nil, fmt.Errorf("%w: input_path is required", ErrBadRequest)
	}
	if req.OutDir == "" && !req.DryRun {
		return nil, fmt.Errorf("%w: out_dir is required unless dry_run is set", ErrBadRequest)
	}
	input, err := s.inputPath("input_path", req.InputPath)
	if err != nil {
		return nil, err
	}
	outDir, err := resolvePath(s.app.Cfg.Service.OutputRoot, "out_dir", req.OutDir)
	if err != nil {
		return nil, err
	}
	res, err := s.app.Runner.RunSplit(ctx, pipeline.SplitJob{
		InputPath: input,
		OutDir:    outDir,
		DryRun:    req.DryRun,
	})
	if err != nil {
		return nil, err
	}
	return &SplitAudioResponse{RunID: res.RunID, Split: res.Split, Artifacts: res.Artifacts}, nil
}

// AlignTranscript builds a transcript from a CSV run or inline rows.
func (s *Service) AlignTranscript(ctx context.Context, req AlignTranscriptRequest) (*AlignTranscriptResponse, error) {
	opts, err := s.slideOptions(req.Slides)
	if err != nil {
		return nil, err
	}

	if req.CSVPath != "" {
		if len(req.Rows) > 0 {
			return nil, fmt.Errorf("%w: csv_path and rows are mutually exclusive", ErrBadRequest)
		}
		job := pipeline.CSVJob{Title: req.Title, Slides: opts}
		if job.CSVPath, err = s.inputPath("csv_path", req.CSVPath); err != nil {
			return nil, err
		}
		if job.AudioDir, err = s.inputPath("audio_dir", req.AudioDir); err != nil {
			return nil, err
		}
		if job.AudioPath, err = s.inputPath("audio_path", req.AudioPath); err != nil {
			return nil, err
		}
		res, err := s.app.Runner.RunCSV(ctx, job)
		if err != nil {
			return nil, err
		}
		return &AlignTranscriptResponse{
			RunID:      res.RunID,
			Transcript: res.Transcript,
			Slides:     res.Slides,
			Artifacts:  res.Artifacts,
		}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := s.alignInline(req)
	if err != nil {
		return nil, err
	}
	if err := s.app.Validator.ValidateTranscript(*info); err != nil {
		return nil, err
	}
	resp := &AlignTranscriptResponse{Transcript: info}
	if req.Slides != nil {
		if resp.Slides, err = s.app.Splitter.Split(*info, opts); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (s *Service) alignInline(req AlignTranscriptRequest) (*models.TranscriptInfo, error) {
	rows := make([]transcript.Row, len(req.Rows))
	perRow := len(req.Rows) > 0
	for i, r := range req.Rows {
		if strings.TrimSpace(r.Text) == "" {
			return nil, fmt.Errorf("%w: row %d has no text", ErrBadRequest, i+1)
		}
		rows[i] = transcript.Row{Index: i + 1, Speaker: r.Speaker, Text: strings.TrimSpace(r.Text)}
		if r.Duration <= 0 {
			perRow = false
		}
	}

	var (
		info *models.TranscriptInfo
		err  error
	)
	if perRow {
		clips := make([]models.AudioInfo, len(req.Rows))
		for i, r := range req.Rows {
			clips[i] = models.AudioInfo{Duration: r.Duration}
		}
		info, err = s.app.Aligner.AlignPerRow(rows, clips)
	} else {
		info, err = s.app.Aligner.AlignAggregate(rows, req.TotalDuration)
	}
	if err != nil {
		return nil, err
	}
	info.Title = req.Title
	return info, nil
}

// SplitSlides packs req.Transcript into slides.
func (s *Service) SplitSlides(ctx context.Context, req SplitSlidesRequest) (*SplitSlidesResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts, err := s.slideOptions(req.Options)
	if err != nil {
		return nil, err
	}
	if err := s.app.Validator.ValidateTranscript(req.Transcript); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	out, err := s.app.Splitter.Split(req.Transcript, opts)
	if err != nil {
		return nil, err
	}
	return &SplitSlidesResponse{Slides: out}, nil
}

// PlanTimeline runs a plan job.
func (s *Service) PlanTimeline(ctx context.Context, req PlanTimelineRequest) (*PlanTimelineResponse, error) {
	if req.Script != nil && req.ScriptPath != "" {
		return nil, fmt.Errorf("%w: script and script_path are mutually exclusive", ErrBadRequest)
	}
	scriptPath, err := s.inputPath("script_path", req.ScriptPath)
	if err != nil {
		return nil, err
	}
	audioPath, err := s.inputPath("audio_path", req.AudioPath)
	if err != nil {
		return nil, err
	}
	res, err := s.app.Runner.RunPlan(ctx, pipeline.PlanJob{
		Script:        req.Script,
		ScriptPath:    scriptPath,
		AudioPath:     audioPath,
		AudioDuration: req.AudioDuration,
		Notes:         req.Notes,
	})
	if err != nil {
		return nil, err
	}
	return &PlanTimelineResponse{RunID: res.RunID, Plan: res.Plan, Artifacts: res.Artifacts}, nil
}

// inputPath confines a path the request reads from to the input root.
func (s *Service) inputPath(field, p string) (string, error) {
	return resolvePath(s.app.Cfg.Service.InputRoot, field, p)
}

func (s *Service) slideOptions(o *SlideOptions) (slides.SplitOptions, error) {
	opts := s.app.SlideOptions()
	if o == nil {
		return opts, nil
	}
	if o.MaxCharsPerSlide != nil {
		opts.MaxCharsPerSlide = nil
		if *o.MaxCharsPerSlide > 0 {
			opts.MaxCharsPerSlide = slides.MaxChars(*o.MaxCharsPerSlide)
		}
	}
	if o.MaxSlides > 0 {
		opts.MaxSlides = o.MaxSlides
	}
	if o.MaxSlideDuration > 0 {
		opts.MaxSlideDuration = o.MaxSlideDuration
	}
	if o.Overflow != "" {
		policy, err := slides.ParseOverflowPolicy(o.Overflow)
		if err != nil {
			return opts, err
		}
		opts.Overflow = policy
	}
	return opts, nil
}
