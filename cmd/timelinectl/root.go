package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"narration-timeline-service/internal/artifact"
	"narration-timeline-service/internal/config"
	"narration-timeline-service/internal/events"
	"narration-timeline-service/internal/observability/logging"
	"narration-timeline-service/internal/service/audio"
	"narration-timeline-service/internal/service/pipeline"
	"narration-timeline-service/internal/service/slides"
	"narration-timeline-service/internal/service/timeline"
	"narration-timeline-service/internal/service/transcript"
)

// cli carries state shared by the subcommands. Settings resolve as flags,
// then TIMELINE_* variables, then the --config file, then the service
// environment defaults.
type cli struct {
	v         *viper.Viper
	cfg       *config.Configuration
	publisher *events.Publisher
}

func newRootCmd() *cobra.Command {
	_ = godotenv.Load()
	c := &cli{v: viper.New(), cfg: config.Load()}
	c.v.SetEnvPrefix("TIMELINE")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()
	c.setDefaults()

	root := &cobra.Command{
		Use:           "timelinectl",
		Short:         "Build narration transcripts, slides and timeline plans",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if c.publisher != nil {
				return c.publisher.Close()
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "Config file (yaml, toml or json)")
	pf.String("log-level", c.cfg.Observability.LogLevel, "Log level")
	pf.String("artifacts", "", "Write stage documents under this directory")
	pf.String("artifact-format", c.cfg.Service.ArtifactFormat, "Artifact encoding: json or cbor")
	pf.Bool("publish", false, "Publish run events to Kafka")

	root.AddCommand(
		c.splitCmd(),
		c.alignCmd(),
		c.slidesCmd(),
		c.planCmd(),
		c.inspectCmd(),
		c.srtCmd(),
	)
	return root
}

// setDefaults seeds every setting so subcommands that do not register a
// flag still read the configured value.
func (c *cli) setDefaults() {
	cfg := c.cfg
	for key, val := range map[string]any{
		"min-silence":      cfg.Segmenter.MinSilence,
		"threshold":        cfg.Segmenter.Threshold,
		"min-segment":      cfg.Segmenter.MinSegment,
		"window":           cfg.Segmenter.Window,
		"start-index":      cfg.Segmenter.StartIndex,
		"chars-per-second": cfg.Aligner.CharsPerSecond,
		"min-row":          cfg.Aligner.MinRowDuration,
		"max-chars":        cfg.Slides.MaxCharsPerSlide,
		"max-slides":       cfg.Slides.MaxSlides,
		"max-duration":     cfg.Slides.MaxSlideDuration,
		"overflow":         cfg.Slides.Overflow,
		"default-duration": cfg.Planner.DefaultSegmentDuration,
		"log-level":        cfg.Observability.LogLevel,
		"artifact-format":  cfg.Service.ArtifactFormat,
	} {
		c.v.SetDefault(key, val)
	}
}

func (c *cli) setup(cmd *cobra.Command) error {
	if err := c.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if path := c.v.GetString("config"); path != "" {
		c.v.SetConfigFile(path)
		if err := c.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}
	// Logs go to stderr so stdout stays parseable.
	logging.InitWriter(logging.Config{
		Level:  c.v.GetString("log-level"),
		Format: "console",
	}, cmd.ErrOrStderr())
	return nil
}

func (c *cli) segmenterConfig() audio.Config {
	return audio.Config{
		MinSilenceDuration: c.v.GetFloat64("min-silence"),
		SilenceThreshold:   c.v.GetFloat64("threshold"),
		MinSegmentDuration: c.v.GetFloat64("min-segment"),
		WindowDuration:     c.v.GetFloat64("window"),
		StartIndex:         c.v.GetInt("start-index"),
		DryRun:             c.v.GetBool("dry-run"),
	}
}

func (c *cli) slideOptions() (slides.SplitOptions, error) {
	policy, err := slides.ParseOverflowPolicy(c.v.GetString("overflow"))
	if err != nil {
		return slides.SplitOptions{}, err
	}
	opts := slides.SplitOptions{
		MaxSlides:        c.v.GetInt("max-slides"),
		MaxSlideDuration: c.v.GetFloat64("max-duration"),
		Overflow:         policy,
	}
	if n := c.v.GetInt("max-chars"); n > 0 {
		opts.MaxCharsPerSlide = slides.MaxChars(n)
	}
	return opts, nil
}

// runner builds a pipeline runner from the resolved settings.
func (c *cli) runner() (*pipeline.Runner, error) {
	planner, err := timeline.NewPlanner(c.v.GetFloat64("default-duration"))
	if err != nil {
		return nil, err
	}
	deps := pipeline.Deps{
		Segmenter: c.segmenterConfig(),
		Aligner: transcript.NewAligner(transcript.Config{
			CharsPerSecond: c.v.GetFloat64("chars-per-second"),
			MinRowDuration: c.v.GetFloat64("min-row"),
		}),
		Splitter: slides.NewSplitter(),
		Planner:  planner,
	}
	if dir := c.v.GetString("artifacts"); dir != "" {
		format, err := artifact.ParseFormat(c.v.GetString("artifact-format"))
		if err != nil {
			return nil, err
		}
		if deps.Store, err = artifact.NewStore(dir, format); err != nil {
			return nil, err
		}
	}
	if c.v.GetBool("publish") {
		c.publisher = events.New(&events.Config{
			Enabled:      true,
			Brokers:      c.cfg.Kafka.Brokers,
			TopicContent: c.cfg.Kafka.TopicContent,
			TopicPlan:    c.cfg.Kafka.TopicPlan,
			Principal:    c.cfg.Kafka.Principal,
		})
		deps.Publisher = c.publisher
	}
	return pipeline.NewRunner(deps), nil
}

// Flag groups shared by several subcommands. Defaults come from the service
// configuration so the CLI and server agree.

func (c *cli) segmenterFlags(cmd *cobra.Command) {
	s := c.cfg.Segmenter
	f := cmd.Flags()
	f.Float64("min-silence", s.MinSilence, "Minimum silence to split on, seconds")
	f.Float64("threshold", s.Threshold, "Silence threshold as a ratio of peak amplitude")
	f.Float64("min-segment", s.MinSegment, "Minimum segment length, seconds")
	f.Float64("window", s.Window, "Analysis window, seconds")
	f.Int("start-index", s.StartIndex, "Number of the first output file")
}

func (c *cli) alignerFlags(cmd *cobra.Command) {
	a := c.cfg.Aligner
	f := cmd.Flags()
	f.String("audio-dir", "", "Directory with one WAV per row, in name order")
	f.String("audio", "", "Single recording spanning all rows")
	f.String("title", "", "Transcript title (default: CSV file name)")
	f.Float64("chars-per-second", a.CharsPerSecond, "Reading speed for estimated timings")
	f.Float64("min-row", a.MinRowDuration, "Minimum estimated row duration, seconds")
}

func (c *cli) slideFlags(cmd *cobra.Command) {
	s := c.cfg.Slides
	f := cmd.Flags()
	f.Int("max-chars", s.MaxCharsPerSlide, "Maximum characters per slide, 0 for unbounded")
	f.Int("max-slides", s.MaxSlides, "Maximum slides, 0 for unbounded")
	f.Float64("max-duration", s.MaxSlideDuration, "Maximum narration per slide, seconds")
	f.String("overflow", s.Overflow, "Policy past max-slides: merge, extend or reject")
}

func (c *cli) plannerFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("default-duration", c.cfg.Planner.DefaultSegmentDuration, "Fallback segment length, seconds")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
