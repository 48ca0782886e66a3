package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"narration-timeline-service/internal/artifact"
	"narration-timeline-service/internal/models"
	"narration-timeline-service/internal/schema"
	"narration-timeline-service/internal/service/pipeline"
	"narration-timeline-service/internal/service/slides"
	"narration-timeline-service/internal/service/transcript"
)

func (c *cli) splitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split <recording>",
		Short: "Split a long recording into numbered WAV segments at silences",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.runner()
			if err != nil {
				return err
			}
			out := c.v.GetString("out")
			if out == "" {
				out = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + "_segments"
			}
			res, err := r.RunSplit(cmd.Context(), pipeline.SplitJob{
				InputPath: args[0],
				OutDir:    out,
				DryRun:    c.v.GetBool("dry-run"),
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res.Split)
		},
	}
	cmd.Flags().String("out", "", "Output directory (default: <recording>_segments)")
	cmd.Flags().Bool("dry-run", false, "Detect segments without writing files")
	c.segmenterFlags(cmd)
	return cmd
}

func (c *cli) csvJob(csvPath string) (pipeline.CSVJob, error) {
	opts, err := c.slideOptions()
	if err != nil {
		return pipeline.CSVJob{}, err
	}
	job := pipeline.CSVJob{
		CSVPath:   csvPath,
		AudioDir:  c.v.GetString("audio-dir"),
		AudioPath: c.v.GetString("audio"),
		Title:     c.v.GetString("title"),
		Slides:    opts,
	}
	if job.AudioDir != "" && job.AudioPath != "" {
		return job, fmt.Errorf("--audio-dir and --audio are mutually exclusive")
	}
	return job, nil
}

func (c *cli) alignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "align <rows.csv>",
		Short: "Build a timed transcript and its slides from a speaker/text CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := c.csvJob(args[0])
			if err != nil {
				return err
			}
			r, err := c.runner()
			if err != nil {
				return err
			}
			res, err := r.RunCSV(cmd.Context(), job)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"run_id":     res.RunID,
				"transcript": res.Transcript,
				"slides":     res.Slides,
				"artifacts":  res.Artifacts,
			})
		},
	}
	c.alignerFlags(cmd)
	c.slideFlags(cmd)
	return cmd
}

func (c *cli) slidesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slides <transcript.json|transcript.cbor>",
		Short: "Pack a stored transcript into slides",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var info models.TranscriptInfo
			if err := artifact.Read(args[0], &info); err != nil {
				return err
			}
			if err := schema.New().ValidateTranscript(info); err != nil {
				return err
			}
			opts, err := c.slideOptions()
			if err != nil {
				return err
			}
			out, err := slides.NewSplitter().Split(info, opts)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	c.slideFlags(cmd)
	return cmd
}

func (c *cli) planCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <script.json>",
		Short: "Lay a script out against an audio duration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.runner()
			if err != nil {
				return err
			}
			res, err := r.RunPlan(cmd.Context(), pipeline.PlanJob{
				ScriptPath:    args[0],
				AudioPath:     c.v.GetString("audio"),
				AudioDuration: c.v.GetFloat64("duration"),
				Notes:         c.v.GetString("notes"),
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res.Plan)
		},
	}
	cmd.Flags().String("audio", "", "Recording whose length the plan spans")
	cmd.Flags().Float64("duration", 0, "Audio duration in seconds when --audio is not given")
	cmd.Flags().String("notes", "", "Free-form plan notes")
	c.plannerFlags(cmd)
	return cmd
}

func (c *cli) inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <rows.csv>",
		Short: "Show how CSV rows map to transcript segments and slides",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := c.csvJob(args[0])
			if err != nil {
				return err
			}
			r, err := c.runner()
			if err != nil {
				return err
			}
			res, err := r.RunCSV(cmd.Context(), job)
			if err != nil {
				return err
			}
			return printInspection(cmd, res.Transcript, res.Slides)
		},
	}
	c.alignerFlags(cmd)
	c.slideFlags(cmd)
	return cmd
}

func printInspection(cmd *cobra.Command, info *models.TranscriptInfo, slideList []models.SlideContent) error {
	out := cmd.OutOrStdout()
	slideOf := map[int]int{}
	for _, s := range slideList {
		for _, id := range s.SourceSegments {
			slideOf[id] = s.SlideID
		}
	}

	fmt.Fprintf(out, "%s: %d rows, %.2fs\n\n", info.Title, len(info.Segments), info.TotalDuration)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tSPEAKER\tSTART\tEND\tSLIDE\tTEXT")
	for _, seg := range info.Segments {
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%.2f\t%d\t%s\n",
			seg.ID, seg.Speaker, seg.StartTime, seg.EndTime, slideOf[seg.ID], clip(seg.Text, 48))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLIDE\tSPEAKERS\tROWS\tDURATION\tTITLE")
	for _, s := range slideList {
		rows := make([]string, len(s.SourceSegments))
		for i, id := range s.SourceSegments {
			rows[i] = fmt.Sprint(id)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%s\n",
			s.SlideID, strings.Join(s.Speakers, ","), strings.Join(rows, ","), s.Duration, s.Title)
	}
	return tw.Flush()
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func (c *cli) srtCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "srt <transcript.json|transcript.cbor>",
		Short: "Export a stored transcript as SRT or WebVTT subtitles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var info models.TranscriptInfo
			if err := artifact.Read(args[0], &info); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if path := c.v.GetString("out"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			switch format := strings.ToLower(c.v.GetString("format")); format {
			case "srt":
				return transcript.WriteSRT(w, info)
			case "vtt":
				return transcript.WriteVTT(w, info)
			default:
				return fmt.Errorf("unknown subtitle format %q", format)
			}
		},
	}
	cmd.Flags().String("format", "srt", "Subtitle format: srt or vtt")
	cmd.Flags().String("out", "", "Output file (default: stdout)")
	return cmd
}
