package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/cobra"

	"github.com/normanking/cortexlipsync/internal/audio"
	"github.com/normanking/cortexlipsync/internal/lipsync"
	"github.com/normanking/cortexlipsync/internal/timing"
	"github.com/normanking/cortexlipsync/internal/viseme"
)

// simulation is the result of an offline run.
type simulation struct {
	Utterance *lipsync.Utterance `json:"utterance"`
	Frames    []lipsync.Frame    `json:"frames"`
}

func simulateCmd() *cobra.Command {
	var (
		lang      string
		audioPath string
		duration  time.Duration
		cancelAt  time.Duration
		fps       int
		synthetic bool
		format    string
	)

	cmd := &cobra.Command{
		Use:   "simulate <text>",
		Short: "Run an utterance on a simulated clock and print its frames",
		Long: `Run an utterance offline on a step clock. Without --audio the mouth
follows estimated timing; with a WAV or MP3 file it follows the clip's
loudness. The run, including the utterance id, is deterministic for the
same inputs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var l viseme.Language
			if lang != "" {
				parsed, err := viseme.ParseLanguage(lang)
				if err != nil {
					return err
				}
				l = parsed
			}
			if fps <= 0 {
				return fmt.Errorf("fps must be positive, got %d", fps)
			}

			req := lipsync.Request{Text: args[0], Language: l, Duration: duration, Synthetic: synthetic}
			if audioPath != "" {
				data, err := os.ReadFile(audioPath)
				if err != nil {
					return fmt.Errorf("read audio: %w", err)
				}
				req.Audio = data
			}

			sim, err := simulate(req, fps, cancelAt)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(sim)
			case "table":
				return printFrames(cmd.OutOrStdout(), sim)
			default:
				return fmt.Errorf("unknown format %q (want table or json)", format)
			}
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "", "language: ja or en (default: detected from the text)")
	cmd.Flags().StringVar(&audioPath, "audio", "", "WAV or MP3 clip to drive the mouth")
	cmd.Flags().DurationVar(&duration, "duration", 0, "playback length (default: clip length or natural speaking time)")
	cmd.Flags().DurationVar(&cancelAt, "cancel-at", 0, "cancel the utterance after this long")
	cmd.Flags().IntVar(&fps, "fps", 60, "host frame rate")
	cmd.Flags().BoolVar(&synthetic, "synthetic", false, "treat the text as host TTS speech that ends at the estimated duration")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table or json")

	return cmd
}

// simulate runs req to completion on a step clock.
func simulate(req lipsync.Request, fps int, cancelAt time.Duration) (*simulation, error) {
	cache, err := audio.NewClipCache(cfg.Audio.ClipCacheSize)
	if err != nil {
		return nil, err
	}
	table := viseme.NewTable()
	clock := lipsync.NewStepClock(time.Unix(0, 0).UTC())
	engine := lipsync.New(cfg.Lipsync(), log.Component("engine"),
		lipsync.WithClock(clock),
		lipsync.WithTable(table),
		lipsync.WithEstimator(timing.NewEstimator(table, cfg.Timing)),
		lipsync.WithLoader(audio.NewLoader(cache, log.Component("audio"))),
	)

	req.ID = offlineID(req)
	utt := engine.Start(req)
	sim := &simulation{Utterance: utt}
	if !utt.Speakable {
		sim.Frames = append(sim.Frames, engine.Frame())
		return sim, nil
	}

	step := time.Second / time.Duration(fps)
	engineCfg := cfg.Lipsync()
	limit := utt.Duration + engineCfg.FinishGrace + engineCfg.DecayWindow + 2*step

	finished := false
	for elapsed := step; elapsed <= limit; elapsed += step {
		clock.Advance(step)
		if cancelAt > 0 && elapsed >= cancelAt && engine.State() == lipsync.StateDriving {
			engine.Cancel()
		}
		if req.Synthetic && !finished && elapsed >= utt.Duration {
			engine.Finish()
			finished = true
		}
		f := engine.Frame()
		sim.Frames = append(sim.Frames, f)
		if f.State == lipsync.StateIdle {
			break
		}
	}
	return sim, nil
}

// offlineID names a simulated utterance after its inputs.
func offlineID(req lipsync.Request) string {
	d := xxhash.New()
	d.WriteString(req.Text)
	d.WriteString("|" + string(req.Language) + "|")
	d.Write(req.Audio)
	return fmt.Sprintf("sim-%016x", d.Sum64())
}

func printFrames(out io.Writer, sim *simulation) error {
	utt := sim.Utterance
	fmt.Fprintf(out, "utterance %s  language=%s  units=%d  duration=%s  live=%t\n\n",
		utt.ID, utt.Language, utt.Table.Len(), utt.Duration, utt.Live)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "T(MS)\tSTATE\tSOURCE\tUNIT\tVISEME\tLOUD\tJAW\tROUND\tWIDTH")
	for _, f := range sim.Frames {
		unit := f.ActiveUnitText
		if unit == "" {
			unit = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%.3f\t%.3f\t%.3f\t%.3f\n",
			f.Position.Milliseconds(), f.State, f.SourceMode, unit, f.Viseme,
			f.Loudness, f.Shape.JawOpen, f.Shape.LipRounding, f.Shape.LipWidth)
	}
	return w.Flush()
}
