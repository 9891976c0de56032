package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/normanking/cortexlipsync/internal/timing"
	"github.com/normanking/cortexlipsync/internal/viseme"
)

func timelineCmd() *cobra.Command {
	var (
		lang     string
		duration time.Duration
		format   string
		units    bool
	)

	cmd := &cobra.Command{
		Use:   "timeline <text>",
		Short: "Print the estimated viseme timeline for text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := args[0]
			l := viseme.DetectLanguage(text)
			if lang != "" {
				parsed, err := viseme.ParseLanguage(lang)
				if err != nil {
					return err
				}
				l = parsed
			}

			table := viseme.NewTable()
			est := timing.NewEstimator(table, cfg.Timing)
			us := timing.Units(table, text, l)
			if duration <= 0 {
				duration = est.Nominal(us, l)
			}
			estimated := est.Estimate(us, l, duration)

			var v interface{} = timing.BuildTimeline(table, estimated)
			if units {
				v = estimated
			}

			switch format {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(v)
			case "yaml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(v)
			default:
				return fmt.Errorf("unknown format %q (want json or yaml)", format)
			}
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "", "language: ja or en (default: detected from the text)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "total speaking time (default: natural speaking time)")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or yaml")
	cmd.Flags().BoolVar(&units, "units", false, "print the timed units instead of Oculus keyframes")

	return cmd
}
