package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/okian/inkcheck/internal/replay"
)

func newReplayCmd() *cobra.Command {
	var cfg replay.Config
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Submit synthetic sessions to a running server and check their bands",
		Long: `Generates sessions for the organic, paste_dump, scripted and burst_insert
profiles, submits them concurrently and verifies that every report lands in
its profile's expected risk band.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			summary, err := replay.Run(cmd.Context(), cfg)
			if summary != nil {
				printSummary(cmd.OutOrStdout(), summary)
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", replay.DefaultBaseURL, "base URL of the service")
	f.IntVarP(&cfg.Sessions, "sessions", "n", replay.DefaultSessions, "sessions per profile")
	f.StringSliceVarP(&cfg.Profiles, "profiles", "p", nil, "profiles to run (default all)")
	f.IntVar(&cfg.TopN, "top", replay.DefaultTopN, "triage entries to fetch afterwards")
	f.IntVarP(&cfg.Workers, "workers", "w", 0, "concurrent submitters (default CPU cores * 2)")
	f.DurationVar(&cfg.Timeout, "timeout", replay.DefaultTimeout, "HTTP request timeout")
	f.Uint64Var(&cfg.Seed, "seed", 0, "generator seed (default from the clock)")
	f.StringVarP(&cfg.OutputFile, "output", "o", "", "write generated submissions to this file")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", false, "log every failure and mismatch")
	return cmd
}

func printSummary(w io.Writer, s *replay.Summary) {
	names := make([]string, 0, len(s.Profiles))
	for name := range s.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "%-14s %9s %7s %7s %10s %5s %5s %7s\n",
		"PROFILE", "SUBMITTED", "SCORED", "FAILED", "MISMATCHED", "MIN", "MAX", "MEAN")
	for _, name := range names {
		p := s.Profiles[name]
		fmt.Fprintf(w, "%-14s %9d %7d %7d %10d %5d %5d %7.1f\n",
			name, p.Submitted, p.Scored, p.Failed, p.Mismatched, p.MinRisk, p.MaxRisk, p.MeanRisk)
	}
	fmt.Fprintf(w, "\n%d sessions in %s, triage entries %d (sorted: %t)\n",
		s.Submitted, s.Duration.Round(1e6), s.TriageEntries, s.TriageSorted)
}
