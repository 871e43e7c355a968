package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/inkcheck/internal/domain/pipeline"
	"github.com/okian/inkcheck/internal/domain/trace"
)

type rejection struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func newScoreCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "score [file|-]",
		Short: "Score a submission JSON offline and print its report",
		Long: `Reads one submission from a file, or from stdin when the argument is "-"
or missing, evaluates it with the effective configuration and prints the
report. A rejected submission prints its error code and exits non-zero.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			settings, err := cfg.Settings()
			if err != nil {
				return err
			}

			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			report, err := pipeline.Evaluate(raw, settings)
			if err != nil {
				writeRejection(cmd.ErrOrStderr(), err)
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read submission: %w", err)
	}
	return raw, nil
}

func writeRejection(w io.Writer, err error) {
	r := rejection{Code: trace.Code(err), Message: err.Error()}
	var te *trace.Error
	if errors.As(err, &te) {
		r.Message = te.Reason
		r.Field = te.Field
	}
	_ = json.NewEncoder(w).Encode(r)
}
