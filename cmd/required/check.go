package main

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"required-backend/internal/requires"
)

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "check [record.json|-]",
		Short: "Validate a JSON record",
		Long: `Validate one JSON object against the selected requirements.

Fields are checked in the order they appear in the document and the first
violated requirement is reported.

Exit Codes:
  0 = record satisfies every requirement
  1 = a requirement is violated
  2 = error (bad flags, unreadable record, invalid requirements)`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := opts.graph(cmd)
			if err != nil {
				return err
			}

			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			record, err := readRecord(cmd, path)
			if err != nil {
				return err
			}

			if err := g.Validate(record); err != nil {
				return &violationError{msg: err.Error()}
			}
			if !quiet {
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print nothing when the record is valid")
	return cmd
}

func readRecord(cmd *cobra.Command, path string) (*requires.Fields, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}

	var record requires.Fields
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", path, err)
	}
	return &record, nil
}
