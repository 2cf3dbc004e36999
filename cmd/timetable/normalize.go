package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rohit-sws/timetable/internal/normalize"
	"github.com/rohit-sws/timetable/internal/response"
)

var (
	normalizeAllowInverted bool
	normalizeReport        bool
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <response-file>",
	Short: "Re-run parsing and normalization on a saved backend reply",
	Long: `Parse and normalize a raw backend reply without calling any backend.

Replies are saved with "extract --save-response" and also appear in the
call log. Use "-" to read from stdin. This is the quickest way to check how
a normalization change affects a reply that was already paid for.

Examples:
  timetable normalize ~/.timetable/responses/0b6e...txt
  timetable calls --limit 1 -o json | jq -r '.[0].response' | timetable normalize -
  timetable normalize reply.txt --report --allow-inverted`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := services(cmd)

		var raw []byte
		var err error
		if args[0] == "-" {
			raw, err = io.ReadAll(cmd.InOrStdin())
		} else {
			raw, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		doc, err := response.Parse(string(raw))
		if err != nil {
			return err
		}

		allowInverted := s.Config.Get().Normalize.AllowInvertedTimes
		if cmd.Flags().Changed("allow-inverted") {
			allowInverted = normalizeAllowInverted
		}
		report, err := normalize.New(normalize.Options{
			AllowInvertedTimes: allowInverted,
			Logger:             s.Logger,
		}).Normalize(doc)
		if err != nil {
			return err
		}

		if normalizeReport {
			return emit(cmd, report)
		}
		return emit(cmd, &report.Result)
	},
}

func init() {
	normalizeCmd.Flags().BoolVar(&normalizeAllowInverted, "allow-inverted", false, "keep timeblocks whose end is not after their start")
	normalizeCmd.Flags().BoolVar(&normalizeReport, "report", false, "print rejected candidates as well")

	rootCmd.AddCommand(normalizeCmd)
}
