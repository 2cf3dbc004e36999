package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rohit-sws/timetable/internal/extract"
	"github.com/rohit-sws/timetable/internal/svcctx"
	"github.com/rohit-sws/timetable/internal/textextract"
)

var (
	extractText         string
	extractBackend      string
	extractTextBackend  string
	extractReport       bool
	extractICS          string
	extractSaveResponse bool
	extractExport       exportFlags
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract a timetable from a document",
	Long: `Extract a timetable from an image, PDF, Word document or text file.

Documents the backend can read (images, and PDFs for OpenRouter) are sent
inline. Anything else is converted to text first, through Apache Tika for
PDF and Word files. Use "-" to read the document from stdin.

Examples:
  timetable extract week-a.jpg
  timetable extract timetable.docx -o table
  timetable extract scan.pdf --report -o json
  timetable extract --text "Mon 9:00-10:00 Maths"
  timetable extract week-a.png --ics week-a.ics --timezone Europe/London`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s := services(cmd)

		if (len(args) == 0) == (extractText == "") {
			return fmt.Errorf("give either a file or --text")
		}

		svc, err := s.ExtractService(svcctx.Selection{Backend: extractBackend, TextBackend: extractTextBackend})
		if err != nil {
			return err
		}

		var res *extract.Result
		switch {
		case extractText != "":
			res, err = svc.ExtractText(ctx, extractText)
		case args[0] == "-":
			data, readErr := io.ReadAll(cmd.InOrStdin())
			if readErr != nil {
				return fmt.Errorf("failed to read stdin: %w", readErr)
			}
			res, err = svc.ExtractDocument(ctx, data, textextract.DetectMIME("", data), "stdin")
		default:
			res, err = svc.ExtractFile(ctx, args[0])
		}
		if err != nil {
			return err
		}

		if res.Report.AllRejected() {
			s.Logger.Warn("every candidate was rejected; check the call log for the raw reply",
				"request_id", res.RequestID, "reasons", res.Report.ReasonCounts())
		}

		if extractSaveResponse {
			path := s.Home.ResponsePath(res.RequestID)
			if err := writeFile(path, []byte(res.Raw)); err != nil {
				return err
			}
			s.Logger.Info("saved backend response", "path", path)
		}

		if extractICS != "" {
			opts, err := extractExport.options(cmd, s.Config.Get().Export, calendarName(res.Source))
			if err != nil {
				return err
			}
			if err := writeICS(cmd, extractICS, res.Timetable(), opts); err != nil {
				return err
			}
			if extractICS == "-" {
				return nil
			}
		}

		if extractReport {
			return emit(cmd, res)
		}
		return emit(cmd, res.Timetable())
	},
}

func calendarName(source string) string {
	if source == "" || source == "text" || source == "stdin" {
		return "Timetable"
	}
	base := filepath.Base(source)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func init() {
	extractCmd.Flags().StringVar(&extractText, "text", "", "extract from this text instead of a file")
	extractCmd.Flags().StringVar(&extractBackend, "backend", "", "backend name (default: defaults.backend)")
	extractCmd.Flags().StringVar(&extractTextBackend, "text-backend", "", "backend for text mode (default: defaults.text_backend)")
	extractCmd.Flags().BoolVar(&extractReport, "report", false, "print provenance and rejected candidates")
	extractCmd.Flags().StringVar(&extractICS, "ics", "", `also write an iCalendar file ("-" for stdout only)`)
	extractCmd.Flags().BoolVar(&extractSaveResponse, "save-response", false, "keep the raw backend reply under {home}/responses")
	extractExport.register(extractCmd)

	rootCmd.AddCommand(extractCmd)
}
