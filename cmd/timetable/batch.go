package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rohit-sws/timetable/internal/output"
	"github.com/rohit-sws/timetable/internal/svcctx"
)

var (
	batchOutDir      string
	batchConcurrency int
	batchBackend     string
	batchTextBackend string
	batchICS         bool
	batchExport      exportFlags
)

// batchItem is the outcome for one document.
type batchItem struct {
	Source     string        `json:"source" yaml:"source"`
	Status     string        `json:"status" yaml:"status"`
	Timeblocks int           `json:"timeblocks" yaml:"timeblocks"`
	Rejected   int           `json:"rejected" yaml:"rejected"`
	ResultFile string        `json:"result_file,omitempty" yaml:"result_file,omitempty"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
}

type batchSummary struct {
	Items  []batchItem `json:"items" yaml:"items"`
	Failed int         `json:"failed" yaml:"failed"`
}

func (b batchSummary) Table() output.Table {
	t := output.Table{Headers: []string{"SOURCE", "STATUS", "BLOCKS", "REJECTED", "RESULT", "ERROR"}}
	for _, it := range b.Items {
		t.Rows = append(t.Rows, []string{
			it.Source, it.Status,
			fmt.Sprint(it.Timeblocks), fmt.Sprint(it.Rejected),
			it.ResultFile, it.Error,
		})
	}
	return t
}

var batchCmd = &cobra.Command{
	Use:   "batch <file>...",
	Short: "Extract timetables from many documents concurrently",
	Long: `Extract timetables from many documents, running up to
defaults.max_concurrency extractions at once. Each result is written to the
output directory; one failing document does not stop the others.

Examples:
  timetable batch scans/*.jpg
  timetable batch --concurrency 8 --out-dir results/ term1/*
  timetable batch --ics -o table week-a.png week-b.png`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s := services(cmd)
		cfg := s.Config.Get()

		svc, err := s.ExtractService(svcctx.Selection{Backend: batchBackend, TextBackend: batchTextBackend})
		if err != nil {
			return err
		}

		limit := cfg.Defaults.MaxConcurrency
		if cmd.Flags().Changed("concurrency") {
			limit = batchConcurrency
		}
		if limit <= 0 {
			limit = 1
		}
		outDir := batchOutDir
		if outDir == "" {
			outDir = s.Home.ResultsDir()
		}
		ext := string(fileFormat())

		summary := batchSummary{Items: make([]batchItem, len(args))}
		var mu sync.Mutex

		var g errgroup.Group
		g.SetLimit(limit)
		for i, path := range args {
			g.Go(func() error {
				item := batchItem{Source: path}
				start := time.Now()
				defer func() {
					item.Duration = time.Since(start)
					mu.Lock()
					summary.Items[i] = item
					if item.Status != "ok" {
						summary.Failed++
					}
					mu.Unlock()
				}()

				res, err := svc.ExtractFile(ctx, path)
				if err != nil {
					item.Status, item.Error = "failed", err.Error()
					s.Logger.Error("extraction failed", "source", path, "error", err)
					return nil
				}
				item.Timeblocks = len(res.Report.Result.Timeblocks)
				item.Rejected = len(res.Report.Rejections)

				item.ResultFile = resultPath(outDir, path, ext)
				if err := writeStructured(item.ResultFile, res.Timetable()); err != nil {
					item.Status, item.Error = "failed", err.Error()
					return nil
				}
				if batchICS {
					opts, err := batchExport.options(cmd, cfg.Export, calendarName(path))
					if err == nil {
						err = writeICS(cmd, resultPath(outDir, path, "ics"), res.Timetable(), opts)
					}
					if err != nil {
						item.Status, item.Error = "failed", err.Error()
						return nil
					}
				}
				item.Status = "ok"
				return nil
			})
		}
		// Workers never return errors; failures are collected per item.
		_ = g.Wait()

		if err := emit(cmd, summary); err != nil {
			return err
		}
		if summary.Failed > 0 {
			return fmt.Errorf("%d of %d documents failed", summary.Failed, len(args))
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchOutDir, "out-dir", "", "directory for result files (default: {home}/results)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "parallel extractions (default: defaults.max_concurrency)")
	batchCmd.Flags().StringVar(&batchBackend, "backend", "", "backend name (default: defaults.backend)")
	batchCmd.Flags().StringVar(&batchTextBackend, "text-backend", "", "backend for text mode (default: defaults.text_backend)")
	batchCmd.Flags().BoolVar(&batchICS, "ics", false, "also write an iCalendar file next to each result")
	batchExport.register(batchCmd)

	rootCmd.AddCommand(batchCmd)
}
