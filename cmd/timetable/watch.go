package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rohit-sws/timetable/internal/extract"
	"github.com/rohit-sws/timetable/internal/inbox"
	"github.com/rohit-sws/timetable/internal/jobs"
	"github.com/rohit-sws/timetable/internal/svcctx"
)

var (
	watchExisting bool
	watchBackend  string
	watchICS      bool
	watchExport   exportFlags
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Extract every timetable dropped into a folder",
	Long: `Watch a drop folder and extract each document placed in it.

Results are written to {home}/results (and calendars to {home}/exports with
--ics). The config file is watched too: backend changes apply to the next
document without a restart.

Examples:
  timetable watch                      # watches {home}/inbox
  timetable watch ~/Scans --existing   # also process files already there
  timetable watch --ics --timezone Europe/Dublin`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := services(cmd)
		if err := s.Home.EnsureExists(); err != nil {
			return err
		}
		dir := s.Home.InboxDir()
		if len(args) == 1 {
			dir = args[0]
		}

		s.Config.WatchConfig()

		// Validate the selection up front; each document rebuilds the service
		// so config reloads take effect.
		if _, err := s.ExtractService(svcctx.Selection{Backend: watchBackend}); err != nil {
			return err
		}

		pool := jobs.NewPool(jobs.PoolConfig{
			Name:        "watch",
			Logger:      s.Logger,
			WorkerCount: s.Config.Get().Defaults.MaxConcurrency,
			Handler: func(ctx context.Context, unit *jobs.WorkUnit) (any, error) {
				svc, err := s.ExtractService(svcctx.Selection{Backend: watchBackend})
				if err != nil {
					return nil, err
				}
				return svc.ExtractFile(ctx, unit.Source)
			},
		})
		w := inbox.New(dir, inbox.Options{Existing: watchExisting, Logger: s.Logger})

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			pool.Start(ctx)
			return nil
		})
		g.Go(func() error {
			return w.Run(ctx, func(path string) {
				if err := pool.Submit(&jobs.WorkUnit{ID: uuid.NewString(), Source: path}); err != nil {
					s.Logger.Error("document not queued", "path", path, "error", err)
				}
			})
		})
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case r := <-pool.Results():
					handleWatchResult(cmd, s, r)
				}
			}
		})
		return g.Wait()
	},
}

func handleWatchResult(cmd *cobra.Command, s *svcctx.Services, r jobs.WorkResult) {
	logger := s.Logger.With("source", r.Unit.Source, "duration", r.Duration)
	if r.Status != jobs.StatusCompleted {
		logger.Error("extraction failed", "status", r.Status, "error", r.Error)
		return
	}
	res := r.Value.(*extract.Result)

	path := s.Home.ResultPath(r.Unit.Source, string(fileFormat()))
	if err := writeStructured(path, res.Timetable()); err != nil {
		logger.Error("failed to write result", "error", err)
		return
	}
	logger.Info("timetable extracted",
		"result", path,
		"timeblocks", len(res.Report.Result.Timeblocks),
		"rejected", len(res.Report.Rejections))

	if !watchICS {
		return
	}
	opts, err := watchExport.options(cmd, s.Config.Get().Export, calendarName(r.Unit.Source))
	if err == nil {
		icsPath := filepath.Join(s.Home.ExportsDir(), calendarName(r.Unit.Source)+".ics")
		err = writeICS(cmd, icsPath, res.Timetable(), opts)
	}
	if err != nil {
		logger.Error("calendar export failed", "error", fmt.Errorf("%s: %w", r.Unit.Source, err))
	}
}

func init() {
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "process files already in the folder")
	watchCmd.Flags().StringVar(&watchBackend, "backend", "", "backend name (default: defaults.backend)")
	watchCmd.Flags().BoolVar(&watchICS, "ics", false, "also write an iCalendar file per document")
	watchExport.register(watchCmd)

	rootCmd.AddCommand(watchCmd)
}
