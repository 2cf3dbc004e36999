package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rohit-sws/timetable/internal/config"
	"github.com/rohit-sws/timetable/internal/home"
	"github.com/rohit-sws/timetable/internal/output"
	"github.com/rohit-sws/timetable/internal/svcctx"
	"github.com/rohit-sws/timetable/version"
)

// skipServices marks commands that run without loading configuration.
const skipServices = "skip-services"

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string
	logFormat    string
)

var rootCmd = &cobra.Command{
	Use:   "timetable",
	Short: "Extract weekly teaching timetables from images, PDFs and Word documents",
	Long: `Timetable turns a teacher's weekly timetable (photo, scan, PDF or Word
document) into a normalized list of timeblocks using a generative model.

The pipeline:
  - Builds an extraction prompt (image mode or text mode)
  - Sends it to the configured backend (OpenRouter, OpenAI, DeepSeek)
  - Recovers JSON from the reply and validates every candidate
  - Normalizes days, times and event names, inferring missing end times`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.timetable/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "timetable home directory (default: ~/.timetable)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml, json or table",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "warn", "log level: debug, info, warn or error",
	)
	rootCmd.PersistentFlags().StringVar(
		&logFormat, "log-format", "text", "log format: text or json",
	)

	// Set output format and services before any command runs
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(outputFormat)
		if err != nil {
			return err
		}
		output.SetFormat(string(format))

		logger, err := newLogger(os.Stderr, logLevel, logFormat)
		if err != nil {
			return err
		}

		if cmd.Annotations[skipServices] != "" {
			return nil
		}

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		mgr, err := config.NewManager(cfgFile, logger, h.Path())
		if err != nil {
			return err
		}
		logger.Debug("configuration loaded", "file", mgr.File(), "home", h.Path())

		cmd.SetContext(svcctx.WithServices(cmd.Context(), svcctx.New(mgr, h, logger)))
		return nil
	}

	rootCmd.AddCommand(versionCmd)
}

// services returns the services attached by the root command.
func services(cmd *cobra.Command) *svcctx.Services {
	return svcctx.ServicesFrom(cmd.Context())
}

// emit writes v to the command's stdout in the selected format.
func emit(cmd *cobra.Command, v any) error {
	return output.To(cmd.OutOrStdout(), output.GetFormat(), v)
}
