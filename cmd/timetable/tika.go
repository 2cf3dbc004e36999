package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohit-sws/timetable/internal/config"
	"github.com/rohit-sws/timetable/internal/textextract"
	"github.com/rohit-sws/timetable/internal/tika"
)

var (
	tikaImage   string
	logsTail    string
	waitTimeout time.Duration
)

var tikaCmd = &cobra.Command{
	Use:   "tika",
	Short: "Manage the local Tika container",
	Long: `Manage a local Apache Tika server in Docker.

Tika turns DOCX and PDF documents into text for backends that cannot read
them inline. The container listens on the port of textextract.tika_url.

Examples:
  timetable tika start   # Start the Tika container
  timetable tika status  # Check container status
  timetable tika stop    # Stop the container
  timetable tika logs    # View container logs`,
}

type tikaStatus struct {
	State     tika.State `json:"state" yaml:"state"`
	URL       string     `json:"url" yaml:"url"`
	Available bool       `json:"available" yaml:"available"`
}

var tikaStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the Tika container",
	Long: `Start the Tika container.

If the container doesn't exist, it is pulled, created and started.
If it exists but is stopped, it is started. If it is already running,
this is a no-op.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := tikaManager(cmd)
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Fprintln(cmd.ErrOrStderr(), "Starting Tika...")
		if err := mgr.Start(cmd.Context()); err != nil {
			return fmt.Errorf("failed to start Tika: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Tika is running at %s\n", mgr.URL())
		return nil
	},
}

var tikaStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the Tika container",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := tikaManager(cmd)
		if err != nil {
			return err
		}
		defer mgr.Close()

		if err := mgr.Stop(cmd.Context()); err != nil {
			return fmt.Errorf("failed to stop Tika: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Tika stopped")
		return nil
	},
}

var tikaStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show Tika container status",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := tikaManager(cmd)
		if err != nil {
			return err
		}
		defer mgr.Close()

		state, err := mgr.State(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get status: %w", err)
		}

		st := tikaStatus{State: state, URL: mgr.URL()}
		if state == tika.StateRunning {
			client := textextract.NewClient(&textextract.Config{TikaURL: mgr.URL(), Timeout: 5 * time.Second})
			st.Available = client.IsAvailable(cmd.Context())
		}
		return emit(cmd, st)
	},
}

var tikaLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show Tika container logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := tikaManager(cmd)
		if err != nil {
			return err
		}
		defer mgr.Close()

		logs, err := mgr.Logs(cmd.Context(), logsTail)
		if err != nil {
			return fmt.Errorf("failed to get logs: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), logs)
		return nil
	},
}

var tikaRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the Tika container",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := tikaManager(cmd)
		if err != nil {
			return err
		}
		defer mgr.Close()

		if err := mgr.Remove(cmd.Context()); err != nil {
			return fmt.Errorf("failed to remove container: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Tika container removed")
		return nil
	},
}

var tikaWaitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for Tika to be ready",
	Long: `Wait for Tika to answer requests.

Useful in scripts to make sure the server is up before running a batch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := tikaManager(cmd)
		if err != nil {
			return err
		}
		defer mgr.Close()

		if err := mgr.WaitReady(cmd.Context(), waitTimeout); err != nil {
			return fmt.Errorf("tika not ready: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Tika is ready")
		return nil
	},
}

func init() {
	tikaCmd.PersistentFlags().StringVar(&tikaImage, "image", tika.DefaultImage, "Tika image to run")
	tikaLogsCmd.Flags().StringVar(&logsTail, "tail", "100", "number of lines to show from the end")
	tikaWaitCmd.Flags().DurationVar(&waitTimeout, "timeout", 60*time.Second, "how long to wait")

	tikaCmd.AddCommand(tikaStartCmd, tikaStopCmd, tikaStatusCmd, tikaLogsCmd, tikaRemoveCmd, tikaWaitCmd)
	rootCmd.AddCommand(tikaCmd)
}

// tikaManager creates a Manager bound to the configured Tika port.
func tikaManager(cmd *cobra.Command) (*tika.Manager, error) {
	cfg := services(cmd).Config.Get()
	port, err := tika.PortFromURL(config.ResolveEnvVars(cfg.TextExtract.TikaURL))
	if err != nil {
		return nil, err
	}
	return tika.NewManager(tika.Options{Image: tikaImage, Port: port})
}
