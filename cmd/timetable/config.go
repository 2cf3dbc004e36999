package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rohit-sws/timetable/internal/config"
	"github.com/rohit-sws/timetable/internal/home"
	"github.com/rohit-sws/timetable/internal/output"
)

var configInitForce bool

type entryList []config.Entry

func (l entryList) Table() output.Table {
	t := output.Table{Headers: []string{"KEY", "DEFAULT", "DESCRIPTION"}}
	for _, e := range l {
		t.Rows = append(t.Rows, []string{e.Key, fmt.Sprint(e.Value), e.Description})
	}
	return t
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write the default configuration file",
	Long:        `Write the default configuration to --config, or to {home}/config.yaml.`,
	Annotations: map[string]string{skipServices: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		path := cfgFile
		if path == "" {
			path = h.ConfigPath()
		}
		if fileExists(path) && !configInitForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return emit(cmd, services(cmd).Config.Get())
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys [prefix]",
	Short: "List configuration keys with their defaults",
	Long: `List configuration keys with their defaults and descriptions.
Every key can be overridden with a TIMETABLE_ environment variable, for
example TIMETABLE_DEFAULTS_BACKEND=openai.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}
		return emit(cmd, entryList(config.EntriesByPrefix(prefix)))
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")

	configCmd.AddCommand(configInitCmd, configShowCmd, configKeysCmd)
	rootCmd.AddCommand(configCmd)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
