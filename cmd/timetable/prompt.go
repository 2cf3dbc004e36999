package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rohit-sws/timetable/internal/output"
	"github.com/rohit-sws/timetable/internal/prompts"
)

var (
	promptMIME       string
	promptSourceFile string
)

type promptInfo struct {
	Key         string   `json:"key" yaml:"key"`
	Hash        string   `json:"hash" yaml:"hash"`
	Description string   `json:"description" yaml:"description"`
	Variables   []string `json:"variables,omitempty" yaml:"variables,omitempty"`
}

type promptList []promptInfo

func (l promptList) Table() output.Table {
	t := output.Table{Headers: []string{"KEY", "HASH", "VARIABLES", "DESCRIPTION"}}
	for _, p := range l {
		t.Rows = append(t.Rows, []string{p.Key, shortHash(p.Hash), strings.Join(p.Variables, ","), p.Description})
	}
	return t
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Inspect the extraction prompts",
}

var promptListCmd = &cobra.Command{
	Use:   "list",
	Short: "List embedded prompts with their content hashes",
	RunE: func(cmd *cobra.Command, args []string) error {
		var list promptList
		for _, p := range services(cmd).Prompts.Registry().All() {
			list = append(list, promptInfo{Key: p.Key, Hash: p.Hash, Description: p.Description, Variables: p.Variables})
		}
		return emit(cmd, list)
	},
}

var promptShowCmd = &cobra.Command{
	Use:   "show <rules|text|image>",
	Short: "Print a rendered prompt exactly as it is sent",
	Long: `Print a rendered prompt exactly as it is sent to the backend.

Examples:
  timetable prompt show rules
  timetable prompt show image --mime application/pdf
  timetable prompt show text --source-file extracted.txt
  timetable prompt show image -o json     # key, hash and text`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"rules", "text", "image"},
	RunE: func(cmd *cobra.Command, args []string) error {
		b := services(cmd).Prompts

		var rendered prompts.Rendered
		switch args[0] {
		case "rules":
			rendered = prompts.Rendered{Key: prompts.RulesKey, Text: b.Rules()}
			if p, ok := b.Registry().Get(prompts.RulesKey); ok {
				rendered.Hash = p.Hash
			}
		case "text":
			source := "<document text>"
			if promptSourceFile != "" {
				data, err := os.ReadFile(promptSourceFile)
				if err != nil {
					return fmt.Errorf("failed to read source file: %w", err)
				}
				source = string(data)
			}
			rendered = b.Text(source)
		case "image":
			rendered = b.Image(promptMIME)
		default:
			return fmt.Errorf("unknown prompt %q (want rules, text or image)", args[0])
		}

		if cmd.Flags().Changed("output") {
			return emit(cmd, rendered)
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), rendered.Text)
		return err
	},
}

func init() {
	promptShowCmd.Flags().StringVar(&promptMIME, "mime", "image/png", "document type for image mode")
	promptShowCmd.Flags().StringVar(&promptSourceFile, "source-file", "", "document text for text mode")

	promptCmd.AddCommand(promptListCmd, promptShowCmd)
	rootCmd.AddCommand(promptCmd)
}
