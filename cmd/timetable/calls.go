package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohit-sws/timetable/internal/llmcall"
	"github.com/rohit-sws/timetable/internal/metrics"
	"github.com/rohit-sws/timetable/internal/output"
)

var (
	callsPromptKey  string
	callsPromptHash string
	callsProvider   string
	callsModel      string
	callsFailed     bool
	callsSince      time.Duration
	callsLimit      int
	callsGroupBy    string
)

type callList []llmcall.Call

func (l callList) Table() output.Table {
	t := output.Table{Headers: []string{"TIME", "PROVIDER", "MODEL", "PROMPT", "HASH", "LATENCY", "TOKENS", "STATUS"}}
	for _, c := range l {
		status := "ok"
		if !c.Success {
			status = c.Error
		}
		t.Rows = append(t.Rows, []string{
			c.Timestamp.Local().Format(time.DateTime),
			c.Provider,
			c.Model,
			c.PromptKey,
			shortHash(c.PromptHash),
			fmt.Sprintf("%dms", c.LatencyMs),
			fmt.Sprintf("%d/%d", c.InputTokens, c.OutputTokens),
			status,
		})
	}
	return t
}

type statsRow struct {
	Group string `json:"group" yaml:"group"`
	metrics.DetailedStats `yaml:",inline"`
}

type statsList []statsRow

func (l statsList) Table() output.Table {
	t := output.Table{Headers: []string{"GROUP", "CALLS", "SUCCESS", "P50", "P95", "MAX", "TOKENS IN", "TOKENS OUT"}}
	for _, r := range l {
		t.Rows = append(t.Rows, []string{
			r.Group,
			fmt.Sprintf("%d", r.Count),
			fmt.Sprintf("%.0f%%", r.SuccessRate*100),
			fmt.Sprintf("%.2fs", r.LatencyP50),
			fmt.Sprintf("%.2fs", r.LatencyP95),
			fmt.Sprintf("%.2fs", r.LatencyMax),
			fmt.Sprintf("%d", r.TotalInputTokens),
			fmt.Sprintf("%d", r.TotalOutputTokens),
		})
	}
	return t
}

func callStore(cmd *cobra.Command) (*llmcall.Store, error) {
	store := services(cmd).LLMCallStore
	if store == nil {
		return nil, fmt.Errorf("call log is disabled (call_log.enabled)")
	}
	return store, nil
}

func callsFilter(limit int) llmcall.QueryFilter {
	filter := llmcall.QueryFilter{
		PromptKey:  callsPromptKey,
		PromptHash: callsPromptHash,
		Provider:   callsProvider,
		Model:      callsModel,
		Limit:      limit,
	}
	if callsFailed {
		success := false
		filter.Success = &success
	}
	if callsSince > 0 {
		after := time.Now().Add(-callsSince)
		filter.After = &after
	}
	return filter
}

var callsCmd = &cobra.Command{
	Use:   "calls",
	Short: "List recorded backend calls",
	Long: `List recorded backend calls, most recent last.

Every call carries the key and hash of the prompt that produced it, so a
drop in extraction quality can be traced to a prompt change.

Examples:
  timetable calls --limit 5 -o table
  timetable calls --failed --since 24h
  timetable calls --prompt-key timetable.image -o json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := callStore(cmd)
		if err != nil {
			return err
		}

		calls, err := store.List(cmd.Context(), callsFilter(callsLimit))
		if err != nil {
			return err
		}
		return emit(cmd, callList(calls))
	},
}

var callsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize recorded backend calls",
	Long: `Summarize recorded backend calls per group: call count, success rate,
latency percentiles and token totals.

Grouping by prompt hash compares prompt versions against each other.

Examples:
  timetable calls stats -o table
  timetable calls stats --by provider --since 168h
  timetable calls stats --prompt-key timetable.image --by prompt_hash`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := callStore(cmd)
		if err != nil {
			return err
		}

		by := metrics.GroupBy(callsGroupBy)
		switch by {
		case metrics.ByPromptHash, metrics.ByPromptKey, metrics.ByProvider, metrics.ByModel:
		default:
			return fmt.Errorf("unknown grouping %q (use prompt_hash, prompt_key, provider or model)", callsGroupBy)
		}

		groups, err := metrics.NewQuery(store).Grouped(cmd.Context(), callsFilter(0), by)
		if err != nil {
			return err
		}

		rows := make(statsList, 0, len(groups))
		for name, stats := range groups {
			rows = append(rows, statsRow{Group: name, DetailedStats: *stats})
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].Group < rows[j].Group })
		return emit(cmd, rows)
	},
}

func init() {
	callsCmd.PersistentFlags().StringVar(&callsPromptKey, "prompt-key", "", "only calls made with this prompt")
	callsCmd.PersistentFlags().StringVar(&callsPromptHash, "prompt-hash", "", "only calls made with this prompt version")
	callsCmd.PersistentFlags().StringVar(&callsProvider, "provider", "", "only calls to this provider")
	callsCmd.PersistentFlags().StringVar(&callsModel, "model", "", "only calls to this model")
	callsCmd.PersistentFlags().BoolVar(&callsFailed, "failed", false, "only failed calls")
	callsCmd.PersistentFlags().DurationVar(&callsSince, "since", 0, "only calls newer than this (e.g. 24h)")
	callsCmd.Flags().IntVar(&callsLimit, "limit", 20, "most recent N calls (0 = all)")

	callsStatsCmd.Flags().StringVar(&callsGroupBy, "by", string(metrics.ByPromptHash), "group by prompt_hash, prompt_key, provider or model")

	callsCmd.AddCommand(callsStatsCmd)
	rootCmd.AddCommand(callsCmd)
}
