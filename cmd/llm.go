package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hmkang/maieut/internal/config"
	"github.com/hmkang/maieut/internal/store"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect model request events",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent model calls",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		events, err := s.ListLLMEvents(context.Background(), limit)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		if len(events) == 0 {
			fmt.Println("No model events found.")
			return nil
		}

		fmt.Printf("%-5s  %-19s  %-16s  %-28s  %-6s  %-6s  %-7s  %s\n",
			"ID", "Timestamp", "Purpose", "Model", "In", "Out", "Ms", "OK")
		fmt.Println(strings.Repeat("─", 100))

		for _, e := range events {
			if purpose != "" && e.Purpose != purpose {
				continue
			}
			ok := "✓"
			if !e.Success {
				ok = "✗"
			}
			model := e.Model
			if len(model) > 28 {
				model = model[:28]
			}
			fmt.Printf("%-5d  %-19s  %-16s  %-28s  %-6d  %-6d  %-7d  %s\n",
				e.ID,
				e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				e.Purpose,
				model,
				e.InputTokens,
				e.OutputTokens,
				e.LatencyMs,
				ok,
			)
		}
		return nil
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate model usage and spend",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		stats, err := s.LLMStatsSummary(context.Background())
		if err != nil {
			return fmt.Errorf("aggregate events: %w", err)
		}

		fmt.Printf("Requests:       %d (%d failed)\n", stats.TotalRequests, stats.Failures)
		fmt.Printf("Input tokens:   %d\n", stats.InputTokens)
		fmt.Printf("Output tokens:  %d\n", stats.OutputTokens)
		fmt.Printf("Estimated cost: $%.4f\n", stats.TotalCostUSD)
		if len(stats.ByPurpose) > 0 {
			fmt.Println("By purpose:")
			for purpose, n := range stats.ByPurpose {
				fmt.Printf("  %-16s %d\n", purpose, n)
			}
		}
		return nil
	},
}

func openStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	dbPath, err := resolveDBPath(cmd, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

func init() {
	llmListCmd.Flags().Int("limit", 50, "Maximum number of events to show")
	llmListCmd.Flags().String("purpose", "", "Filter by purpose (dialogue, assessment, topic-validation)")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmStatsCmd)
}
