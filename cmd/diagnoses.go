package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edufarma/edufarma/internal/store"
)

var diagnosesCmd = &cobra.Command{
	Use:   "diagnoses",
	Short: "Inspect recorded diagnoses",
}

var diagnosesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent diagnoses",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		source, _ := cmd.Flags().GetString("source")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		events, err := s.EventRepo().QueryDiagnoses(context.Background(), store.QueryOpts{Limit: limit})
		if err != nil {
			return fmt.Errorf("query diagnoses: %w", err)
		}
		if len(events) == 0 {
			fmt.Println("No diagnoses found.")
			return nil
		}

		fmt.Printf("%-5s  %-19s  %-4s  %-8s  %-18s  %-7s  %-6s  %s\n",
			"ID", "Timestamp", "Lang", "Source", "Trigger", "Part", "Ms", "Disease")
		fmt.Println(strings.Repeat("─", 100))

		for _, e := range events {
			if source != "" && e.Source != source {
				continue
			}
			fmt.Printf("%-5d  %-19s  %-4s  %-8s  %-18s  %-7s  %-6d  %s\n",
				e.ID,
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				e.Language,
				e.Source,
				truncate(e.TriggerRule, 18),
				e.PlantPart,
				e.LatencyMs,
				truncate(e.Disease, 32),
			)
		}
		return nil
	},
}

var diagnosesStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how often the safety fallback replaced model output",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		stats, err := s.EventRepo().FallbackStats(context.Background())
		if err != nil {
			return fmt.Errorf("query fallback stats: %w", err)
		}
		if len(stats) == 0 {
			fmt.Println("No diagnoses recorded yet.")
			return nil
		}

		fmt.Println("Diagnoses by Source")
		fmt.Println(strings.Repeat("─", 48))
		fmt.Printf("%-10s  %-24s  %8s\n", "Source", "Trigger", "Count")
		fmt.Println(strings.Repeat("─", 48))

		var total, fallbacks int
		for _, st := range stats {
			trigger := st.TriggerRule
			if trigger == "" {
				trigger = "-"
			}
			fmt.Printf("%-10s  %-24s  %8d\n", st.Source, truncate(trigger, 24), st.Count)
			total += st.Count
			if st.Source == "fallback" {
				fallbacks += st.Count
			}
		}

		fmt.Println(strings.Repeat("─", 48))
		fmt.Printf("%-10s  %-24s  %8d\n", "TOTAL", "", total)
		fmt.Printf("\nFallback rate: %.1f%%\n", 100*float64(fallbacks)/float64(total))
		return nil
	},
}

func init() {
	diagnosesListCmd.Flags().IntP("limit", "n", 20, "Number of diagnoses to show")
	diagnosesListCmd.Flags().String("source", "", "Filter by source (model or fallback)")

	diagnosesCmd.AddCommand(diagnosesListCmd)
	diagnosesCmd.AddCommand(diagnosesStatsCmd)
}
