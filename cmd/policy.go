package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/edufarma/edufarma/internal/diagnosis"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect and test the safety policy",
}

var policyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active policy as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := diagnosis.DefaultPolicy()
		if path := policyPath(cmd); path != "" {
			var err error
			if p, err = diagnosis.LoadPolicy(path); err != nil {
				return err
			}
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(p)
	},
}

var policyCheckCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Run the safety filter over a model response",
	Long:  "Run the safety filter over a model response read from file or stdin and print the verdict.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			raw []byte
			err error
		)
		if len(args) == 1 {
			raw, err = os.ReadFile(args[0])
		} else {
			raw, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		symptoms, _ := cmd.Flags().GetString("symptoms")

		filter, err := loadFilter(cmd)
		if err != nil {
			return err
		}
		v := filter.Inspect(string(raw), symptoms)

		w := cmd.OutOrStdout()
		cyan := color.New(color.FgCyan, color.Bold)
		cyan.Fprintf(w, "Policy mode: %s\n", filter.Mode())
		if !v.Fallback {
			color.New(color.FgGreen, color.Bold).Fprintln(w, "PASS  response kept (sanitized)")
			fmt.Fprintln(w, v.Output)
			return nil
		}

		color.New(color.FgRed, color.Bold).Fprintln(w, "BLOCK response replaced by fallback")
		yellow := color.New(color.FgYellow)
		yellow.Fprintf(w, "  trigger:    %s\n", v.Trigger)
		yellow.Fprintf(w, "  category:   %s\n", v.Category)
		yellow.Fprintf(w, "  plant part: %s\n", v.PlantPart)
		fmt.Fprintln(w, v.Output)
		return nil
	},
}

func policyPath(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("policy"); p != "" {
		return p
	}
	return os.Getenv("EDUFARMA_POLICY_FILE")
}

func init() {
	policyCheckCmd.Flags().StringP("symptoms", "s", "", "Symptom text used to pick the fallback template")

	policyCmd.AddCommand(policyShowCmd)
	policyCmd.AddCommand(policyCheckCmd)
}
