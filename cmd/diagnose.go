package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/edufarma/edufarma/internal/diagnosis"
	"github.com/edufarma/edufarma/internal/ui/components"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose [symptoms...]",
	Short: "Diagnose crop symptoms from the command line",
	Long:  "Diagnose crop symptoms. With no arguments the description is read from stdin.",
	RunE: func(cmd *cobra.Command, args []string) error {
		symptoms := strings.Join(args, " ")
		if len(args) == 0 {
			b, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read symptoms: %w", err)
			}
			symptoms = string(b)
		}
		if strings.TrimSpace(symptoms) == "" {
			return fmt.Errorf("symptoms text is required")
		}
		lang, _ := cmd.Flags().GetString("lang")
		asJSON, _ := cmd.Flags().GetBool("json")
		width, _ := cmd.Flags().GetInt("width")

		log, err := newLogger(cmd)
		if err != nil {
			return err
		}
		defer log.Sync()

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		provider, err := buildProvider(ctx, cmd, s.EventRepo(), log)
		if err != nil {
			return err
		}
		filter, err := loadFilter(cmd)
		if err != nil {
			return err
		}
		dcfg, err := resolveDiagnoserConfig()
		if err != nil {
			return err
		}
		d := diagnosis.NewDiagnoser(provider, dcfg,
			diagnosis.WithFilter(filter),
			diagnosis.WithRecorder(s.EventRepo()),
			diagnosis.WithLogger(log),
		)

		sp := spinner.New(spinner.CharSets[11], 100*time.Millisecond)
		sp.Suffix = " Diagnosing with " + provider.ModelID() + "..."
		sp.Writer = os.Stderr
		sp.Start()
		out, err := d.Run(ctx, diagnosis.SymptomReport{
			Symptoms: symptoms,
			Language: diagnosis.ParseLanguage(lang),
		})
		sp.Stop()
		if err != nil {
			return fmt.Errorf("diagnose: %w", err)
		}

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out.Result)
		}
		fmt.Fprintln(cmd.OutOrStdout(), components.DiagnosisCard(*out.Result, out.Source, out.Trigger, width))
		return nil
	},
}

func init() {
	diagnoseCmd.Flags().StringP("lang", "l", "en", "Response language: en or hi")
	diagnoseCmd.Flags().Bool("json", false, "Print the diagnosis as JSON")
	diagnoseCmd.Flags().Int("width", 80, "Card width in columns")
}
