package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edufarma/edufarma/internal/diagnosis"
	"github.com/edufarma/edufarma/internal/llm"
	"github.com/edufarma/edufarma/internal/logger"
	"github.com/edufarma/edufarma/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "edufarma",
	Short: "Safe AI crop diagnosis for farmers",
	Long: "EduFarma turns a farmer's symptom description into a crop diagnosis. " +
		"Every model answer passes a safety filter and unsafe advice is replaced " +
		"with a conservative integrated pest management plan.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides EDUFARMA_DB env var)")
	rootCmd.PersistentFlags().String("policy", "", "Path to a YAML safety policy (overrides EDUFARMA_POLICY_FILE env var)")
	rootCmd.PersistentFlags().String("provider", "", "LLM provider: groq, openai, anthropic, gemini, openrouter or mock")
	rootCmd.PersistentFlags().String("log-mode", "dev", "Log format: dev or prod")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(diagnoseCmd)
	rootCmd.AddCommand(policyCmd)
	rootCmd.AddCommand(diagnosesCmd)
	rootCmd.AddCommand(weatherCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then EDUFARMA_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}

func openStore(cmd *cobra.Command) (*store.Store, error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

func newLogger(cmd *cobra.Command) (*logger.Logger, error) {
	mode, _ := cmd.Flags().GetString("log-mode")
	log, err := logger.New(mode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

// loadFilter builds the safety filter from --policy, EDUFARMA_POLICY_FILE or
// the built-in denylist.
func loadFilter(cmd *cobra.Command) (*diagnosis.Filter, error) {
	path, _ := cmd.Flags().GetString("policy")
	if path == "" {
		path = strings.TrimSpace(os.Getenv("EDUFARMA_POLICY_FILE"))
	}
	if path == "" {
		return diagnosis.DefaultFilter(), nil
	}
	p, err := diagnosis.LoadPolicy(path)
	if err != nil {
		return nil, err
	}
	return diagnosis.NewFilter(p)
}

// resolveLLMConfig reads EDUFARMA_* settings, applies --provider, and falls
// back to the first standard API key found when nothing is configured.
func resolveLLMConfig(cmd *cobra.Command) (llm.Config, error) {
	cfg := llm.ConfigFromEnv()
	flagProvider, _ := cmd.Flags().GetString("provider")
	if flagProvider != "" {
		cfg.Provider = flagProvider
	}
	if err := cfg.Validate(); err != nil {
		if flagProvider == "" && os.Getenv("EDUFARMA_LLM_PROVIDER") == "" {
			if discovered, ok := llm.DiscoverConfig(); ok {
				return discovered, nil
			}
		}
		return cfg, err
	}
	return cfg, nil
}

// resolveDiagnoserConfig reads the diagnoser overrides and rejects values
// outside the allowed sampling range.
func resolveDiagnoserConfig() (diagnosis.DiagnoserConfig, error) {
	cfg, err := diagnosis.DiagnoserConfigFromEnv()
	if err != nil {
		return cfg, fmt.Errorf("diagnoser config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("diagnoser config: %w", err)
	}
	return cfg, nil
}

func buildProvider(ctx context.Context, cmd *cobra.Command, events store.LLMEventWriter, log *logger.Logger) (llm.Provider, error) {
	cfg, err := resolveLLMConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("llm config: %w", err)
	}
	return llm.NewProvider(ctx, cfg, events, log)
}
