package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yukikurage/auratask/internal/models"
	"github.com/yukikurage/auratask/internal/permissions"
	"github.com/yukikurage/auratask/internal/services"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Re-evaluate every member's performance",
	Long: `Recompute performance metrics for all members of an organization and
regenerate their evaluations with the configured AI provider. Without an AI key
the rule-based evaluation is stored instead.

Examples:
  auractl monitor --org 1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		orgID, _ := cmd.Flags().GetUint64("org")

		cfg, repos, err := openRepositories()
		if err != nil {
			return err
		}

		var evaluator services.Evaluator
		if completer := services.NewCompleter(cfg.AIProvider, cfg.AIModel, cfg.OpenAIAPIKey, cfg.AnthropicAPIKey); completer != nil {
			evaluator = services.NewLLMEvaluator(completer)
		}
		performance := services.NewPerformanceService(repos, evaluator, newLogger(), cfg.MonitorWorkers)

		// runs with owner rights inside the organization
		operator := permissions.NewActor(0, orgID, models.RoleOwner)
		result, err := performance.MonitorAllMembers(cmd.Context(), operator)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Evaluated %d member(s)\n", result.Evaluated)
		for _, e := range result.Errors {
			fmt.Fprintln(out, "  "+e)
		}
		if !result.Success {
			return fmt.Errorf("%d evaluation(s) failed", len(result.Errors))
		}
		return nil
	},
}

func init() {
	monitorCmd.Flags().Uint64("org", 0, "Organization ID")
	_ = monitorCmd.MarkFlagRequired("org")

	rootCmd.AddCommand(monitorCmd)
}
