package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yukikurage/auratask/internal/services"
)

var recountCmd = &cobra.Command{
	Use:   "recount",
	Short: "Rebuild cached active-task counts from the task table",
	Long: `Recount every member's active tasks (TO_DO, IN_PROGRESS, BLOCKED) and
overwrite the cached tasks_count. Running it twice changes nothing the second time.

Examples:
  # Fix counts for organization 1
  auractl recount --org 1

  # Report drift without writing
  auractl recount --org 1 --verify`,
	RunE: func(cmd *cobra.Command, args []string) error {
		orgID, _ := cmd.Flags().GetUint64("org")
		verify, _ := cmd.Flags().GetBool("verify")

		_, repos, err := openRepositories()
		if err != nil {
			return err
		}
		workload := services.NewWorkloadService(repos, newLogger())
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if !verify {
			changed, err := workload.RecountOrganization(ctx, orgID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Recounted organization %d: %d member(s) corrected\n", orgID, changed)
			return nil
		}

		users, err := repos.Users.ListByOrganization(ctx, orgID)
		if err != nil {
			return err
		}
		drift := 0
		for _, u := range users {
			cached, actual, err := workload.Verify(ctx, u.ID, orgID)
			if err != nil {
				return err
			}
			if cached != actual {
				drift++
				fmt.Fprintf(out, "%-30s cached=%d actual=%d\n", u.Email, cached, actual)
			}
		}
		fmt.Fprintf(out, "%d of %d member(s) out of sync\n", drift, len(users))
		if drift > 0 {
			return fmt.Errorf("organization %d has %d stale counter(s)", orgID, drift)
		}
		return nil
	},
}

func init() {
	recountCmd.Flags().Uint64("org", 0, "Organization ID")
	recountCmd.Flags().Bool("verify", false, "Only compare cached and actual counts")
	_ = recountCmd.MarkFlagRequired("org")

	rootCmd.AddCommand(recountCmd)
}
