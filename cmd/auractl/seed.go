package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yukikurage/auratask/internal/services"
)

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Open an organization on a free trial with its owner",
	Long: `Create an organization and its OWNER account, as signup does.

Examples:
  auractl seed-admin --org "Acme" --name "Olivia" --email olivia@acme.test --password changeme123`,
	RunE: func(cmd *cobra.Command, args []string) error {
		orgName, _ := cmd.Flags().GetString("org")
		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")

		_, repos, err := openRepositories()
		if err != nil {
			return err
		}

		user, err := services.NewAuthService(repos.Users).Signup(cmd.Context(), services.SignupInput{
			Name:             name,
			Email:            email,
			Password:         password,
			OrganizationName: orgName,
		})
		if err != nil {
			return fmt.Errorf("seed owner: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created organization %d with owner %s (user %d)\n",
			user.OrganizationID, user.Email, user.ID)
		return nil
	},
}

func init() {
	seedAdminCmd.Flags().String("org", "", "Organization name")
	seedAdminCmd.Flags().String("name", "", "Owner display name")
	seedAdminCmd.Flags().String("email", "", "Owner email")
	seedAdminCmd.Flags().String("password", "", "Owner password")
	for _, flag := range []string{"org", "name", "email", "password"} {
		_ = seedAdminCmd.MarkFlagRequired(flag)
	}

	rootCmd.AddCommand(seedAdminCmd)
}
