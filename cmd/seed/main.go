package main

import (
	"fmt"
	"log"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/oggyb/muzz-match/internal/auth"
	"github.com/oggyb/muzz-match/internal/config"
	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/logger"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func rootCmd() *cobra.Command {
	var (
		minimal bool
		users   int
	)
	cmd := &cobra.Command{
		Use:          "seed",
		Short:        "Reset the database and load demo data",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.New()
			logger.InitFromConfig(cfg)

			database, err := db.NewDB(cfg, logger.L())
			if err != nil {
				return fmt.Errorf("failed to init db: %w", err)
			}

			if minimal {
				err = db.SeedMinimalTestData(database)
			} else {
				err = db.SeedTestData(database, users)
			}
			if err != nil {
				return fmt.Errorf("failed to seed: %w", err)
			}

			log.Println("Seeding completed.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&minimal, "minimal", false, "load the three-user fixture instead of the demo population")
	cmd.Flags().IntVar(&users, "users", db.DefaultSeedUsers, "number of demo users")

	cmd.AddCommand(tokenCmd())
	return cmd
}

// tokenCmd prints a bearer token for a seeded user, for curl and grpcurl.
func tokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token <user-id>",
		Short: "Print a signed access token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || userID == 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}

			tokens, err := auth.NewTokenService(config.New())
			if err != nil {
				return err
			}
			token, err := tokens.Issue(userID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}
