package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yourusername/mediagrab-go/internal/domain"
	"github.com/yourusername/mediagrab-go/internal/infrastructure"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Manage user subscription plans",
}

var planSetCmd = &cobra.Command{
	Use:   "set [user-id] [free|pro]",
	Short: "Set a user's plan",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}

		tier := domain.PlanTier(args[1])
		if !domain.ValidatePlanTier(tier) {
			return fmt.Errorf("invalid plan %q (want free or pro)", args[1])
		}

		status := domain.SubscriptionActive
		if canceled, _ := cmd.Flags().GetBool("canceled"); canceled {
			status = domain.SubscriptionCanceled
		}

		db, err := infrastructure.OpenDatabase(&config.Database)
		if err != nil {
			return err
		}
		defer infrastructure.CloseDatabase(db)

		store := infrastructure.NewGormSubscriptionStore(db)
		if err := store.SetPlan(context.Background(), args[0], tier, status); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "User %s: plan=%s status=%s\n", args[0], tier, status)
		return nil
	},
}

func init() {
	planSetCmd.Flags().Bool("canceled", false, "Record the subscription as canceled")
	planCmd.AddCommand(planSetCmd)
}
