package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"tourbooking/internal/config"
	"tourbooking/internal/database"
	"tourbooking/internal/domain"
	"tourbooking/internal/modules/payment"
	"tourbooking/internal/pkg/logger"
	"tourbooking/internal/server"
)

// env is built once per invocation by the root command's PersistentPreRunE.
type env struct {
	cfg *config.Config
	log *logrus.Logger
	db  *gorm.DB
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "tourctl",
		Short:         "Operations tooling for the tour booking backend",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.log = logger.New(cfg.LogLevel, cfg.LogFormat)
			db, err := database.Open(cmd.Context(), cfg, e.log)
			if err != nil {
				return err
			}
			e.db = db
			return nil
		},
	}
	root.AddCommand(
		newMigrateCmd(e),
		newSeedCmd(e),
		newReconcileCmd(e),
		newExpireCmd(e),
	)
	return root
}

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := database.Migrate(e.db); err != nil {
				return err
			}
			e.log.Info("schema up to date")
			return nil
		},
	}
}

func newSeedCmd(e *env) *cobra.Command {
	var adminEmail, adminPassword, adminName string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the catalog fixtures and optionally an admin account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := database.Migrate(e.db); err != nil {
				return err
			}
			if err := database.Seed(e.db, database.DefaultFixtures()); err != nil {
				return err
			}
			e.log.Info("catalog fixtures loaded")

			if adminEmail == "" {
				return nil
			}
			if len(adminPassword) < 8 {
				return fmt.Errorf("--admin-password must be at least 8 characters")
			}
			admin, err := database.SeedAdmin(e.db, adminEmail, adminPassword, adminName)
			if err != nil {
				return err
			}
			e.log.WithField("admin_id", admin.ID).WithField("email", admin.Email).Info("admin account ready")
			return nil
		},
	}
	cmd.Flags().StringVar(&adminEmail, "admin-email", "", "admin login e-mail")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "", "admin password (min 8 characters)")
	cmd.Flags().StringVar(&adminName, "admin-name", "Administrator", "admin display name")
	return cmd
}

func newReconcileCmd(e *env) *cobra.Command {
	var paymentID, reference string
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Re-check one payment with the provider and settle its booking",
		RunE: func(cmd *cobra.Command, _ []string) error {
			services := server.NewServices(e.cfg, e.db, e.log)
			res := services.Reconciler.Reconcile(cmd.Context(), payment.ReconcileInput{
				PaymentID:        paymentID,
				BookingReference: reference,
				Source:           domain.SourceCLI,
			})
			out, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			if !res.Success {
				return fmt.Errorf("reconcile failed: %s", res.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&paymentID, "payment-id", "", "provider payment id")
	cmd.Flags().StringVar(&reference, "reference", "", "booking reference to fall back on")
	_ = cmd.MarkFlagRequired("payment-id")
	return cmd
}

func newExpireCmd(e *env) *cobra.Command {
	var olderThan time.Duration
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "expire-pending",
		Short: "Cancel pending bookings that were never paid",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			cutoff := time.Now().UTC().Add(-olderThan)
			if dryRun {
				return countStale(cmd.Context(), e, cutoff)
			}
			services := server.NewServices(e.cfg, e.db, e.log)
			n, err := services.Bookings.ExpirePending(cmd.Context(), cutoff)
			if err != nil {
				return err
			}
			e.log.WithField("cancelled", n).WithField("cutoff", cutoff.Format(time.RFC3339)).Info("stale pending bookings expired")
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 72*time.Hour, "age after which an unpaid pending booking is cancelled")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only report how many bookings would be cancelled")
	return cmd
}

func countStale(ctx context.Context, e *env, cutoff time.Time) error {
	var n int64
	err := e.db.WithContext(ctx).Model(&domain.Booking{}).
		Where("status = ? AND created_at < ?", domain.BookingPending, cutoff).
		Count(&n).Error
	if err != nil {
		return err
	}
	e.log.WithField("would_cancel", n).Info("dry run")
	return nil
}
