package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/nanotrace/certification-backend/internal/config"
	"github.com/nanotrace/certification-backend/internal/database"
	"github.com/nanotrace/certification-backend/internal/tools/common"
)

type options struct {
	envFile             string
	bootstrapAdminEmail string
	ci                  bool
}

func (o *options) runner() common.Runner {
	return common.Runner{Tool: "seed", CI: o.ci}
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "seed",
		Short:         "Bootstrap data tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().StringVar(&opts.bootstrapAdminEmail, "bootstrap-admin-email", "", "override bootstrap admin email")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newApplyCommand(opts), newDryRunCommand(opts), newPromoteAdminCommand(opts))
	return cmd
}

func newApplyCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Migrate the schema and promote the bootstrap admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runner().Run("apply", func(ctx context.Context) ([]string, error) {
				cfg, db, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer closeDB(db)
				if err := database.Migrate(db); err != nil {
					return nil, err
				}
				report, err := database.Seed(db, adminEmail(cfg, opts))
				if err != nil {
					return nil, err
				}
				return describeReport(report, false), nil
			})
		},
	}
}

func newDryRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dry-run",
		Short: "Show what apply would change",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runner().Run("dry-run", func(ctx context.Context) ([]string, error) {
				cfg, db, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer closeDB(db)
				report, err := database.SeedDryRun(db, adminEmail(cfg, opts))
				if err != nil {
					return nil, err
				}
				return describeReport(report, true), nil
			})
		},
	}
}

func newPromoteAdminCommand(opts *options) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "promote-admin",
		Short: "Grant the admin capability to an existing account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runner().Run("promote-admin", func(ctx context.Context) ([]string, error) {
				email = strings.TrimSpace(email)
				if email == "" {
					return nil, errors.New("--email is required")
				}
				_, db, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer closeDB(db)
				if err := database.PromoteAdmin(db, email); err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return nil, fmt.Errorf("no account registered for %s", email)
					}
					return nil, err
				}
				return []string{"promoted to admin: " + email}, nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email of the account to promote")
	return cmd
}

func adminEmail(cfg *config.Config, opts *options) string {
	if opts.bootstrapAdminEmail != "" {
		return opts.bootstrapAdminEmail
	}
	return cfg.BootstrapAdminEmail
}

func describeReport(report *database.SeedReport, dryRun bool) []string {
	verb := "promoted"
	if dryRun {
		verb = "would promote"
	}
	var details []string
	switch {
	case report.AdminEmail == "":
		details = append(details, "no bootstrap admin email configured")
	case !report.AdminFound:
		details = append(details, "bootstrap admin not registered yet: "+report.AdminEmail)
	case report.AdminPromoted:
		details = append(details, fmt.Sprintf("%s bootstrap admin: %s", verb, report.AdminEmail))
	default:
		details = append(details, "bootstrap admin already has admin capability: "+report.AdminEmail)
	}
	details = append(details,
		fmt.Sprintf("users: %d", report.Users),
		fmt.Sprintf("certificates: %d", report.Certificates),
	)
	return details
}

func loadConfigDB(envFile string) (*config.Config, *gorm.DB, error) {
	if err := common.LoadEnvFile(envFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
