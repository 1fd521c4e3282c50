package migrate

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/nanotrace/certification-backend/internal/config"
	"github.com/nanotrace/certification-backend/internal/database"
	"github.com/nanotrace/certification-backend/internal/di"
	"github.com/nanotrace/certification-backend/internal/tools/common"
)

type options struct {
	envFile string
	timeout time.Duration
	ci      bool
}

func (o *options) runner() common.Runner {
	return common.Runner{Tool: "migrate", CI: o.ci, Timeout: o.timeout}
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Database migration tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "operation timeout")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newUpCommand(opts), newStatusCommand(opts), newPlanCommand(opts))
	return cmd
}

func newUpCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runner().Run("up", func(ctx context.Context) ([]string, error) {
				if err := common.LoadEnvFile(opts.envFile); err != nil {
					return nil, err
				}
				runner, err := di.InitializeMigrationRunner()
				if err != nil {
					return nil, err
				}
				defer func() { _ = runner.Close() }()
				report, err := runner.Run()
				if err != nil {
					return nil, err
				}
				details := []string{"schema migration applied"}
				if report.AdminPromoted {
					details = append(details, "promoted bootstrap admin: "+report.AdminEmail)
				}
				return append(details, tableStatus(runner.DB())...), nil
			})
		},
	}
}

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report connectivity and which tables exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runner().Run("status", func(ctx context.Context) ([]string, error) {
				_, db, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer closeDB(db)
				if err := ping(ctx, db); err != nil {
					return nil, err
				}
				return append([]string{"database reachable"}, tableStatus(db)...), nil
			})
		},
	}
}

func newPlanCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "List tables a migration would create",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runner().Run("plan", func(ctx context.Context) ([]string, error) {
				_, db, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer closeDB(db)
				if err := ping(ctx, db); err != nil {
					return nil, err
				}
				missing := missingTables(db)
				if len(missing) == 0 {
					return []string{"all tables present; AutoMigrate would only reconcile columns and indexes"}, nil
				}
				details := make([]string, 0, len(missing)+1)
				for _, name := range missing {
					details = append(details, "would create table: "+name)
				}
				return append(details, "no mutation executed in plan mode"), nil
			})
		},
	}
}

func tableStatus(db *gorm.DB) []string {
	out := make([]string, 0, len(database.Models()))
	for _, m := range database.Models() {
		name := tableName(db, m)
		state := "missing"
		if db.Migrator().HasTable(m) {
			state = "present"
		}
		out = append(out, fmt.Sprintf("table %s: %s", name, state))
	}
	return out
}

func missingTables(db *gorm.DB) []string {
	var out []string
	for _, m := range database.Models() {
		if !db.Migrator().HasTable(m) {
			out = append(out, tableName(db, m))
		}
	}
	return out
}

func tableName(db *gorm.DB, model any) string {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return fmt.Sprintf("%T", model)
	}
	return stmt.Schema.Table
}

func ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	return nil
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
