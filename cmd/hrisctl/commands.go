package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/app"
	"github.com/cmlabs-hris/hris-attendance-go/internal/config"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/jwt"
	attendanceService "github.com/cmlabs-hris/hris-attendance-go/internal/service/attendance"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return database.RunMigrations(a.DB)
			})
		},
	}
}

func newSyncCmd() *cobra.Command {
	var skipAggregate bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull the terminal once and rebuild today's attendance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if skipAggregate {
					report, err := a.SyncService.Sync(ctx)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), report)
				}
				return a.Jobs.SyncAndAggregate(ctx)
			})
		},
	}
	cmd.Flags().BoolVar(&skipAggregate, "skip-aggregate", false, "only store the terminal's punches")
	return cmd
}

func newAggregateCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Rebuild daily attendance for one date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				day := time.Now().In(a.Policy.Location)
				if date != "" {
					parsed, err := time.ParseInLocation(attendance.DateLayout, date, a.Policy.Location)
					if err != nil {
						return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
					}
					day = parsed
				}

				report, err := a.Jobs.AggregateDate(ctx, day)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), attendance.NewAggregationReportResponse(report))
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "civil date to aggregate, YYYY-MM-DD (default today)")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var filter attendance.HistoryFilter

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print an employee's attendance history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.AttendanceService.History(ctx, filter)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), items)
			})
		},
	}
	cmd.Flags().StringVar(&filter.EmpID, "emp", "", "employee id")
	cmd.Flags().StringVar(&filter.From, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&filter.To, "to", "", "last date, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("emp")
	return cmd
}

func newHolidaysCmd() *cobra.Command {
	holidays := &cobra.Command{
		Use:   "holidays",
		Short: "Manage the holiday calendar",
	}

	holidays.AddCommand(&cobra.Command{
		Use:   "import <file.ics>",
		Short: "Upsert every all-day event of an iCalendar file as a holiday",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				parsed, err := attendanceService.ParseHolidayCalendar(f, a.Policy.Location)
				if err != nil {
					return err
				}
				for _, h := range parsed {
					if err := a.Holidays.Upsert(ctx, h); err != nil {
						return fmt.Errorf("upsert holiday %s: %w", h.Date.Format(attendance.DateLayout), err)
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d holidays\n", len(parsed))
				return nil
			})
		},
	})
	return holidays
}

// newTokenCmd issues an access token for local testing. Production tokens
// come from the identity provider.
func newTokenCmd() *cobra.Command {
	var (
		empID string
		role  string
		ttl   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.App.Env == "production" {
				return fmt.Errorf("token issuing is disabled in production")
			}

			token, exp, err := jwt.NewJWTService(cfg.JWT.Secret).GenerateAccessToken(empID, employee.Role(role), ttl)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"access_token": token,
				"expires_at":   time.Unix(exp, 0).UTC(),
			})
		},
	}
	cmd.Flags().StringVar(&empID, "emp", "", "employee id")
	cmd.Flags().StringVar(&role, "role", string(employee.RoleEmployee), "employee, manager, hr or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("emp")
	return cmd
}
