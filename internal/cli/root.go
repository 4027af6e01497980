// Package cli implements the tsi-admin operator commands.
package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/VPRamon/TSI-sub000/internal/dto"
	"github.com/VPRamon/TSI-sub000/internal/models"
	"github.com/VPRamon/TSI-sub000/internal/service"
)

type scheduleStorer interface {
	Store(ctx context.Context, req dto.StoreScheduleRequest) (*models.StoreResult, error)
}

type analyticsRunner interface {
	Populate(ctx context.Context, scheduleID int64) (*models.PopulateResult, error)
	DeleteAnalytics(ctx context.Context, scheduleID int64) (int64, error)
	DeleteValidation(ctx context.Context, scheduleID int64) (int64, error)
	FetchValidationReport(ctx context.Context, scheduleID int64) (*models.ValidationReport, bool, error)
	FetchSummary(ctx context.Context, scheduleID int64) (*models.ScheduleSummary, bool, error)
}

type reportExporter interface {
	ValidationReport(ctx context.Context, scheduleID int64, format string) (*service.ExportedFile, error)
}

// TokenIssuer mints access tokens.
type TokenIssuer interface {
	IssueToken(subject string, role models.UserRole, ttl time.Duration) (*service.IssuedToken, error)
}

// Services is what the commands operate on.
type Services struct {
	Schedules scheduleStorer
	Analytics analyticsRunner
	Exports   reportExporter
	Logger    *zap.Logger

	// Start launches background workers; used by long-running commands.
	Start func(ctx context.Context) error
	Close func() error
}

// Loader builds Services on demand so commands that fail argument parsing
// never touch the database.
type Loader func(ctx context.Context) (*Services, error)

// AuthLoader builds the token issuer, which needs no database.
type AuthLoader func() (TokenIssuer, error)

var (
	okStyle   = color.New(color.FgGreen)
	warnStyle = color.New(color.FgYellow)
	errStyle  = color.New(color.FgRed, color.Bold)
	dimStyle  = color.New(color.Faint)
)

// RootCmd returns the tsi-admin command tree.
func RootCmd(load Loader, auth AuthLoader) *cobra.Command {
	root := &cobra.Command{
		Use:   "tsi-admin",
		Short: "Operate the telescope schedule analytics pipeline",
		Long: `tsi-admin stores schedules, runs the analytics population and prints
validation reports and summaries straight against the database.`,
		SilenceUsage: true,
	}

	root.AddCommand(StoreCmd(load))
	root.AddCommand(PopulateCmd(load))
	root.AddCommand(ReportCmd(load))
	root.AddCommand(SummaryCmd(load))
	root.AddCommand(DeleteAnalyticsCmd(load))
	root.AddCommand(WatchCmd(load))
	root.AddCommand(TokenCmd(auth))
	return root
}

func withServices(cmd *cobra.Command, load Loader, fn func(*Services) error) error {
	svc, err := load(commandContext(cmd))
	if err != nil {
		return err
	}
	if svc.Close != nil {
		defer func() {
			if cerr := svc.Close(); cerr != nil && svc.Logger != nil {
				svc.Logger.Warn("shutdown failed", zap.Error(cerr))
			}
		}()
	}
	return fn(svc)
}

func parseScheduleID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid schedule id %q", raw)
	}
	return id, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
