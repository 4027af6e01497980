package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/VPRamon/TSI-sub000/internal/models"
)

// PopulateCmd computes analytics, validation and summary for a schedule.
func PopulateCmd(load Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "populate <schedule-id>",
		Short: "Compute analytics, validation and summary for a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseScheduleID(args[0])
			if err != nil {
				return err
			}
			return withServices(cmd, load, func(svc *Services) error {
				result, err := svc.Analytics.Populate(commandContext(cmd), id)
				if err != nil {
					return err
				}
				printPopulate(cmd, result)
				return nil
			})
		},
	}
}

func printPopulate(cmd *cobra.Command, result *models.PopulateResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s schedule %d in %s\n", okStyle.Sprint("POPULATED"), result.ScheduleID, result.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "  blocks:     %d\n", result.BlocksProcessed)
	fmt.Fprintf(out, "  findings:   %d\n", result.FindingsWritten)
	impossible := fmt.Sprint(result.ImpossibleBlocks)
	if result.ImpossibleBlocks > 0 {
		impossible = errStyle.Sprint(impossible)
	}
	fmt.Fprintf(out, "  impossible: %s\n", impossible)
}

// ReportCmd prints or exports the validation report.
func ReportCmd(load Loader) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "report <schedule-id>",
		Short: "Show the validation report of a schedule",
		Long: `Show the validation report of a schedule.

Formats:
  text  colored listing on stdout (default)
  csv   spreadsheet export
  pdf   printable export

Examples:
  tsi-admin report 12
  tsi-admin report 12 --format pdf --output schedule-12.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseScheduleID(args[0])
			if err != nil {
				return err
			}
			return withServices(cmd, load, func(svc *Services) error {
				ctx := commandContext(cmd)
				if format == "text" {
					report, _, err := svc.Analytics.FetchValidationReport(ctx, id)
					if err != nil {
						return err
					}
					printReport(cmd.OutOrStdout(), report)
					return nil
				}

				file, err := svc.Exports.ValidationReport(ctx, id, format)
				if err != nil {
					return err
				}
				if output == "" {
					output = file.Filename
				}
				if output == "-" {
					_, err = cmd.OutOrStdout().Write(file.Payload)
					return err
				}
				if err := os.WriteFile(output, file.Payload, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", output, len(file.Payload))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "text, csv or pdf")
	cmd.Flags().StringVarP(&output, "output", "o", "", "export path, - for stdout")
	return cmd
}

func printReport(out io.Writer, report *models.ValidationReport) {
	fmt.Fprintf(out, "Validation report for schedule %d\n", report.ScheduleID)
	fmt.Fprintf(out, "  %d blocks, %s valid\n\n", report.TotalBlocks, okStyle.Sprint(report.ValidBlocks))

	section := func(title string, issues []models.ValidationIssue, label string) {
		if len(issues) == 0 {
			return
		}
		fmt.Fprintf(out, "%s (%d)\n", title, len(issues))
		for _, issue := range issues {
			block := issue.OriginalBlockID
			if block == "" {
				block = fmt.Sprintf("#%d", issue.BlockID)
			}
			fmt.Fprintf(out, "  %s %-12s %-22s %s\n", label, block, issue.IssueType, issue.Description)
		}
		fmt.Fprintln(out)
	}
	section("Impossible", report.Impossible, errStyle.Sprint("IMPOSSIBLE"))
	section("Errors", report.Errors, errStyle.Sprint("ERROR     "))
	section("Warnings", report.Warnings, warnStyle.Sprint("WARNING   "))
}

// SummaryCmd prints the schedule summary.
func SummaryCmd(load Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <schedule-id>",
		Short: "Show the schedule-level summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseScheduleID(args[0])
			if err != nil {
				return err
			}
			return withServices(cmd, load, func(svc *Services) error {
				summary, _, err := svc.Analytics.FetchSummary(commandContext(cmd), id)
				if err != nil {
					return err
				}
				printSummary(cmd.OutOrStdout(), summary)
				return nil
			})
		},
	}
}

func printSummary(out io.Writer, s *models.ScheduleSummary) {
	fmt.Fprintf(out, "Summary of schedule %d\n", s.ScheduleID)
	fmt.Fprintf(out, "  blocks:          %d total, %d scheduled, %d unscheduled, %d impossible\n",
		s.TotalBlocks, s.ScheduledBlocks, s.UnscheduledBlocks, s.ImpossibleBlocks)
	fmt.Fprintf(out, "  scheduling rate: %s\n", okStyle.Sprintf("%.1f%%", s.SchedulingRate*100))
	fmt.Fprintf(out, "  priority:        min %s  max %s  mean %s  median %s\n",
		optional(s.PriorityMin), optional(s.PriorityMax), optional(s.PriorityMean), optional(s.PriorityMedian))
	fmt.Fprintf(out, "  hours:           visible %.2f  requested %.2f  scheduled %.2f\n",
		s.VisibilityTotalHours, s.RequestedTotalHours, s.ScheduledTotalHours)
	if s.GapCount != nil {
		fmt.Fprintf(out, "  gaps:            %d (mean %s h, median %s h)\n", *s.GapCount, optional(s.GapMeanHours), optional(s.GapMedianHours))
	} else {
		fmt.Fprintf(out, "  gaps:            %s\n", dimStyle.Sprint("n/a"))
	}
}

func optional(v *float64) string {
	if v == nil {
		return dimStyle.Sprint("-")
	}
	return fmt.Sprintf("%.2f", *v)
}

// DeleteAnalyticsCmd removes derived products of a schedule.
func DeleteAnalyticsCmd(load Loader) *cobra.Command {
	var withValidation bool

	cmd := &cobra.Command{
		Use:   "delete-analytics <schedule-id>",
		Short: "Delete block analytics and summary of a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseScheduleID(args[0])
			if err != nil {
				return err
			}
			return withServices(cmd, load, func(svc *Services) error {
				ctx := commandContext(cmd)
				out := cmd.OutOrStdout()

				removed, err := svc.Analytics.DeleteAnalytics(ctx, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s %d analytics rows of schedule %d\n", warnStyle.Sprint("DELETED"), removed, id)

				if withValidation {
					removed, err := svc.Analytics.DeleteValidation(ctx, id)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%s %d validation rows of schedule %d\n", warnStyle.Sprint("DELETED"), removed, id)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&withValidation, "validation", false, "also delete validation results")
	return cmd
}
