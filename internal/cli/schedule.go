package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/VPRamon/TSI-sub000/internal/ingest"
)

// StoreCmd uploads a schedule file.
func StoreCmd(load Loader) *cobra.Command {
	var populate bool

	cmd := &cobra.Command{
		Use:   "store <file>",
		Short: "Store a JSON or YAML schedule file",
		Long: `Store a schedule document. Re-storing identical content resolves to the
existing schedule id. With --populate the analytics are computed right away.

Examples:
  tsi-admin store night-60000.json
  tsi-admin store night-60000.yaml --populate`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := ingest.DecodeFile(args[0])
			if err != nil {
				return err
			}
			// Population runs inline below; the queue is not started here.
			off := false
			req.PopulateAnalytics = &off

			return withServices(cmd, load, func(svc *Services) error {
				ctx := commandContext(cmd)
				out := cmd.OutOrStdout()

				result, err := svc.Schedules.Store(ctx, req)
				if err != nil {
					return err
				}
				if result.Created {
					fmt.Fprintf(out, "%s schedule %d (%d blocks)\n", okStyle.Sprint("STORED "), result.ScheduleID, result.BlockCount)
				} else {
					fmt.Fprintf(out, "%s schedule %d already holds this content\n", warnStyle.Sprint("EXISTS "), result.ScheduleID)
				}
				fmt.Fprintf(out, "  checksum: %s\n", dimStyle.Sprint(result.Checksum))

				if !populate {
					return nil
				}
				run, err := svc.Analytics.Populate(ctx, result.ScheduleID)
				if err != nil {
					return err
				}
				printPopulate(cmd, run)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&populate, "populate", false, "compute analytics after storing")
	return cmd
}

// WatchCmd ingests schedule files dropped into a directory until interrupted.
func WatchCmd(load Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <dir>",
		Short: "Store schedule files dropped into a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			info, err := os.Stat(dir)
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", dir)
			}

			return withServices(cmd, load, func(svc *Services) error {
				ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
				defer stop()

				if svc.Start != nil {
					if err := svc.Start(ctx); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "watching %s (ctrl-c to stop)\n", dir)
				return ingest.NewWatcher(dir, svc.Schedules, svc.Logger).Run(ctx)
			})
		},
	}
}
