package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felixgeelhaar/pacer/internal/infrastructure/daemon"
	"github.com/felixgeelhaar/pacer/pkg/application"
	"github.com/spf13/cobra"
)

var (
	daemonOnce bool
	daemonSpec string
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Recover overdue work for every user on a cron schedule",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		cfg := services.Workspace.Config
		spec := cfg.Daemon.SweepSpec
		if daemonSpec != "" {
			spec = daemonSpec
		}
		d, err := daemon.New(services.Overdue, spec, cfg.Location(), services.Workspace.Logger)
		if err != nil {
			return NewCLIError("invalid sweep schedule", "Use a five-field cron spec such as '*/15 * * * *'", err)
		}
		out := cmd.OutOrStdout()

		if daemonOnce {
			report, err := d.RunOnce(cmd.Context())
			if err != nil {
				return MapError(fmt.Errorf("sweep failed: %w", err))
			}
			if jsonOutput {
				return writeJSON(out, report)
			}
			printSweep(out, report)
			return nil
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if !jsonOutput {
			d.OnReport = func(r *application.SweepReport) { printSweep(out, r) }
		}
		fmt.Fprintf(out, "Sweeping on %q, next run at %s\n", spec, formatTime(d.Next(time.Now())))
		return d.Run(ctx)
	},
}

func printSweep(w io.Writer, r *application.SweepReport) {
	if len(r.Goals) == 0 {
		fmt.Fprintln(w, okStyle.Render("No overdue work."))
		return
	}
	rows := make([][]string, 0, len(r.Goals))
	for _, g := range r.Goals {
		status := "recovered"
		if g.Err != "" {
			status = g.Err
		}
		rows = append(rows, []string{g.UserID, g.GoalID, joinOrDash(g.Overdue), joinOrDash(g.MustSlip), status})
	}
	renderTable(w, []string{"User", "Goal", "Overdue", "Must slip", "Status"}, rows)
	if r.Failed > 0 {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("%d goals failed", r.Failed)))
	}
}

func init() {
	daemonCmd.Flags().BoolVar(&daemonOnce, "once", false, "Run a single sweep and exit")
	daemonCmd.Flags().StringVar(&daemonSpec, "spec", "", "Cron spec overriding daemon.sweep_spec")
	RootCmd.AddCommand(daemonCmd)
}
