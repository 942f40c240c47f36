package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/felixgeelhaar/pacer/internal/infrastructure/watch"
	"github.com/felixgeelhaar/pacer/pkg/application"
	"github.com/felixgeelhaar/pacer/pkg/storage"
	"github.com/spf13/cobra"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-adapt schedules whenever a user's calendar file changes",
	Long: `Watch the workspace and re-adapt every scheduled goal of a user when
their calendar.yaml changes. Only work whose placed time no longer fits
the new calendar moves.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		if !services.Workspace.Repo.IsInitialized() {
			return MapError(fmt.Errorf("watch: %w", application.ErrNotInitialized))
		}
		usersDir := filepath.Join(services.Workspace.Repo.Dir(), storage.UsersDir)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		rec := &watch.Reconciler{
			Goals:     services.Goals,
			Schedules: services.Schedules,
			Logger:    services.Workspace.Logger,
		}
		report := func(outcomes []watch.Outcome) {
			for _, o := range outcomes {
				if o.Err != nil {
					fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("%s/%s: %v", o.UserID, o.GoalID, o.Err)))
					continue
				}
				fmt.Fprintf(out, "%s/%s: moved %s\n", o.UserID, o.GoalID, joinOrDash(o.Invalidated))
			}
		}

		w, err := watch.NewFSWatcher(watchDebounce, watch.CalendarFilter(), rec.Handler(ctx, usersDir, report))
		if err != nil {
			return err
		}
		if err := w.WatchRecursive(usersDir); err != nil {
			return err
		}
		fmt.Fprintf(out, "Watching %s for calendar changes...\n", usersDir)
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "Quiet period before reacting to a burst of changes")
	RootCmd.AddCommand(watchCmd)
}
