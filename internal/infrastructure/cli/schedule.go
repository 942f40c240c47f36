package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/felixgeelhaar/pacer/pkg/application"
	"github.com/felixgeelhaar/pacer/pkg/domain/adapt"
	"github.com/felixgeelhaar/pacer/pkg/domain/feasibility"
	"github.com/felixgeelhaar/pacer/pkg/domain/planning"
	"github.com/felixgeelhaar/pacer/pkg/domain/recovery"
	"github.com/felixgeelhaar/pacer/pkg/domain/schedule"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Generate, adapt and recover schedules",
}

var scheduleChangesFile string

var scheduleGenerateCmd = &cobra.Command{
	Use:   "generate <goal-id>",
	Short: "Generate a fresh schedule, replacing the stored one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		out, err := services.Schedules.Generate(cmd.Context(), user, args[0])
		if err != nil {
			return MapError(fmt.Errorf("failed to generate schedule: %w", err))
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), out)
		}
		printSchedule(cmd.OutOrStdout(), out.Schedule)
		printConflicts(cmd.OutOrStdout(), out.Analysis)
		return nil
	},
}

var scheduleShowCmd = &cobra.Command{
	Use:   "show <goal-id>",
	Short: "Show the stored schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		sched, err := services.Schedules.Schedule(user, args[0])
		if err != nil {
			return MapError(fmt.Errorf("failed to load schedule: %w", err))
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), sched)
		}
		printSchedule(cmd.OutOrStdout(), sched)
		return nil
	},
}

var scheduleAnalyzeCmd = &cobra.Command{
	Use:   "analyze <goal-id>",
	Short: "Show feasibility windows and the critical path without saving",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		an, err := services.Schedules.Analyze(user, args[0])
		if err != nil {
			return MapError(fmt.Errorf("failed to analyze goal: %w", err))
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), an)
		}
		printAnalysis(cmd.OutOrStdout(), an)
		return nil
	},
}

var scheduleAdjustCmd = &cobra.Command{
	Use:   "adjust <goal-id>",
	Short: "Apply a YAML or JSON list of changes to the stored schedule",
	Example: `  # changes.yaml
  - kind: effort_reestimated
    task_id: t1
    effort: 6h
  - kind: task_completed
    task_id: t0
    at: 2026-03-02T11:00:00Z`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if scheduleChangesFile == "" {
			return NewCLIError("no changes given", "Pass --file changes.yaml", nil)
		}
		records, err := readChanges(scheduleChangesFile)
		if err != nil {
			return err
		}
		return runAdjust(cmd, args[0], records)
	},
}

var scheduleRecoverCmd = &cobra.Command{
	Use:   "recover <goal-id> [task-id...]",
	Short: "Re-anchor overdue tasks at the current time",
	Long: `Re-anchor overdue tasks at the current time. Without task ids the
overdue tasks are detected from the stored schedule.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		out, err := services.Schedules.Recover(cmd.Context(), user, args[0], args[1:])
		if errors.Is(err, recovery.ErrNothingOverdue) {
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("Nothing is overdue."))
			return nil
		}
		if err != nil {
			return MapError(fmt.Errorf("failed to recover overdue tasks: %w", err))
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), out)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Recovered overdue tasks: %s\n", joinOrDash(out.Overdue))
		printSchedule(w, out.Schedule)
		if out.SuggestedGoalDeadline != nil {
			fmt.Fprintln(w, warnStyle.Render("Suggested goal deadline: "+formatTime(*out.SuggestedGoalDeadline)))
		}
		return nil
	},
}

func readChanges(path string) ([]adapt.ChangeRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var records []adapt.ChangeRecord
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return records, nil
}

// runAdjust applies records to a goal's stored schedule and prints what moved.
func runAdjust(cmd *cobra.Command, goalID string, records []adapt.ChangeRecord) error {
	user, err := currentUser()
	if err != nil {
		return err
	}
	services, err := loadServicesForCurrentDir()
	if err != nil {
		return err
	}
	out, err := services.Schedules.Adjust(cmd.Context(), user, goalID, records)
	if err != nil {
		return MapError(fmt.Errorf("failed to adjust schedule: %w", err))
	}
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), out)
	}
	printAdjusted(cmd.OutOrStdout(), out)
	return nil
}

func printAdjusted(w io.Writer, out *application.Adjusted) {
	fmt.Fprintf(w, "Moved: %s\n", joinOrDash(out.Invalidated))
	printSchedule(w, out.Schedule)
	for _, c := range out.CapacityConflicts {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("Capacity conflict on %s: %s used of %s (%s)", c.Period, c.Used, c.Ceiling, joinOrDash(c.TaskIDs))))
	}
	if r := out.Regression; !r.Explained {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("Score regressed from %.1f to %.1f beyond tolerance %.1f", r.Prior, r.Score, r.Tolerance)))
	}
}

func printSchedule(w io.Writer, s *schedule.Schedule) {
	if s == nil {
		return
	}
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Schedule %s v%d (score %.1f)", s.GoalID, s.Version, s.Score)))
	rows := make([][]string, 0, len(s.Assignments))
	for _, a := range s.Assignments {
		rows = append(rows, []string{
			a.TaskID, formatTime(a.Start), formatTime(a.End), formatTime(a.Deadline), planning.EstimateOf(a.Effort).String(), fmt.Sprintf("%d", len(a.Segments)),
		})
	}
	if len(rows) > 0 {
		renderTable(w, []string{"Task", "Start", "End", "Deadline", "Effort", "Blocks"}, rows)
	}
	for _, u := range s.Unschedulable {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("Unschedulable %s: %s", u.TaskID, u.Reason)))
	}
	for _, sl := range s.MustSlip {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("Must slip %s: finishes %s, %s past %s", sl.TaskID, formatTime(sl.Finish), sl.Extension, formatTime(sl.Deadline))))
	}
}

func printConflicts(w io.Writer, an *feasibility.Analysis) {
	if an == nil {
		return
	}
	for _, c := range an.Conflicts {
		if c.Unbounded {
			fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("Infeasible %s: no room before %s, needs more than %s", c.TaskID, formatTime(c.EarliestFinish), c.Extension)))
			continue
		}
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("Infeasible %s: needs %s more", c.TaskID, c.Extension)))
	}
}

func printAnalysis(w io.Writer, an *feasibility.Analysis) {
	rows := make([][]string, 0, len(an.Order))
	for _, id := range an.Order {
		win, ok := an.Window(id)
		if !ok {
			continue
		}
		critical := ""
		if win.Critical {
			critical = "*"
		}
		rows = append(rows, []string{id + critical, formatTime(win.ES), formatTime(win.EF), formatTime(win.LF), win.Slack.String()})
	}
	renderTable(w, []string{"Task", "Earliest start", "Earliest finish", "Latest finish", "Slack"}, rows)
	fmt.Fprintf(w, "Critical path: %s\n", joinOrDash(an.CriticalPath))
	if an.Feasible() {
		fmt.Fprintln(w, okStyle.Render("Feasible"))
		return
	}
	printConflicts(w, an)
}

func init() {
	scheduleAdjustCmd.Flags().StringVarP(&scheduleChangesFile, "file", "f", "", "YAML or JSON file with a list of changes")

	scheduleCmd.AddCommand(scheduleGenerateCmd)
	scheduleCmd.AddCommand(scheduleShowCmd)
	scheduleCmd.AddCommand(scheduleAnalyzeCmd)
	scheduleCmd.AddCommand(scheduleAdjustCmd)
	scheduleCmd.AddCommand(scheduleRecoverCmd)
	RootCmd.AddCommand(scheduleCmd)
}
