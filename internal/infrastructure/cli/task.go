package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/felixgeelhaar/pacer/pkg/domain/adapt"
	"github.com/felixgeelhaar/pacer/pkg/domain/planning"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage the tasks of a goal",
}

var (
	taskID          string
	taskTitle       string
	taskDescription string
	taskEstimate    string
	taskPriority    string
	taskDependsOn   []string
	taskDeadline    string
	taskCompletedAt string
)

var taskListCmd = &cobra.Command{
	Use:   "list <goal-id>",
	Short: "List a goal's tasks",
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
		tasks, err := services.Goals.Tasks(user, args[0])
		if err != nil {
			return MapError(fmt.Errorf("failed to list tasks: %w", err))
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), tasks)
		}
		printTasks(cmd, tasks)
		return nil
	},
}

func printTasks(cmd *cobra.Command, tasks []planning.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No tasks.")
		return
	}
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		progress := "-"
		if !t.Progress.IsZero() {
			progress = t.Progress.String()
		}
		rows = append(rows, []string{
			t.ID, t.Title, t.Effort.String(), progress, t.Priority.DisplayName(), t.Status.DisplayName(), joinOrDash(t.DependsOn),
		})
	}
	renderTable(cmd.OutOrStdout(), []string{"ID", "Title", "Effort", "Done", "Priority", "Status", "Depends on"}, rows)
}

var taskImportCmd = &cobra.Command{
	Use:   "import <goal-id> <file>",
	Short: "Replace a goal's tasks with draft tasks from a YAML or JSON file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}
		drafts, err := readDrafts(args[1])
		if err != nil {
			return err
		}
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		g, err := services.Goals.ImportDrafts(cmd.Context(), user, args[0], drafts)
		if err != nil {
			return MapError(fmt.Errorf("failed to import tasks: %w", err))
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), g.Tasks())
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d tasks into goal %s\n", len(g.Tasks()), args[0])
		return nil
	},
}

// readDrafts accepts a bare list of drafts or an object with a tasks key.
func readDrafts(path string) ([]planning.DraftTask, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var list []planning.DraftTask
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var doc struct {
		Tasks []planning.DraftTask `yaml:"tasks"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return doc.Tasks, nil
}

var taskAddCmd = &cobra.Command{
	Use:   "add <goal-id>",
	Short: "Add a task to a scheduled goal and fit it into the schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if taskTitle == "" || taskEstimate == "" {
			return NewCLIError("--title and --estimate are required", "Example: pacer task add g1 --title 'Write tests' --estimate 3h", nil)
		}
		effort, err := planning.ParseEstimate(taskEstimate)
		if err != nil {
			return err
		}
		priority := planning.PriorityMedium
		if taskPriority != "" {
			if priority, err = planning.ParseTaskPriority(taskPriority); err != nil {
				return err
			}
		}
		task := &planning.Task{
			ID:          taskID,
			Title:       taskTitle,
			Description: taskDescription,
			Effort:      effort,
			Priority:    priority,
			DependsOn:   taskDependsOn,
		}
		if taskDeadline != "" {
			d, err := parseTime(taskDeadline)
			if err != nil {
				return err
			}
			task.Deadline = &d
		}
		return runAdjust(cmd, args[0], []adapt.ChangeRecord{{Kind: adapt.KindTaskAdded, Task: task}})
	},
}

var taskRemoveCmd = &cobra.Command{
	Use:   "remove <goal-id> <task-id>",
	Short: "Remove a task and release its time",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAdjust(cmd, args[0], []adapt.ChangeRecord{{Kind: adapt.KindTaskRemoved, TaskID: args[1]}})
	},
}

var taskEstimateCmd = &cobra.Command{
	Use:   "estimate <goal-id> <task-id> <effort>",
	Short: "Re-estimate a task's effort",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := planning.ParseEstimate(args[2]); err != nil {
			return err
		}
		return runAdjust(cmd, args[0], []adapt.ChangeRecord{{Kind: adapt.KindEffortReestimated, TaskID: args[1], Effort: args[2]}})
	},
}

var taskDepsCmd = &cobra.Command{
	Use:   "deps <goal-id> <task-id> [depends-on...]",
	Short: "Replace a task's dependencies",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps := args[2:]
		if deps == nil {
			deps = []string{}
		}
		return runAdjust(cmd, args[0], []adapt.ChangeRecord{{Kind: adapt.KindDependenciesChanged, TaskID: args[1], DependsOn: deps}})
	},
}

var taskDeadlineCmd = &cobra.Command{
	Use:   "deadline <goal-id> <task-id> <time|none>",
	Short: "Set or clear a task's own deadline",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec := adapt.ChangeRecord{Kind: adapt.KindDeadlineChanged, TaskID: args[1]}
		if !strings.EqualFold(args[2], "none") {
			d, err := parseTime(args[2])
			if err != nil {
				return err
			}
			rec.Deadline = &d
		}
		return runAdjust(cmd, args[0], []adapt.ChangeRecord{rec})
	},
}

var taskCompleteCmd = &cobra.Command{
	Use:   "complete <goal-id> <task-id>",
	Short: "Mark a task completed and pull successors forward",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		at := time.Now().UTC()
		if taskCompletedAt != "" {
			var err error
			if at, err = parseTime(taskCompletedAt); err != nil {
				return err
			}
		}
		return runAdjust(cmd, args[0], []adapt.ChangeRecord{{Kind: adapt.KindTaskCompleted, TaskID: args[1], At: &at}})
	},
}

var taskStartCmd = &cobra.Command{
	Use:   "start <goal-id> <task-id>",
	Short: "Start a task whose predecessors are completed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		t, err := services.Goals.StartTask(cmd.Context(), user, args[0], args[1])
		if err != nil {
			return MapError(fmt.Errorf("failed to start task: %w", err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Task %s is %s\n", t.ID, t.Status)
		return nil
	},
}

var taskProgressCmd = &cobra.Command{
	Use:   "progress <goal-id> <task-id> <effort-done>",
	Short: "Record effort already spent on a task",
	Long: `Record effort already spent on a task. The schedule is left alone;
the next adjustment or recovery schedules only the remaining effort.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}
		done, err := planning.ParseEstimate(args[2])
		if err != nil {
			return err
		}
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		t, err := services.Goals.LogProgress(cmd.Context(), user, args[0], args[1], done)
		if err != nil {
			return MapError(fmt.Errorf("failed to log progress: %w", err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Task %s: %s of %s done\n", t.ID, t.Progress, t.Effort)
		return nil
	},
}

func init() {
	taskAddCmd.Flags().StringVar(&taskID, "id", "", "Task id (generated when empty)")
	taskAddCmd.Flags().StringVarP(&taskTitle, "title", "t", "", "Task title, starting with a verb")
	taskAddCmd.Flags().StringVar(&taskDescription, "description", "", "Completion criterion")
	taskAddCmd.Flags().StringVarP(&taskEstimate, "estimate", "e", "", "Effort such as 30m, 4h or 2d")
	taskAddCmd.Flags().StringVarP(&taskPriority, "priority", "p", "", "low, medium, high or critical")
	taskAddCmd.Flags().StringSliceVar(&taskDependsOn, "depends-on", nil, "Ids of tasks that must finish first")
	taskAddCmd.Flags().StringVar(&taskDeadline, "deadline", "", "Task deadline (defaults to the goal deadline)")
	taskCompleteCmd.Flags().StringVar(&taskCompletedAt, "at", "", "Completion time (default now)")

	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskImportCmd)
	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskRemoveCmd)
	taskCmd.AddCommand(taskEstimateCmd)
	taskCmd.AddCommand(taskDepsCmd)
	taskCmd.AddCommand(taskDeadlineCmd)
	taskCmd.AddCommand(taskCompleteCmd)
	taskCmd.AddCommand(taskStartCmd)
	taskCmd.AddCommand(taskProgressCmd)
	RootCmd.AddCommand(taskCmd)
}
