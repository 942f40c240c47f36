package cli

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/pacer/pkg/domain/planning"
	"github.com/spf13/cobra"
)

var goalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Create and inspect goals",
}

var (
	goalDeadline   string
	goalComplexity string
	goalContext    string
)

var goalCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a goal with a deadline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}
		if goalDeadline == "" {
			return NewCLIError("a deadline is required", "Pass --deadline 2026-03-06 or an RFC 3339 time", nil)
		}
		deadline, err := parseTime(goalDeadline)
		if err != nil {
			return err
		}
		var tier planning.ComplexityTier
		if goalComplexity != "" {
			if tier, err = planning.ParseComplexityTier(goalComplexity); err != nil {
				return err
			}
		}

		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		goal, err := services.Goals.CreateGoal(cmd.Context(), user, args[0], deadline, tier)
		if err != nil {
			return MapError(fmt.Errorf("failed to create goal: %w", err))
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), goal)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created goal %s (%s), due %s\n", goal.ID, goal.Title, formatTime(goal.Deadline))
		return nil
	},
}

var goalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your goals",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		goals, err := services.Goals.Goals(user)
		if err != nil {
			return MapError(fmt.Errorf("failed to list goals: %w", err))
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), goals)
		}
		if len(goals) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No goals yet. Run 'pacer goal create'.")
			return nil
		}
		rows := make([][]string, 0, len(goals))
		for _, g := range goals {
			rows = append(rows, []string{g.ID, g.Title, formatTime(g.Deadline), string(g.Complexity)})
		}
		renderTable(cmd.OutOrStdout(), []string{"ID", "Title", "Deadline", "Complexity"}, rows)
		return nil
	},
}

var goalShowCmd = &cobra.Command{
	Use:   "show <goal-id>",
	Short: "Show a goal and its tasks",
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
		goal, err := services.Goals.Goal(user, args[0])
		if err != nil {
			return MapError(fmt.Errorf("failed to load goal: %w", err))
		}
		tasks, err := services.Goals.Tasks(user, args[0])
		if err != nil {
			return MapError(fmt.Errorf("failed to load tasks: %w", err))
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), struct {
				Goal  *planning.Goal  `json:"goal"`
				Tasks []planning.Task `json:"tasks"`
			}{goal, tasks})
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, titleStyle.Render(goal.Title))
		fmt.Fprintf(out, "ID:         %s\n", goal.ID)
		fmt.Fprintf(out, "Deadline:   %s (%s left)\n", formatTime(goal.Deadline), time.Until(goal.Deadline).Round(time.Hour))
		fmt.Fprintf(out, "Complexity: %s\n", goal.Complexity)
		fmt.Fprintln(out)
		printTasks(cmd, tasks)
		return nil
	},
}

var goalDecomposeCmd = &cobra.Command{
	Use:   "decompose <goal-id>",
	Short: "Ask the AI provider to break a goal into tasks",
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
		fmt.Fprintf(cmd.ErrOrStderr(), "Decomposing with %s...\n", services.Provider.ID())
		g, err := services.Decompose.Decompose(cmd.Context(), user, args[0], goalContext)
		if err != nil {
			return MapError(fmt.Errorf("failed to decompose goal: %w", err))
		}
		tasks := g.Tasks()
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), tasks)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stored %d tasks for goal %s\n", len(tasks), args[0])
		printTasks(cmd, tasks)
		return nil
	},
}

func init() {
	goalCreateCmd.Flags().StringVarP(&goalDeadline, "deadline", "d", "", "Goal deadline (RFC 3339, '2006-01-02 15:04' or a date)")
	goalCreateCmd.Flags().StringVar(&goalComplexity, "complexity", "", "Complexity tier: simple, moderate or complex")
	goalDecomposeCmd.Flags().StringVar(&goalContext, "context", "", "Extra context for the AI provider")

	goalCmd.AddCommand(goalCreateCmd)
	goalCmd.AddCommand(goalListCmd)
	goalCmd.AddCommand(goalShowCmd)
	goalCmd.AddCommand(goalDecomposeCmd)
	RootCmd.AddCommand(goalCmd)
}
