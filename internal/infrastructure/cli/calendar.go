package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/felixgeelhaar/pacer/pkg/domain/calendar"
	"github.com/felixgeelhaar/pacer/pkg/domain/planning"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Show or set your availability",
}

var (
	calendarFile     string
	calendarWindows  []string
	calendarCapacity string
	calendarLocation string
	calendarDaysOff  []string
)

var calendarShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show your weekly windows and daily capacity",
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
		cal, err := services.Goals.Calendar(user)
		if err != nil {
			return MapError(fmt.Errorf("failed to load calendar: %w", err))
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), cal)
		}
		data, err := yaml.Marshal(cal)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var calendarSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set your availability from a YAML file or from flags",
	Example: `  pacer calendar set --file calendar.yaml
  pacer calendar set --window 09:00-12:00 --window 13:00-17:00 --capacity 6h --location Europe/Berlin`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}
		cal, err := calendarFromFlags()
		if err != nil {
			return MapError(err)
		}
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		if err := services.Goals.SetCalendar(user, cal); err != nil {
			return MapError(fmt.Errorf("failed to save calendar: %w", err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Calendar for %s saved\n", user)
		return nil
	},
}

func calendarFromFlags() (*calendar.Calendar, error) {
	if calendarFile != "" {
		data, err := os.ReadFile(calendarFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", calendarFile, err)
		}
		var cal calendar.Calendar
		if err := yaml.Unmarshal(data, &cal); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", calendarFile, err)
		}
		return &cal, nil
	}
	if len(calendarWindows) == 0 {
		return nil, NewCLIError("no availability given", "Pass --file or at least one --window 09:00-17:00", nil)
	}
	windows := make([]calendar.Window, 0, len(calendarWindows))
	for _, s := range calendarWindows {
		w, err := calendar.ParseWindow(s)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	var capacity time.Duration
	if calendarCapacity != "" {
		c, err := planning.ParseEstimate(calendarCapacity)
		if err != nil {
			return nil, err
		}
		capacity = c.Duration()
	}
	cal := calendar.Uniform(capacity, windows...)
	if calendarLocation != "" {
		cal.Location = calendarLocation
	}
	cal.DaysOff = calendarDaysOff
	return cal, nil
}

func init() {
	calendarSetCmd.Flags().StringVarP(&calendarFile, "file", "f", "", "YAML calendar file")
	calendarSetCmd.Flags().StringArrayVarP(&calendarWindows, "window", "w", nil, "Daily availability window such as 09:00-17:00 (repeatable)")
	calendarSetCmd.Flags().StringVar(&calendarCapacity, "capacity", "", "Most effort per day, such as 6h")
	calendarSetCmd.Flags().StringVar(&calendarLocation, "location", "", "IANA time zone of the windows")
	calendarSetCmd.Flags().StringSliceVar(&calendarDaysOff, "day-off", nil, "Dates without availability (2006-01-02)")

	calendarCmd.AddCommand(calendarShowCmd)
	calendarCmd.AddCommand(calendarSetCmd)
	RootCmd.AddCommand(calendarCmd)
}
