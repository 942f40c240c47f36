package schedule

// Weights are the named coefficients of the optimality score.
type Weights struct {
	// Slack is charged per hour a task ends after its earliest finish.
	Slack float64 `json:"slack" yaml:"slack"`
	// Unschedulable is charged per task left out of the schedule.
	Unschedulable float64 `json:"unschedulable" yaml:"unschedulable"`
	// Lateness is charged per priority-weighted hour past a task's deadline.
	Lateness float64 `json:"lateness" yaml:"lateness"`
}

// DefaultWeights returns 1 per hour of slack consumed, 1000 per unschedulable
// task and 10 per priority-weighted hour late.
func DefaultWeights() Weights {
	return Weights{Slack: 1, Unschedulable: 1000, Lateness: 10}
}

// IsZero reports whether no weight is set.
func (w Weights) IsZero() bool {
	return w == Weights{}
}

// Score is the lower-is-better optimality measure of s. It reads only the
// schedule, so scores of a prior and an adapted schedule compare directly.
func (w Weights) Score(s *Schedule) float64 {
	var total float64
	for _, a := range s.Assignments {
		total += w.Slack * a.SlackConsumed().Hours()
		total += w.Lateness * a.Priority.Weight() * a.Lateness().Hours()
	}
	total += w.Unschedulable * float64(len(s.Unschedulable))
	return total
}
