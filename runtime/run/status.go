package run

// Status describes how a schedule call ended.
type Status string

const (
	// StatusRunning marks a run still dispatching partitions.
	StatusRunning Status = "running"
	// StatusCompleted marks a run whose partitions all succeeded.
	StatusCompleted Status = "completed"
	// StatusCancelled marks a run stopped before every partition was dispatched.
	StatusCancelled Status = "cancelled"
	// StatusFaulted marks a run where at least one partition failed.
	StatusFaulted Status = "faulted"
)

// IsTerminal returns true when the status can not change anymore.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusFaulted:
		return true
	}
	return false
}
