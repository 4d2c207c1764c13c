package tasks

import (
	"fmt"
	"time"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	CheckStart Phase = iota
	CheckEngine
	CheckDone
)

func (p Phase) String() string {
	switch p {
	case CheckStart:
		return "check_start"
	case CheckEngine:
		return "check_engine"
	case CheckDone:
		return "check_done"
	default:
		return ""
	}
}

func checkStartUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CheckStart,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Checking %d engines...", total),
	}
}

func checkEngineUpdate(step, total int, res CheckResult) ProgressUpdate {
	msg := fmt.Sprintf("%s: ok (%s)", res.Engine, res.Latency.Round(time.Microsecond))
	if !res.OK {
		msg = fmt.Sprintf("%s: failed: %v", res.Engine, res.Error)
	}
	return ProgressUpdate{
		Phase:   CheckEngine,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    res,
	}
}

func checkDoneUpdate(total int, report *CheckReport) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CheckDone,
		Step:    total,
		Total:   total,
		Message: fmt.Sprintf("%d healthy, %d failed", report.Healthy, report.Failed),
		Data:    report,
	}
}
