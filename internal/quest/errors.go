package quest

import (
	"fmt"
	"strings"
	"time"
)

// InvalidOperationError reports a lifecycle operation that is not allowed,
// either because the quest is in the wrong state (Required names the
// state(s) the operation needs) or because the actor may not perform it
// (Reason carries the rejection).
type InvalidOperationError struct {
	Op       string
	Status   string
	Required []string
	Reason   string
}

func (e *InvalidOperationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("quest: %s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("quest: %s requires %s, quest is %q",
		e.Op, strings.Join(e.Required, " or "), e.Status)
}

// NotFoundError reports a missing aggregate, record, or signup entry.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("quest: %s not found: %s", e.Kind, e.ID)
}

// CooldownError reports a nudge rejected inside the cooldown window; the
// remaining wait is carried so callers can render it without re-deriving
// state.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("quest: nudge on cooldown, try again in %s", FormatWait(e.Remaining))
}

// FormatWait renders a wait as "47h50m", "2h", "35m", or "less than a
// minute".
func FormatWait(d time.Duration) string {
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60

	var parts []string
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if len(parts) == 0 {
		return "less than a minute"
	}
	return strings.Join(parts, "")
}
