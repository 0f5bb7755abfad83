// Package validate applies the cross-field business rules to a parsed quest
// draft. Parse errors and validation issues are deliberately separate: a
// ParseError means the message could not be structurally decoded, while a
// ValidationError means it decoded fine but violates policy.
package validate

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"questboard/internal/grammar"
)

// Business-rule bounds.
const (
	TitleMaxLen = 140
	TagsMax     = 12
)

var urlChecker = validator.New(validator.WithRequiredStructEnabled())

// Issue is one violated rule. Issues are plain data; only Quest's outer call
// wraps them in an error.
type Issue struct {
	Field   string
	Message string
}

// ValidationError aggregates every violated rule for one draft.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = fmt.Sprintf("%s: %s", issue.Field, issue.Message)
	}
	return "validate: " + strings.Join(parts, ", ")
}

// Quest checks every rule and returns a ValidationError listing all
// violations at once, or nil when the draft passes.
func Quest(draft *grammar.Draft) error {
	issues := QuestIssues(draft)
	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

// QuestIssues runs every rule against the draft. It never fails fast: each
// rule contributes its own issue independently.
func QuestIssues(draft *grammar.Draft) []Issue {
	var issues []Issue

	if draft.Title == "" || len(draft.Title) > TitleMaxLen {
		issues = append(issues, Issue{
			Field:   "title",
			Message: fmt.Sprintf("must be present and <= %d characters", TitleMaxLen),
		})
	}

	if !draft.StartsAt.Before(draft.EndsAt) {
		issues = append(issues, Issue{
			Field:   "schedule",
			Message: "start time must be before end time",
		})
	}

	if draft.DurationMinutes < grammar.MinDurationMinutes || draft.DurationMinutes > grammar.MaxDurationMinutes {
		issues = append(issues, Issue{
			Field:   "duration_minutes",
			Message: fmt.Sprintf("must be between %d and %d", grammar.MinDurationMinutes, grammar.MaxDurationMinutes),
		})
	}

	if len(draft.Tags) == 0 {
		issues = append(issues, Issue{Field: "tags", Message: "must include at least one tag"})
	}
	if len(draft.Tags) > TagsMax {
		issues = append(issues, Issue{
			Field:   "tags",
			Message: fmt.Sprintf("must not exceed %d unique tags", TagsMax),
		})
	}

	if len(draft.LinkedMessages) == 0 {
		issues = append(issues, Issue{
			Field:   "linked_messages",
			Message: "must include at least one linked quest",
		})
	}

	for _, check := range []struct{ field, url string }{
		{"my_table_url", draft.TableURL},
		{"event_url", draft.EventURL},
	} {
		if !isHTTPURL(check.url) {
			issues = append(issues, Issue{Field: check.field, Message: "must be a valid http(s) URL"})
		}
	}

	return issues
}

func isHTTPURL(url string) bool {
	return urlChecker.Var(url, "required,http_url") == nil
}
