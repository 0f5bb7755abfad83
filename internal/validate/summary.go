package validate

import (
	"regexp"

	"questboard/internal/grammar"
)

var questIDShape = regexp.MustCompile(`^QUES\d{4,}$`)

// Summary checks the business rules for an adventure-summary draft. The
// quest reference itself may still be unresolved at this point; only its
// shape is checked here.
func Summary(draft *grammar.SummaryDraft) error {
	issues := SummaryIssues(draft)
	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

// SummaryIssues runs every summary rule, accumulating all violations.
func SummaryIssues(draft *grammar.SummaryDraft) []Issue {
	var issues []Issue

	if draft.QuestID != "" && !questIDShape.MatchString(draft.QuestID) {
		issues = append(issues, Issue{
			Field:   "quest_id",
			Message: "must look like QUES0000",
		})
	}

	if draft.Title != "" && len(draft.Title) > 2*TitleMaxLen {
		issues = append(issues, Issue{
			Field:   "title",
			Message: "must not exceed 280 characters",
		})
	}

	for _, url := range draft.RelatedLinks {
		if !isHTTPURL(url) {
			issues = append(issues, Issue{
				Field:   "related_links",
				Message: "must all be valid http(s) URLs",
			})
			break
		}
	}

	return issues
}
