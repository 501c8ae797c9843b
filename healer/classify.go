package healer

import (
	"regexp"
	"strings"
)

// Category selects the repair strategy for a failure.
type Category string

const (
	CategorySelector   Category = "selector"
	CategoryTimeout    Category = "timeout"
	CategoryNavigation Category = "navigation"
	CategoryGeneral    Category = "general"
)

func (c Category) IsValid() bool {
	switch c {
	case CategorySelector, CategoryTimeout, CategoryNavigation, CategoryGeneral:
		return true
	}
	return false
}

var explicitTimeout = regexp.MustCompile(`(?i)\btimeout \d+ms exceeded\b`)

// Classify maps an execution error to a category. A reported "timeout Nms
// exceeded" is a timeout even when a selector is named in the message; other
// mentions of selectors or elements win over timeouts.
func Classify(errText string) Category {
	if explicitTimeout.MatchString(errText) {
		return CategoryTimeout
	}
	lower := strings.ToLower(errText)
	switch {
	case strings.Contains(lower, "selector") || strings.Contains(lower, "element"):
		return CategorySelector
	case strings.Contains(lower, "timeout"):
		return CategoryTimeout
	case strings.Contains(lower, "navigation") || strings.Contains(lower, "goto"):
		return CategoryNavigation
	}
	return CategoryGeneral
}
