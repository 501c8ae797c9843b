package testplan

import "strings"

// Action is a step action from the closed vocabulary.
type Action string

const (
	ActionNavigate   Action = "navigate"
	ActionClick      Action = "click"
	ActionType       Action = "type"
	ActionWait       Action = "wait"
	ActionScreenshot Action = "screenshot"
	ActionSelect     Action = "select"
	ActionHover      Action = "hover"
	ActionScroll     Action = "scroll"
	ActionAssert     Action = "assert"
)

// DefaultAction is substituted for tokens that cannot be normalized.
const DefaultAction = ActionClick

func (a Action) IsValid() bool {
	switch a {
	case ActionNavigate, ActionClick, ActionType, ActionWait, ActionScreenshot,
		ActionSelect, ActionHover, ActionScroll, ActionAssert:
		return true
	}
	return false
}

// AssertionType is an assertion kind from the closed vocabulary.
type AssertionType string

const (
	AssertVisible   AssertionType = "visible"
	AssertText      AssertionType = "text"
	AssertValue     AssertionType = "value"
	AssertURL       AssertionType = "url"
	AssertTitle     AssertionType = "title"
	AssertCount     AssertionType = "count"
	AssertAttribute AssertionType = "attribute"
)

// DefaultAssertionType is substituted for tokens that cannot be normalized.
const DefaultAssertionType = AssertVisible

func (t AssertionType) IsValid() bool {
	switch t {
	case AssertVisible, AssertText, AssertValue, AssertURL, AssertTitle, AssertCount, AssertAttribute:
		return true
	}
	return false
}

// Operator compares an observed value with an assertion's expected value.
type Operator string

const (
	OpEquals   Operator = "equals"
	OpContains Operator = "contains"
	OpGreater  Operator = "greater"
	OpLess     Operator = "less"
)

func (o Operator) IsValid() bool {
	switch o {
	case OpEquals, OpContains, OpGreater, OpLess:
		return true
	}
	return false
}

var actionAliases = map[string]Action{
	"go_to":           ActionNavigate,
	"goto":            ActionNavigate,
	"open":            ActionNavigate,
	"visit":           ActionNavigate,
	"load":            ActionNavigate,
	"navigate_to":     ActionNavigate,
	"press":           ActionClick,
	"tap":             ActionClick,
	"push":            ActionClick,
	"click_on":        ActionClick,
	"fill":            ActionType,
	"enter":           ActionType,
	"input":           ActionType,
	"write":           ActionType,
	"type_text":       ActionType,
	"sleep":           ActionWait,
	"pause":           ActionWait,
	"wait_for":        ActionWait,
	"delay":           ActionWait,
	"capture":         ActionScreenshot,
	"snapshot":        ActionScreenshot,
	"take_screenshot": ActionScreenshot,
	"choose":          ActionSelect,
	"pick":            ActionSelect,
	"select_option":   ActionSelect,
	"mouseover":       ActionHover,
	"mouse_over":      ActionHover,
	"hover_over":      ActionHover,
	"scroll_to":       ActionScroll,
	"scroll_down":     ActionScroll,
	"verify":          ActionAssert,
	"check":           ActionAssert,
	"expect":          ActionAssert,
	"validate":        ActionAssert,
}

var assertionAliases = map[string]AssertionType{
	"visibility":    AssertVisible,
	"is_visible":    AssertVisible,
	"displayed":     AssertVisible,
	"exists":        AssertVisible,
	"present":       AssertVisible,
	"has_text":      AssertText,
	"contains_text": AssertText,
	"text_content":  AssertText,
	"content":       AssertText,
	"has_value":     AssertValue,
	"input_value":   AssertValue,
	"current_url":   AssertURL,
	"location":      AssertURL,
	"page_url":      AssertURL,
	"page_title":    AssertTitle,
	"has_title":     AssertTitle,
	"length":        AssertCount,
	"number":        AssertCount,
	"element_count": AssertCount,
	"attr":          AssertAttribute,
	"has_attribute": AssertAttribute,
}

var operatorAliases = map[string]Operator{
	"eq":           OpEquals,
	"equal":        OpEquals,
	"equal_to":     OpEquals,
	"is":           OpEquals,
	"==":           OpEquals,
	"includes":     OpContains,
	"contain":      OpContains,
	"has":          OpContains,
	"gt":           OpGreater,
	"greater_than": OpGreater,
	">":            OpGreater,
	"lt":           OpLess,
	"less_than":    OpLess,
	"<":            OpLess,
}

func canonicalToken(token string) string {
	t := strings.ToLower(strings.TrimSpace(token))
	t = strings.NewReplacer(" ", "_", "-", "_").Replace(t)
	return t
}

// NormalizeAction maps a free-form action token onto the closed vocabulary. The
// boolean is false when the token was not recognized and DefaultAction was used.
func NormalizeAction(token string) (Action, bool) {
	t := canonicalToken(token)
	if a := Action(t); a.IsValid() {
		return a, true
	}
	if a, ok := actionAliases[t]; ok {
		return a, true
	}
	return DefaultAction, false
}

// NormalizeAssertionType maps a free-form assertion token onto the closed vocabulary.
// The boolean is false when DefaultAssertionType was used.
func NormalizeAssertionType(token string) (AssertionType, bool) {
	t := canonicalToken(token)
	if a := AssertionType(t); a.IsValid() {
		return a, true
	}
	if a, ok := assertionAliases[t]; ok {
		return a, true
	}
	return DefaultAssertionType, false
}

// NormalizeOperator maps a comparison token onto the closed vocabulary. Empty and
// unknown tokens resolve to OpEquals; the boolean is false only for unknown tokens.
func NormalizeOperator(token string) (Operator, bool) {
	t := canonicalToken(token)
	if t == "" {
		return OpEquals, true
	}
	if o := Operator(t); o.IsValid() {
		return o, true
	}
	if o, ok := operatorAliases[t]; ok {
		return o, true
	}
	return OpEquals, false
}
