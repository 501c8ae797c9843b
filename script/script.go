// Package script parses the line-oriented browser test dialect produced by the
// code generator.
package script

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

var (
	ErrEmptyScript          = errors.New("script has no executable statements")
	ErrUnsupportedStatement = errors.New("unsupported statement")
	ErrSyntax               = errors.New("syntax error")
)

// Kind identifies what a statement does.
type Kind string

const (
	KindGoto             Kind = "goto"
	KindClick            Kind = "click"
	KindFill             Kind = "fill"
	KindWaitForSelector  Kind = "wait_for_selector"
	KindWaitForLoadState Kind = "wait_for_load_state"
	KindWaitForTimeout   Kind = "wait_for_timeout"
	KindScreenshot       Kind = "screenshot"
	KindSelectOption     Kind = "select_option"
	KindHover            Kind = "hover"
	KindScroll           Kind = "scroll"
	KindExpectVisible    Kind = "expect_visible"
	KindExpectText       Kind = "expect_text"
	KindExpectValue      Kind = "expect_value"
	KindExpectCount      Kind = "expect_count"
	KindExpectAttribute  Kind = "expect_attribute"
	KindExpectURL        Kind = "expect_url"
	KindExpectTitle      Kind = "expect_title"
	KindSetTimeout       Kind = "set_timeout"
	KindUnsupported      Kind = "unsupported"
)

// Statement is one executable line of a script.
type Statement struct {
	Line int
	// Step is the 1-based plan step the statement belongs to, 0 when untagged.
	Step     int
	Kind     Kind
	Selector string
	Value    string
	// Pattern is set when an expectation was given a regular expression.
	Pattern *regexp.Regexp
	// Name is the attribute name of KindExpectAttribute.
	Name  string
	Count int
	// Negate inverts an expectation (expect(...).not.toBeVisible()).
	Negate bool
	// Exact requires equality instead of containment for text expectations.
	Exact bool
	// State is the load state or element state waited for.
	State   string
	Timeout time.Duration
	Source  string
	Err     error
}

// Script is a parsed test.
type Script struct {
	Statements     []Statement
	DefaultTimeout time.Duration
	// Steps lists the distinct step numbers in order of first appearance.
	Steps []int
}

// StepDescription returns the description that followed a "// step N:" marker.
type StepDescription struct {
	Step        int
	Description string
}

var (
	stepMarker = regexp.MustCompile(`(?i)^//\s*step\s+(\d+)\s*[:.\-]?\s*(.*)$`)
	// Assertions belong to no plan step.
	assertionMarker = regexp.MustCompile(`(?i)^//\s*assertions?\b`)
	setTimeout      = regexp.MustCompile(`^test\.setTimeout\(\s*(\d+)\s*\)\s*;?`)
	ignoredHead     = []string{"import ", "const ", "let ", "var ", "test(", "test.describe(", "test.beforeEach(", "test.use(", "}", "{", ")", "async ", "function ", "module.exports", "'use strict'", "\"use strict\""}
)

// Parse reads a script. Lines that are not "await" statements are treated as
// template scaffolding and skipped.
func Parse(code string) (*Script, error) {
	s := &Script{}
	step := 0
	seen := make(map[int]bool)

	lines := strings.Split(strings.ReplaceAll(code, "\r\n", "\n"), "\n")
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "//") {
			if m := stepMarker.FindStringSubmatch(line); m != nil {
				step = atoi(m[1])
			} else if assertionMarker.MatchString(line) {
				step = 0
			}
			continue
		}

		if m := setTimeout.FindStringSubmatch(line); m != nil {
			s.DefaultTimeout = time.Duration(atoi(m[1])) * time.Millisecond
			continue
		}

		line = stripComment(line)
		if !strings.HasPrefix(line, "await ") {
			if isScaffolding(line) {
				continue
			}
			// Bare page calls without await still run.
			if !strings.HasPrefix(line, "page.") && !strings.HasPrefix(line, "expect(") {
				continue
			}
		}

		// Statements spanning several lines are joined until brackets balance.
		start := i
		for openBrackets(line) > 0 && i+1 < len(lines) {
			i++
			line += " " + stripComment(strings.TrimSpace(lines[i]))
		}

		for _, src := range splitStatements(line) {
			st := parseStatement(src)
			st.Line = start + 1
			st.Step = step
			st.Source = src
			s.Statements = append(s.Statements, st)
			if step > 0 && !seen[step] {
				seen[step] = true
				s.Steps = append(s.Steps, step)
			}
		}
	}

	if len(s.Statements) == 0 {
		return s, ErrEmptyScript
	}
	return s, nil
}

// Describe returns the step markers found in code, in order.
func Describe(code string) []StepDescription {
	var out []StepDescription
	for _, rawLine := range strings.Split(code, "\n") {
		if m := stepMarker.FindStringSubmatch(strings.TrimSpace(rawLine)); m != nil {
			out = append(out, StepDescription{Step: atoi(m[1]), Description: strings.TrimSpace(m[2])})
		}
	}
	return out
}

func isScaffolding(line string) bool {
	for _, p := range ignoredHead {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
	}
	return n
}
