package healer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/hairizuan-noorazman/testpilot/pageanalysis"
	"github.com/hairizuan-noorazman/testpilot/script"
)

const (
	domReadyWait    = "await page.waitForLoadState('domcontentloaded');"
	networkIdleWait = "await page.waitForLoadState('networkidle');"
)

var (
	quotedSelector = regexp.MustCompile(`'([^']+)'`)
	optionTimeout  = regexp.MustCompile(`timeout:\s*(\d+)`)
	testTimeout    = regexp.MustCompile(`test\.setTimeout\(\s*(\d+)\s*\)`)
	interaction    = regexp.MustCompile(`^await page\.(click|fill)\(`)
	navigation     = regexp.MustCompile(`^await page\.goto\([^)]*\);`)
)

// repairSelector swaps the selector named in errText for one the page offers,
// or for a text selector derived from its id or class, and waits for the DOM
// before every click and fill.
func repairSelector(code, errText string, analysis *pageanalysis.PageAnalysis) string {
	if m := quotedSelector.FindStringSubmatch(errText); m != nil {
		broken := m[1]
		if replacement := replacementFor(broken, analysis); replacement != "" {
			code = strings.ReplaceAll(code, script.Quote(broken), script.Quote(replacement))
		}
	}
	return insertBefore(code, interaction, domReadyWait)
}

func replacementFor(broken string, analysis *pageanalysis.PageAnalysis) string {
	if el, ok := pageanalysis.SuggestReplacement(analysis, broken); ok {
		return el.Selector
	}
	if strings.HasPrefix(broken, "#") || strings.HasPrefix(broken, ".") {
		text := strings.NewReplacer("#", "", ".", "", "-", " ").Replace(broken)
		if text = strings.TrimSpace(text); text != "" {
			return "text=" + text
		}
	}
	return ""
}

// relaxTimeouts doubles explicit option timeouts and the overall test budget,
// and waits for network idle after every navigation.
func relaxTimeouts(code string) string {
	code = doubleMillis(code, optionTimeout, func(n int) string { return "timeout: " + strconv.Itoa(n) })
	code = doubleMillis(code, testTimeout, func(n int) string { return "test.setTimeout(" + strconv.Itoa(n) + ")" })
	return insertAfter(code, navigation, networkIdleWait, func(next string) bool {
		return next == networkIdleWait
	})
}

// doubleMillis rewrites every match of re, whose first group is a number of
// milliseconds, with render applied to twice that number.
func doubleMillis(code string, re *regexp.Regexp, render func(int) string) string {
	return re.ReplaceAllStringFunc(code, func(m string) string {
		n, err := strconv.Atoi(re.FindStringSubmatch(m)[1])
		if err != nil {
			return m
		}
		return render(n * 2)
	})
}

// settleNavigation makes every navigation wait for a load state.
func settleNavigation(code string) string {
	return insertAfter(code, navigation, networkIdleWait, func(next string) bool {
		return strings.HasPrefix(next, "await page.waitForLoadState(")
	})
}

// insertBefore puts stmt on its own line before every line matching re, at
// the same indentation, unless the previous statement already is stmt.
func insertBefore(code string, re *regexp.Regexp, stmt string) string {
	lines := strings.Split(code, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if re.MatchString(trimmed) && lastStatement(out) != stmt {
			out = append(out, indentOf(line)+stmt)
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// insertAfter puts stmt on its own line after every line matching re unless
// the statement that follows already satisfies present.
func insertAfter(code string, re *regexp.Regexp, stmt string, present func(next string) bool) string {
	lines := strings.Split(code, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		out = append(out, line)
		if re.MatchString(strings.TrimSpace(line)) && !present(nextStatement(lines[i+1:])) {
			out = append(out, indentOf(line)+stmt)
		}
	}
	return strings.Join(out, "\n")
}

func lastStatement(lines []string) string {
	for i := len(lines) - 1; i >= 0; i-- {
		if t := strings.TrimSpace(lines[i]); t != "" && !strings.HasPrefix(t, "//") {
			return t
		}
	}
	return ""
}

func nextStatement(lines []string) string {
	for _, line := range lines {
		if t := strings.TrimSpace(line); t != "" && !strings.HasPrefix(t, "//") {
			return t
		}
	}
	return ""
}

func indentOf(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}
