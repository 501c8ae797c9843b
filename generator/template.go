package generator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hairizuan-noorazman/testpilot/internal/promptsafe"
	"github.com/hairizuan-noorazman/testpilot/script"
	"github.com/hairizuan-noorazman/testpilot/testplan"
)

// TestTimeoutMillis is the overall budget written into every test.
const TestTimeoutMillis = 60000

const testTemplate = `import { test, expect } from '@playwright/test';

test(%s, async ({ page }) => {
  test.setTimeout(%d);

  // Test ID: %s

%s
});
`

// Wrap places a test body into the executable test template.
func Wrap(plan *testplan.TestPlan, body string) string {
	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
			continue
		}
		lines[i] = "  " + line
	}
	return fmt.Sprintf(testTemplate,
		script.Quote(promptsafe.Name(plan.Name)),
		TestTimeoutMillis,
		commentSafe(plan.ID),
		strings.Join(lines, "\n"),
	)
}

// Fallback assembles a test body from the plan without a model. It always
// succeeds.
func Fallback(plan *testplan.TestPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "// Test: %s\n", commentSafe(plan.Name))
	if d := commentSafe(plan.Description); d != "" {
		fmt.Fprintf(&b, "// %s\n", d)
	}
	fmt.Fprintf(&b, "await page.goto(%s);\n", script.Quote(plan.URL))
	b.WriteString("await page.waitForLoadState('networkidle');\n")

	for i, step := range plan.Steps {
		b.WriteString("\n")
		fmt.Fprintf(&b, "// Step %d: %s\n", i+1, commentSafe(step.Description))
		for _, line := range stepLines(step) {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	for i, a := range plan.Assertions {
		b.WriteString("\n")
		fmt.Fprintf(&b, "// Assertion %d: %s\n", i+1, commentSafe(a.Description))
		b.WriteString(assertionLine(a))
		b.WriteString("\n")
	}
	return b.String()
}

func commentSafe(s string) string {
	s = promptsafe.Field(s)
	return strings.TrimSpace(strings.NewReplacer("\n", " ", "\r", " ").Replace(s))
}

func stepLines(step testplan.TestStep) []string {
	var lines []string
	if step.WaitBefore != nil && *step.WaitBefore > 0 {
		lines = append(lines, fmt.Sprintf("await page.waitForTimeout(%d);", *step.WaitBefore))
	}
	lines = append(lines, stepStatement(step))
	if step.WaitAfter != nil && *step.WaitAfter > 0 {
		lines = append(lines, fmt.Sprintf("await page.waitForTimeout(%d);", *step.WaitAfter))
	}
	return lines
}

var screenshotName = regexp.MustCompile(`[^A-Za-z0-9_\-]+`)

func stepStatement(step testplan.TestStep) string {
	sel := script.Quote(step.Selector)
	switch step.Action {
	case testplan.ActionNavigate:
		target := step.Value
		if target == "" {
			target = step.Selector
		}
		return fmt.Sprintf("await page.goto(%s);", script.Quote(target))
	case testplan.ActionClick:
		return fmt.Sprintf("await page.click(%s);", sel)
	case testplan.ActionType:
		return fmt.Sprintf("await page.fill(%s, %s);", sel, script.Quote(step.Value))
	case testplan.ActionWait:
		if step.Selector != "" {
			return fmt.Sprintf("await page.waitForSelector(%s, { state: 'visible' });", sel)
		}
		if ms, err := strconv.Atoi(strings.TrimSpace(step.Value)); err == nil && ms > 0 {
			return fmt.Sprintf("await page.waitForTimeout(%d);", ms)
		}
		return "await page.waitForLoadState('networkidle');"
	case testplan.ActionScreenshot:
		name := strings.Trim(screenshotName.ReplaceAllString(step.Value, "_"), "_")
		if name == "" {
			name = "screenshot"
		}
		return fmt.Sprintf("await page.screenshot({ path: %s });", script.Quote("screenshots/"+name+".png"))
	case testplan.ActionSelect:
		return fmt.Sprintf("await page.selectOption(%s, %s);", sel, script.Quote(step.Value))
	case testplan.ActionHover:
		return fmt.Sprintf("await page.hover(%s);", sel)
	case testplan.ActionScroll:
		target := "document.body.scrollHeight"
		if n, err := strconv.Atoi(strings.TrimSpace(step.Value)); err == nil && n >= 0 {
			target = strconv.Itoa(n)
		}
		return fmt.Sprintf("await page.evaluate('window.scrollTo(0, %s)');", target)
	case testplan.ActionAssert:
		if step.Selector == "" {
			return "await page.waitForLoadState('load');"
		}
		return fmt.Sprintf("await expect(page.locator(%s)).toBeVisible();", sel)
	}
	return fmt.Sprintf("// unsupported action %q", string(step.Action))
}

func assertionLine(a testplan.Assertion) string {
	loc := fmt.Sprintf("expect(page.locator(%s))", script.Quote(a.Selector))
	expected := script.Quote(a.Expected)

	switch a.Type {
	case testplan.AssertVisible:
		return fmt.Sprintf("await %s.toBeVisible();", loc)
	case testplan.AssertText:
		if a.Operator == testplan.OpEquals {
			return fmt.Sprintf("await %s.toHaveText(%s);", loc, expected)
		}
		return fmt.Sprintf("await %s.toContainText(%s);", loc, expected)
	case testplan.AssertValue:
		return fmt.Sprintf("await %s.toHaveValue(%s);", loc, expected)
	case testplan.AssertURL:
		return fmt.Sprintf("await expect(page).toHaveURL(%s);", pageExpected(a))
	case testplan.AssertTitle:
		return fmt.Sprintf("await expect(page).toHaveTitle(%s);", pageExpected(a))
	case testplan.AssertCount:
		n, err := strconv.Atoi(strings.TrimSpace(a.Expected))
		if err != nil {
			return fmt.Sprintf("await %s.toBeVisible();", loc)
		}
		switch a.Operator {
		case testplan.OpGreater:
			if n >= 0 {
				return fmt.Sprintf("await %s.toBeVisible();", loc)
			}
		case testplan.OpLess:
			if n <= 1 {
				return fmt.Sprintf("await %s.toHaveCount(0);", loc)
			}
			return fmt.Sprintf("// count of %s below %d is not asserted", commentSafe(a.Selector), n)
		}
		return fmt.Sprintf("await %s.toHaveCount(%d);", loc, n)
	case testplan.AssertAttribute:
		name := a.Attribute
		if name == "" {
			name = "value"
		}
		return fmt.Sprintf("await %s.toHaveAttribute(%s, %s);", loc, script.Quote(name), expected)
	}
	return fmt.Sprintf("// unsupported assertion %q", string(a.Type))
}

// pageExpected renders the expected URL or title. Equality uses a string,
// anything else a regular expression matching the value anywhere.
func pageExpected(a testplan.Assertion) string {
	if a.Operator == testplan.OpEquals {
		return script.Quote(a.Expected)
	}
	return "/" + strings.ReplaceAll(regexp.QuoteMeta(a.Expected), "/", `\/`) + "/"
}
