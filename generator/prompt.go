package generator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hairizuan-noorazman/testpilot/internal/promptsafe"
	"github.com/hairizuan-noorazman/testpilot/testplan"
)

const systemPrompt = `You are an expert Playwright test code generator.
Generate the body of a Playwright test function from the test plan you are given.

Rules:
- Return ONLY the statements of the test function body. No imports, no test() wrapper, no markdown.
- Write one statement per line. Every statement starts with "await".
- Before the statements of each step write a marker comment "// Step N: <description>" using the step number from the plan.
- Write assertions after all steps, each preceded by a comment "// Assertion N: <description>".
- Use the selectors from the plan exactly as written.
- Only use these statements:
  await page.goto('<url>');
  await page.click('<selector>');
  await page.fill('<selector>', '<value>');
  await page.waitForSelector('<selector>', { state: 'visible' });
  await page.waitForLoadState('networkidle');
  await page.waitForTimeout(<ms>);
  await page.screenshot({ path: 'screenshots/<name>.png' });
  await page.selectOption('<selector>', '<value>');
  await page.hover('<selector>');
  await page.evaluate('window.scrollTo(0, document.body.scrollHeight)');
  await expect(page.locator('<selector>')).toBeVisible();
  await expect(page.locator('<selector>')).toContainText('<text>');
  await expect(page.locator('<selector>')).toHaveText('<text>');
  await expect(page.locator('<selector>')).toHaveValue('<value>');
  await expect(page.locator('<selector>')).toHaveCount(<n>);
  await expect(page.locator('<selector>')).toHaveAttribute('<name>', '<value>');
  await expect(page).toHaveURL('<url>');
  await expect(page).toHaveTitle('<title>');
- Use single-quoted strings and escape single quotes inside them.`

func buildUserPrompt(plan *testplan.TestPlan) string {
	var b strings.Builder
	b.WriteString("Generate the test body for the following plan.\n\n<test_plan>\n")
	b.WriteString(promptsafe.Tag("name", promptsafe.Name(plan.Name)))
	b.WriteString("\n")
	b.WriteString(promptsafe.Tag("description", promptsafe.Text(plan.Description)))
	b.WriteString("\n")
	b.WriteString(promptsafe.Tag("url", promptsafe.Field(plan.URL)))
	b.WriteString("\n")
	b.WriteString(promptsafe.Tag("steps", "\n"+formatSteps(plan.Steps)))
	b.WriteString("\n")
	b.WriteString(promptsafe.Tag("assertions", "\n"+formatAssertions(plan.Assertions)))
	b.WriteString("\n")
	if len(plan.TestData) > 0 {
		b.WriteString(promptsafe.Tag("test_data", "\n"+formatTestData(plan.TestData)))
		b.WriteString("\n")
	}
	b.WriteString("</test_plan>")
	return b.String()
}

func orNA(s string) string {
	s = promptsafe.Field(s)
	if s == "" {
		return "N/A"
	}
	return s
}

func formatSteps(steps []testplan.TestStep) string {
	if len(steps) == 0 {
		return "None\n"
	}
	var b strings.Builder
	for i, s := range steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, promptsafe.Field(s.Description))
		fmt.Fprintf(&b, "   Action: %s\n", s.Action)
		fmt.Fprintf(&b, "   Selector: %s\n", orNA(s.Selector))
		fmt.Fprintf(&b, "   Value: %s\n", orNA(s.Value))
		if s.WaitBefore != nil {
			fmt.Fprintf(&b, "   Wait before: %dms\n", *s.WaitBefore)
		}
		if s.WaitAfter != nil {
			fmt.Fprintf(&b, "   Wait after: %dms\n", *s.WaitAfter)
		}
	}
	return b.String()
}

func formatAssertions(assertions []testplan.Assertion) string {
	if len(assertions) == 0 {
		return "None\n"
	}
	var b strings.Builder
	for i, a := range assertions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, promptsafe.Field(a.Description))
		fmt.Fprintf(&b, "   Type: %s\n", a.Type)
		fmt.Fprintf(&b, "   Selector: %s\n", orNA(a.Selector))
		fmt.Fprintf(&b, "   Operator: %s\n", a.Operator)
		fmt.Fprintf(&b, "   Expected: %s\n", orNA(a.Expected))
		if a.Attribute != "" {
			fmt.Fprintf(&b, "   Attribute: %s\n", promptsafe.Field(a.Attribute))
		}
	}
	return b.String()
}

func formatTestData(data map[string]interface{}) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", promptsafe.Field(k), promptsafe.Field(fmt.Sprint(data[k])))
	}
	return b.String()
}
