package healer

import (
	"strings"

	"github.com/hairizuan-noorazman/testpilot/internal/promptsafe"
)

const dialectRules = `
The code runs in a restricted Playwright dialect. Keep one statement per line,
every statement starting with "await", and only use page.goto, page.click,
page.fill, page.waitForSelector, page.waitForLoadState, page.waitForTimeout,
page.screenshot, page.selectOption, page.hover, page.evaluate (scrolling only)
and expect(...) with toBeVisible, toContainText, toHaveText, toHaveValue,
toHaveCount, toHaveAttribute, toHaveURL or toHaveTitle.
Keep every "// Step N:" comment exactly where it is.
Return ONLY the complete corrected code, without markdown or explanations.`

var systemPrompts = map[Category]string{
	CategorySelector: `You are an expert at fixing broken Playwright selectors.

When a selector fails, you should:
1. Identify the problematic selector
2. Replace it with a selector that exists on the page, preferring data-testid, id, then visible text
3. Add proper wait conditions before interacting with the element
` + dialectRules,

	CategoryTimeout: `You are an expert at fixing timeout issues in Playwright tests.

To fix timeout issues:
1. Add explicit waits before interactions
2. Use waitForSelector with an appropriate timeout
3. Add waitForLoadState after navigations
4. Increase timeout values for slow operations
` + dialectRules,

	CategoryNavigation: `You are an expert at fixing navigation failures in Playwright tests.

To fix navigation failures:
1. Make sure every page.goto uses a complete absolute URL
2. Wait for the load state after every navigation
3. Give slow pages a longer navigation timeout
` + dialectRules,

	CategoryGeneral: `You are an expert at fixing Playwright test issues.

Analyze the error and fix the code by improving selector strategies, adding
necessary waits and fixing syntax issues.
` + dialectRules,
}

// markupLimit caps the page markup sent with a selector repair.
const markupLimit = 2000

func buildUserPrompt(category Category, req Request, pageContext, markup string) string {
	var b strings.Builder
	switch category {
	case CategorySelector:
		b.WriteString("Fix the selector error in this code.\n\n")
	case CategoryTimeout:
		b.WriteString("Fix the timeout issue in this code. Add appropriate waits and timeout handling.\n\n")
	case CategoryNavigation:
		b.WriteString("Fix the navigation failure in this code.\n\n")
	default:
		b.WriteString("Fix this broken test code.\n\n")
	}

	b.WriteString(promptsafe.Tag("error", promptsafe.Text(req.Error)))
	b.WriteString("\n\n")
	b.WriteString(promptsafe.Tag("code", "\n"+req.Code+"\n"))

	if pageContext != "" {
		b.WriteString("\n\n")
		b.WriteString(promptsafe.Tag("page_context", "\n"+pageContext))
	}
	if markup != "" {
		b.WriteString("\n\n")
		b.WriteString(promptsafe.Tag("page_html", "\n"+markup+"\n"))
	}
	if category == CategorySelector {
		b.WriteString("\n\nUse selectors listed in the page context where possible.")
	}
	return b.String()
}
