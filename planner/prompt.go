package planner

import (
	"fmt"
	"strings"

	"github.com/hairizuan-noorazman/testpilot/internal/promptsafe"
	"github.com/hairizuan-noorazman/testpilot/testplan"
)

const systemPrompt = `You are an expert test planning agent specializing in frontend web testing.

Your task is to create comprehensive test plans from natural language instructions.

Consider the following when creating test plans:
1. User interactions (clicks, typing, navigation, scrolling)
2. Wait conditions for dynamic content
3. Validation assertions to verify expected behavior
4. Data requirements for testing

You are given the actual elements found on the target page inside <page_context>.
Only use selectors that appear in the page context, copied exactly as written after "->".
If no suitable selector exists, prefer text=<visible text> over inventing ids or classes.

Respond with a single JSON object and nothing else:
{
  "name": "short test name",
  "description": "what the test verifies",
  "steps": [
    {"action": "<%s>", "selector": "css selector or null", "value": "text, url or null", "description": "what the step does", "wait_before": null, "wait_after": null}
  ],
  "assertions": [
    {"type": "<%s>", "selector": "css selector or null", "expected": "expected value", "operator": "<%s>", "attribute": "attribute name for attribute assertions", "description": "what is checked"}
  ],
  "test_data": {},
  "tags": ["tag"]
}`

func actionNames() []string {
	return []string{
		string(testplan.ActionNavigate), string(testplan.ActionClick), string(testplan.ActionType),
		string(testplan.ActionWait), string(testplan.ActionScreenshot), string(testplan.ActionSelect),
		string(testplan.ActionHover), string(testplan.ActionScroll), string(testplan.ActionAssert),
	}
}

func assertionNames() []string {
	return []string{
		string(testplan.AssertVisible), string(testplan.AssertText), string(testplan.AssertValue),
		string(testplan.AssertURL), string(testplan.AssertTitle), string(testplan.AssertCount),
		string(testplan.AssertAttribute),
	}
}

func operatorNames() []string {
	return []string{
		string(testplan.OpEquals), string(testplan.OpContains), string(testplan.OpGreater), string(testplan.OpLess),
	}
}

func buildSystemPrompt() string {
	return fmt.Sprintf(systemPrompt,
		strings.Join(actionNames(), "|"),
		strings.Join(assertionNames(), "|"),
		strings.Join(operatorNames(), "|"),
	)
}

// buildUserPrompt embeds the request and page context. The instruction is
// sanitized and both inputs are delimited by XML-style tags.
func buildUserPrompt(instruction, url, pageContext string) string {
	return fmt.Sprintf(`Create a detailed test plan for the following:

%s
%s

%s

Generate a test plan with:
1. A clear, descriptive name and description
2. Step-by-step actions to perform, using selectors from the page context
3. Assertions to validate the test
4. Any necessary test data
5. Relevant tags for categorization`,
		promptsafe.Tag("instruction", promptsafe.Text(instruction)),
		promptsafe.Tag("target_url", promptsafe.Field(url)),
		promptsafe.Tag("page_context", "\n"+pageContext+"\n"),
	)
}
