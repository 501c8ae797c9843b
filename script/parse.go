package script

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type valueKind int

const (
	valString valueKind = iota
	valNumber
	valRegex
	valObject
	valChain
)

type value struct {
	kind  valueKind
	str   string
	num   float64
	re    *regexp.Regexp
	obj   map[string]value
	chain []call
}

// call is one link of a member chain such as page.locator('x').click().
type call struct {
	name   string
	called bool
	args   []value
	raw    string
	argErr error
}

type parser struct {
	src string
	pos int
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w at column %d: %s", ErrSyntax, p.pos+1, fmt.Sprintf(format, args...))
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n' || p.src[p.pos] == '\r') {
		p.pos++
	}
}

func (p *parser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) eof() bool {
	return p.peek() == 0
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func (p *parser) ident() (string, error) {
	if !isIdentStart(p.peek()) {
		return "", p.errorf("expected identifier")
	}
	start := p.pos
	for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos], nil
}

func (p *parser) stringLit() (string, error) {
	quote := p.src[p.pos]
	p.pos++
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '\\' && p.pos+1 < len(p.src):
			p.pos++
			switch e := p.src[p.pos]; e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(e)
			}
		case c == quote:
			p.pos++
			return b.String(), nil
		case quote == '`' && c == '$' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '{':
			return "", p.errorf("template interpolation is not supported")
		default:
			b.WriteByte(c)
		}
		p.pos++
	}
	return "", p.errorf("unterminated string")
}

func (p *parser) number() (float64, error) {
	start := p.pos
	if p.src[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.src) && (p.src[p.pos] >= '0' && p.src[p.pos] <= '9' || p.src[p.pos] == '.' || p.src[p.pos] == '_') {
		p.pos++
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(p.src[start:p.pos], "_", ""), 64)
	if err != nil {
		return 0, p.errorf("invalid number %q", p.src[start:p.pos])
	}
	return n, nil
}

func (p *parser) regexLit() (*regexp.Regexp, error) {
	p.pos++
	var b strings.Builder
	inClass := false
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '\\' && p.pos+1 < len(p.src) {
			b.WriteByte(c)
			b.WriteByte(p.src[p.pos+1])
			p.pos += 2
			continue
		}
		if c == '[' {
			inClass = true
		} else if c == ']' {
			inClass = false
		} else if c == '/' && !inClass {
			p.pos++
			flags := ""
			for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
				flags += string(p.src[p.pos])
				p.pos++
			}
			pattern := b.String()
			if strings.Contains(flags, "i") {
				pattern = "(?i)" + pattern
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, p.errorf("invalid regular expression: %v", err)
			}
			return re, nil
		}
		b.WriteByte(c)
		p.pos++
	}
	return nil, p.errorf("unterminated regular expression")
}

func (p *parser) object() (map[string]value, error) {
	p.pos++
	obj := make(map[string]value)
	for {
		c := p.peek()
		if c == '}' {
			p.pos++
			return obj, nil
		}
		if c == 0 {
			return nil, p.errorf("unterminated object")
		}

		var key string
		var err error
		if c == '\'' || c == '"' {
			key, err = p.stringLit()
		} else {
			key, err = p.ident()
		}
		if err != nil {
			return nil, err
		}

		if p.peek() == ':' {
			p.pos++
			v, err := p.value()
			if err != nil {
				return nil, err
			}
			obj[key] = v
		} else {
			obj[key] = value{kind: valChain, chain: []call{{name: key}}}
		}

		if p.peek() == ',' {
			p.pos++
		}
	}
}

func (p *parser) value() (value, error) {
	c := p.peek()
	switch {
	case c == '\'' || c == '"' || c == '`':
		s, err := p.stringLit()
		return value{kind: valString, str: s}, err
	case c >= '0' && c <= '9', c == '-':
		n, err := p.number()
		return value{kind: valNumber, num: n}, err
	case c == '/':
		re, err := p.regexLit()
		return value{kind: valRegex, re: re}, err
	case c == '{':
		obj, err := p.object()
		return value{kind: valObject, obj: obj}, err
	case isIdentStart(c):
		chain, err := p.chain()
		return value{kind: valChain, chain: chain}, err
	}
	return value{}, p.errorf("unexpected %q", string(c))
}

// balanced consumes a parenthesized group and returns its inner text.
func (p *parser) balanced() (string, error) {
	if p.peek() != '(' {
		return "", p.errorf("expected (")
	}
	start := p.pos + 1
	depth := 0
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case '\'', '"', '`':
			if _, err := p.stringLit(); err != nil {
				return "", err
			}
			continue
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				inner := p.src[start:p.pos]
				p.pos++
				return inner, nil
			}
		}
		p.pos++
	}
	return "", p.errorf("unbalanced parentheses")
}

func parseArgs(raw string) ([]value, error) {
	ap := &parser{src: raw}
	var args []value
	for !ap.eof() {
		v, err := ap.value()
		if err != nil {
			return nil, err
		}
		args = append(args, v)
		if ap.peek() == ',' {
			ap.pos++
			continue
		}
		if !ap.eof() {
			return nil, ap.errorf("expected , between arguments")
		}
	}
	return args, nil
}

func (p *parser) chain() ([]call, error) {
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	calls := []call{{name: name}}
	for {
		switch p.peek() {
		case '(':
			raw, err := p.balanced()
			if err != nil {
				return nil, err
			}
			last := &calls[len(calls)-1]
			last.called = true
			last.raw = raw
			last.args, last.argErr = parseArgs(raw)
		case '.':
			p.pos++
			name, err := p.ident()
			if err != nil {
				return nil, err
			}
			calls = append(calls, call{name: name})
		default:
			return calls, nil
		}
	}
}

// openBrackets reports how many brackets remain open at the end of line.
func openBrackets(line string) int {
	depth := 0
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '(', '{', '[':
			depth++
		case ')', '}', ']':
			depth--
		}
	}
	return depth
}

// stripComment removes a trailing // comment that is outside string literals.
func stripComment(line string) string {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\\':
			i++
		case '\'', '"', '`':
			quote = c
		case '/':
			if i+1 < len(line) && line[i+1] == '/' {
				return strings.TrimSpace(line[:i])
			}
		}
	}
	return line
}

// splitStatements splits a line on top-level semicolons.
func splitStatements(line string) []string {
	var out []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '(', '{', '[':
			depth++
		case ')', '}', ']':
			depth--
		case ';':
			if depth == 0 {
				if s := strings.TrimSpace(line[start:i]); s != "" {
					out = append(out, s)
				}
				start = i + 1
			}
		}
	}
	if s := strings.TrimSpace(line[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func unsupported(err error) Statement {
	return Statement{Kind: KindUnsupported, Err: err}
}

func parseStatement(src string) Statement {
	body := strings.TrimSpace(strings.TrimPrefix(src, "await "))
	if strings.HasPrefix(body, "//") {
		return unsupported(fmt.Errorf("%w: empty statement", ErrUnsupportedStatement))
	}
	p := &parser{src: body}
	chain, err := p.chain()
	if err != nil {
		return unsupported(err)
	}
	if !p.eof() {
		return unsupported(p.errorf("unexpected trailing input"))
	}

	switch chain[0].name {
	case "page":
		return interpretPage(chain[1:])
	case "expect":
		return interpretExpect(chain)
	}
	return unsupported(fmt.Errorf("%w: %s", ErrUnsupportedStatement, chain[0].name))
}

func argString(args []value, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	switch args[i].kind {
	case valString:
		return args[i].str, true
	case valNumber:
		return strconv.FormatFloat(args[i].num, 'f', -1, 64), true
	}
	return "", false
}

func argObject(args []value, i int) map[string]value {
	if i >= len(args) || args[i].kind != valObject {
		return nil
	}
	return args[i].obj
}

func timeoutOf(opts map[string]value) time.Duration {
	if v, ok := opts["timeout"]; ok && v.kind == valNumber && v.num > 0 {
		return time.Duration(v.num) * time.Millisecond
	}
	return 0
}

func stringOpt(opts map[string]value, key string) string {
	if v, ok := opts[key]; ok && v.kind == valString {
		return v.str
	}
	return ""
}

var locatorFactories = map[string]bool{
	"locator":          true,
	"getByText":        true,
	"getByTestId":      true,
	"getByPlaceholder": true,
	"getByLabel":       true,
	"getByRole":        true,
	"getByAltText":     true,
	"getByTitle":       true,
}

var locatorModifiers = map[string]bool{
	"first": true,
	"last":  true,
	"nth":   true,
}

// selectorOf turns a locator factory call into a selector string.
func selectorOf(c call) (string, error) {
	if c.argErr != nil {
		return "", c.argErr
	}
	arg, ok := argString(c.args, 0)
	if !ok {
		return "", fmt.Errorf("%w: %s needs a string argument", ErrUnsupportedStatement, c.name)
	}
	switch c.name {
	case "locator":
		return arg, nil
	case "getByText":
		return "text=" + arg, nil
	case "getByTestId":
		return `[data-testid="` + escapeDouble(arg) + `"]`, nil
	case "getByPlaceholder":
		return `[placeholder="` + escapeDouble(arg) + `"]`, nil
	case "getByLabel":
		return `[aria-label="` + escapeDouble(arg) + `"]`, nil
	case "getByAltText":
		return `[alt="` + escapeDouble(arg) + `"]`, nil
	case "getByTitle":
		return `[title="` + escapeDouble(arg) + `"]`, nil
	case "getByRole":
		name := stringOpt(argObject(c.args, 1), "name")
		tag := map[string]string{"button": "button", "link": "a", "heading": "h1", "textbox": "input"}[arg]
		switch {
		case name != "" && (tag == "button" || tag == "a"):
			return tag + `:has-text("` + escapeDouble(name) + `")`, nil
		case name != "":
			return "text=" + name, nil
		case tag != "":
			return tag, nil
		}
		return `[role="` + escapeDouble(arg) + `"]`, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedStatement, c.name)
}

func escapeDouble(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// resolveLocator consumes a locator factory chain and returns the selector and
// the remaining calls.
func resolveLocator(calls []call) (string, []call, error) {
	if len(calls) == 0 || !locatorFactories[calls[0].name] || !calls[0].called {
		return "", calls, fmt.Errorf("%w: expected a locator", ErrUnsupportedStatement)
	}
	sel, err := selectorOf(calls[0])
	if err != nil {
		return "", nil, err
	}
	rest := calls[1:]
	for len(rest) > 0 && locatorModifiers[rest[0].name] {
		rest = rest[1:]
	}
	return sel, rest, nil
}

var pageMethods = map[string]bool{
	"goto": true, "click": true, "dblclick": true, "check": true, "tap": true,
	"fill": true, "type": true, "waitForSelector": true, "waitForLoadState": true,
	"waitForTimeout": true, "screenshot": true, "selectOption": true, "hover": true,
	"setDefaultTimeout": true,
}

var scrollArg = regexp.MustCompile(`scrollTo\(\s*0\s*,\s*([^)]+?)\s*\)`)

func interpretPage(calls []call) Statement {
	if len(calls) == 0 {
		return unsupported(fmt.Errorf("%w: bare page reference", ErrUnsupportedStatement))
	}

	if locatorFactories[calls[0].name] {
		sel, rest, err := resolveLocator(calls)
		if err != nil {
			return unsupported(err)
		}
		if len(rest) != 1 || !rest[0].called {
			return unsupported(fmt.Errorf("%w: locator without action", ErrUnsupportedStatement))
		}
		return locatorAction(sel, rest[0])
	}

	c := calls[0]
	if len(calls) > 1 || !c.called {
		return unsupported(fmt.Errorf("%w: page.%s", ErrUnsupportedStatement, c.name))
	}
	if c.name == "evaluate" {
		if m := scrollArg.FindStringSubmatch(c.raw); m != nil {
			target := strings.Trim(m[1], `'"`)
			if strings.Contains(target, "scrollHeight") {
				target = "bottom"
			}
			return Statement{Kind: KindScroll, Value: target}
		}
		return unsupported(fmt.Errorf("%w: page.evaluate is limited to window.scrollTo", ErrUnsupportedStatement))
	}
	if !pageMethods[c.name] {
		return unsupported(fmt.Errorf("%w: page.%s", ErrUnsupportedStatement, c.name))
	}
	if c.argErr != nil {
		return unsupported(c.argErr)
	}

	switch c.name {
	case "goto":
		url, ok := argString(c.args, 0)
		if !ok {
			return unsupported(fmt.Errorf("%w: goto needs a url", ErrUnsupportedStatement))
		}
		opts := argObject(c.args, 1)
		return Statement{Kind: KindGoto, Value: url, State: stringOpt(opts, "waitUntil"), Timeout: timeoutOf(opts)}

	case "click", "dblclick", "check", "tap":
		sel, ok := argString(c.args, 0)
		if !ok {
			return unsupported(fmt.Errorf("%w: %s needs a selector", ErrUnsupportedStatement, c.name))
		}
		return Statement{Kind: KindClick, Selector: sel, Timeout: timeoutOf(argObject(c.args, 1))}

	case "fill", "type":
		sel, ok1 := argString(c.args, 0)
		val, ok2 := argString(c.args, 1)
		if !ok1 || !ok2 {
			return unsupported(fmt.Errorf("%w: %s needs a selector and a value", ErrUnsupportedStatement, c.name))
		}
		return Statement{Kind: KindFill, Selector: sel, Value: val, Timeout: timeoutOf(argObject(c.args, 2))}

	case "waitForSelector":
		sel, ok := argString(c.args, 0)
		if !ok {
			return unsupported(fmt.Errorf("%w: waitForSelector needs a selector", ErrUnsupportedStatement))
		}
		opts := argObject(c.args, 1)
		return Statement{Kind: KindWaitForSelector, Selector: sel, State: stringOpt(opts, "state"), Timeout: timeoutOf(opts)}

	case "waitForLoadState":
		state, _ := argString(c.args, 0)
		return Statement{Kind: KindWaitForLoadState, State: state, Timeout: timeoutOf(argObject(c.args, 1))}

	case "waitForTimeout":
		ms, ok := argString(c.args, 0)
		if !ok {
			return unsupported(fmt.Errorf("%w: waitForTimeout needs a duration", ErrUnsupportedStatement))
		}
		n, _ := strconv.ParseFloat(ms, 64)
		return Statement{Kind: KindWaitForTimeout, Timeout: time.Duration(n) * time.Millisecond}

	case "screenshot":
		return Statement{Kind: KindScreenshot, Value: stringOpt(argObject(c.args, 0), "path")}

	case "selectOption":
		sel, ok1 := argString(c.args, 0)
		val, ok2 := argString(c.args, 1)
		if !ok1 || !ok2 {
			return unsupported(fmt.Errorf("%w: selectOption needs a selector and a value", ErrUnsupportedStatement))
		}
		return Statement{Kind: KindSelectOption, Selector: sel, Value: val, Timeout: timeoutOf(argObject(c.args, 2))}

	case "hover":
		sel, ok := argString(c.args, 0)
		if !ok {
			return unsupported(fmt.Errorf("%w: hover needs a selector", ErrUnsupportedStatement))
		}
		return Statement{Kind: KindHover, Selector: sel, Timeout: timeoutOf(argObject(c.args, 1))}

	case "setDefaultTimeout":
		ms, ok := argString(c.args, 0)
		if !ok {
			return unsupported(fmt.Errorf("%w: setDefaultTimeout needs a duration", ErrUnsupportedStatement))
		}
		n, _ := strconv.ParseFloat(ms, 64)
		return Statement{Kind: KindSetTimeout, Timeout: time.Duration(n) * time.Millisecond}
	}

	return unsupported(fmt.Errorf("%w: page.%s", ErrUnsupportedStatement, c.name))
}

func locatorAction(sel string, c call) Statement {
	if c.argErr != nil {
		return unsupported(c.argErr)
	}
	switch c.name {
	case "click", "dblclick", "check", "tap":
		return Statement{Kind: KindClick, Selector: sel, Timeout: timeoutOf(argObject(c.args, 0))}
	case "fill", "type", "pressSequentially":
		val, ok := argString(c.args, 0)
		if !ok {
			return unsupported(fmt.Errorf("%w: %s needs a value", ErrUnsupportedStatement, c.name))
		}
		return Statement{Kind: KindFill, Selector: sel, Value: val, Timeout: timeoutOf(argObject(c.args, 1))}
	case "hover":
		return Statement{Kind: KindHover, Selector: sel, Timeout: timeoutOf(argObject(c.args, 0))}
	case "selectOption":
		val, ok := argString(c.args, 0)
		if !ok {
			return unsupported(fmt.Errorf("%w: selectOption needs a value", ErrUnsupportedStatement))
		}
		return Statement{Kind: KindSelectOption, Selector: sel, Value: val, Timeout: timeoutOf(argObject(c.args, 1))}
	case "waitFor":
		opts := argObject(c.args, 0)
		return Statement{Kind: KindWaitForSelector, Selector: sel, State: stringOpt(opts, "state"), Timeout: timeoutOf(opts)}
	case "scrollIntoViewIfNeeded":
		return Statement{Kind: KindHover, Selector: sel}
	}
	return unsupported(fmt.Errorf("%w: locator.%s", ErrUnsupportedStatement, c.name))
}

func interpretExpect(calls []call) Statement {
	subject := calls[0]
	if !subject.called || subject.argErr != nil || len(subject.args) != 1 || subject.args[0].kind != valChain {
		return unsupported(fmt.Errorf("%w: expect needs a page or locator", ErrUnsupportedStatement))
	}
	rest := calls[1:]
	negate := false
	if len(rest) > 0 && rest[0].name == "not" && !rest[0].called {
		negate = true
		rest = rest[1:]
	}
	if len(rest) != 1 || !rest[0].called {
		return unsupported(fmt.Errorf("%w: expect without matcher", ErrUnsupportedStatement))
	}
	matcher := rest[0]
	if matcher.argErr != nil {
		return unsupported(matcher.argErr)
	}

	target := subject.args[0].chain
	if target[0].name != "page" {
		return unsupported(fmt.Errorf("%w: expect(%s)", ErrUnsupportedStatement, target[0].name))
	}

	if len(target) == 1 {
		st := Statement{Negate: negate}
		switch matcher.name {
		case "toHaveURL":
			st.Kind = KindExpectURL
		case "toHaveTitle":
			st.Kind = KindExpectTitle
		default:
			return unsupported(fmt.Errorf("%w: expect(page).%s", ErrUnsupportedStatement, matcher.name))
		}
		if err := setExpected(&st, matcher.args, 0); err != nil {
			return unsupported(err)
		}
		st.Timeout = timeoutOf(argObject(matcher.args, 1))
		return st
	}

	sel, tail, err := resolveLocator(target[1:])
	if err != nil {
		return unsupported(err)
	}
	if len(tail) != 0 {
		return unsupported(fmt.Errorf("%w: unexpected locator call %s", ErrUnsupportedStatement, tail[0].name))
	}

	st := Statement{Selector: sel, Negate: negate}
	switch matcher.name {
	case "toBeVisible":
		st.Kind = KindExpectVisible
		st.Timeout = timeoutOf(argObject(matcher.args, 0))
		return st
	case "toBeHidden":
		st.Kind = KindExpectVisible
		st.Negate = !negate
		st.Timeout = timeoutOf(argObject(matcher.args, 0))
		return st
	case "toContainText", "toHaveText":
		st.Kind = KindExpectText
		st.Exact = matcher.name == "toHaveText"
	case "toHaveValue":
		st.Kind = KindExpectValue
		st.Exact = true
	case "toHaveCount":
		st.Kind = KindExpectCount
		n, ok := argString(matcher.args, 0)
		if !ok {
			return unsupported(fmt.Errorf("%w: toHaveCount needs a number", ErrUnsupportedStatement))
		}
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return unsupported(fmt.Errorf("%w: toHaveCount needs a number", ErrUnsupportedStatement))
		}
		st.Count = int(f)
		st.Timeout = timeoutOf(argObject(matcher.args, 1))
		return st
	case "toHaveAttribute":
		st.Kind = KindExpectAttribute
		name, ok := argString(matcher.args, 0)
		if !ok {
			return unsupported(fmt.Errorf("%w: toHaveAttribute needs a name", ErrUnsupportedStatement))
		}
		st.Name = name
		if err := setExpected(&st, matcher.args, 1); err != nil {
			return unsupported(err)
		}
		st.Exact = true
		st.Timeout = timeoutOf(argObject(matcher.args, 2))
		return st
	default:
		return unsupported(fmt.Errorf("%w: expect(locator).%s", ErrUnsupportedStatement, matcher.name))
	}

	if err := setExpected(&st, matcher.args, 0); err != nil {
		return unsupported(err)
	}
	st.Timeout = timeoutOf(argObject(matcher.args, 1))
	return st
}

func setExpected(st *Statement, args []value, i int) error {
	if i >= len(args) {
		return fmt.Errorf("%w: missing expected value", ErrUnsupportedStatement)
	}
	switch args[i].kind {
	case valRegex:
		st.Pattern = args[i].re
		return nil
	case valString, valNumber:
		st.Value, _ = argString(args, i)
		return nil
	}
	return fmt.Errorf("%w: expected value must be a string or pattern", ErrUnsupportedStatement)
}
