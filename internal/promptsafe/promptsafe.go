// Package promptsafe sanitizes user-supplied text before it is embedded in
// model prompts.
package promptsafe

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	ErrNameTooLong        = errors.New("name too long")
	ErrDescriptionTooLong = errors.New("description too long")
	ErrInstructionTooLong = errors.New("instruction too long")
	ErrTooManySteps       = errors.New("too many steps")
)

var (
	allowedNameChars = regexp.MustCompile(`^[\p{L}\p{N} \-_().,:'/]+$`)
	multiSpace       = regexp.MustCompile(`\s+`)
	inlineSpace      = regexp.MustCompile(`[ \t]+`)
	manyNewlines     = regexp.MustCompile(`\n{3,}`)
)

// Limits bound the size of text embedded in prompts.
type Limits struct {
	MaxNameLength        int
	MaxDescriptionLength int
	MaxInstructionLength int
	MaxStepsCount        int
}

func DefaultLimits() Limits {
	return Limits{
		MaxNameLength:        255,
		MaxDescriptionLength: 5000,
		MaxInstructionLength: 5000,
		MaxStepsCount:        200,
	}
}

// CheckInstruction enforces the instruction length limit.
func (l Limits) CheckInstruction(s string) error {
	if l.MaxInstructionLength > 0 && len(s) > l.MaxInstructionLength {
		return fmt.Errorf("%w: %d characters, maximum is %d", ErrInstructionTooLong, len(s), l.MaxInstructionLength)
	}
	return nil
}

// CheckPlan enforces the name, description and step count limits.
func (l Limits) CheckPlan(name, description string, steps int) error {
	if l.MaxNameLength > 0 && len(name) > l.MaxNameLength {
		return fmt.Errorf("%w: maximum is %d characters", ErrNameTooLong, l.MaxNameLength)
	}
	if l.MaxDescriptionLength > 0 && len(description) > l.MaxDescriptionLength {
		return fmt.Errorf("%w: maximum is %d characters", ErrDescriptionTooLong, l.MaxDescriptionLength)
	}
	if l.MaxStepsCount > 0 && steps > l.MaxStepsCount {
		return fmt.Errorf("%w: %d steps, maximum is %d", ErrTooManySteps, steps, l.MaxStepsCount)
	}
	return nil
}

// Name sanitizes a short single-line label such as a plan name. Disallowed
// characters become underscores.
func Name(name string) string {
	name = RemoveControl(strings.TrimSpace(name), false)
	if !allowedNameChars.MatchString(name) {
		var b strings.Builder
		for _, r := range name {
			if unicode.IsLetter(r) || unicode.IsNumber(r) || strings.ContainsRune(" -_().,:'/", r) {
				b.WriteRune(r)
			} else {
				b.WriteRune('_')
			}
		}
		name = b.String()
	}
	return strings.TrimSpace(multiSpace.ReplaceAllString(name, " "))
}

// Text sanitizes multi-line free text. Paragraph breaks are kept.
func Text(s string) string {
	s = RemoveNonPrintable(RemoveControl(strings.TrimSpace(s), true))
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = manyNewlines.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(inlineSpace.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Field sanitizes a single-line step field such as a selector or value.
func Field(s string) string {
	return strings.TrimSpace(RemoveNonPrintable(RemoveControl(s, false)))
}

// Tag wraps content in an XML-style element. Closing tags of the same element
// inside content are neutralised so data cannot end the section early.
func Tag(name, content string) string {
	closing := "</" + name + ">"
	content = strings.ReplaceAll(content, closing, "<\\/"+name+">")
	return "<" + name + ">" + content + closing
}

// RemoveControl drops control characters. Newlines, tabs and carriage returns
// are kept when preserveFormatting is set.
func RemoveControl(s string, preserveFormatting bool) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			if preserveFormatting && (r == '\n' || r == '\t' || r == '\r') {
				b.WriteRune(r)
			}
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// RemoveNonPrintable drops non-printable runes other than common whitespace.
func RemoveNonPrintable(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' || r == '\r' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
