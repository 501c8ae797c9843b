package pageanalysis

import (
	"regexp"
	"strings"
)

var selectorWords = regexp.MustCompile(`[A-Za-z0-9]+`)

// selectorNoise are tokens that carry no identity on their own.
var selectorNoise = map[string]bool{
	"text": true, "has": true, "data": true, "testid": true, "id": true,
	"class": true, "btn": true, "nth": true, "child": true, "type": true,
}

// SuggestReplacement finds the element of a that most likely is what a broken
// selector meant. Elements are scored by how many words of the broken selector
// appear in their identity: test id, id, name, classes, text, placeholder and
// aria label. Interactive and visible elements win ties. ok is false when no
// element shares a word with the selector or the best match is the selector
// itself.
func SuggestReplacement(a *PageAnalysis, broken string) (PageElement, bool) {
	if a == nil || a.Fallback {
		return PageElement{}, false
	}
	words := identityWords(broken)
	if len(words) == 0 {
		return PageElement{}, false
	}

	var best PageElement
	bestScore := 0
	for _, el := range candidates(a) {
		if el.Selector == "" || el.Selector == broken {
			continue
		}
		score := overlap(words, elementWords(el)) * 4
		if score == 0 {
			continue
		}
		if el.IsInteractive {
			score++
		}
		if el.IsVisible {
			score++
		}
		if score > bestScore {
			best, bestScore = el, score
		}
	}
	return best, bestScore > 0
}

func candidates(a *PageAnalysis) []PageElement {
	var out []PageElement
	for _, f := range a.Forms {
		out = append(out, f.Inputs...)
		out = append(out, f.Buttons...)
	}
	out = append(out, a.Buttons...)
	out = append(out, a.Inputs...)
	out = append(out, a.Links...)
	out = append(out, a.Navigation...)
	out = append(out, a.InteractiveElements...)
	return out
}

func identityWords(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range selectorWords.FindAllString(splitCamel(s), -1) {
		w = strings.ToLower(w)
		if len(w) < 2 || selectorNoise[w] {
			continue
		}
		out[w] = true
	}
	return out
}

func elementWords(el PageElement) map[string]bool {
	parts := []string{el.TestID, el.ID, el.Name, el.Text, el.Placeholder, el.AriaLabel}
	parts = append(parts, el.Classes...)
	return identityWords(strings.Join(parts, " "))
}

func overlap(want, have map[string]bool) int {
	n := 0
	for w := range want {
		if have[w] {
			n++
		}
	}
	return n
}

// splitCamel inserts a space at lower-to-upper case boundaries so submitButton
// yields the words submit and button.
func splitCamel(s string) string {
	var b strings.Builder
	var prev rune
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' && prev >= 'a' && prev <= 'z' {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}
