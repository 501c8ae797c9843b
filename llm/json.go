package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ExtractJSON returns the outermost JSON object in text.
func ExtractJSON(text string) (string, error) {
	text = StripCodeFences(text)
	start := strings.Index(text, "{")
	if start == -1 {
		return "", ErrNoJSON
	}
	end := strings.LastIndex(text, "}")
	if end < start {
		// Truncated output; leave the rest to the repair pass.
		return text[start:], nil
	}
	return text[start : end+1], nil
}

// DecodeJSON decodes the JSON object in text into out, repairing common model
// mistakes such as trailing commas, single quotes or truncation.
func DecodeJSON(text string, out interface{}) error {
	raw, err := ExtractJSON(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err == nil {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return fmt.Errorf("failed to repair model JSON: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("failed to decode model JSON: %w", err)
	}
	return nil
}

// CompleteJSON runs req and decodes the structured answer into out.
func CompleteJSON(ctx context.Context, client Client, req Request, out interface{}) error {
	text, err := client.Complete(ctx, req)
	if err != nil {
		return err
	}
	return DecodeJSON(text, out)
}
