package planner

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// flexString accepts strings, numbers and booleans. Models do not always quote
// values such as zip codes or counts.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	*s = flexString(strings.Trim(string(b), `"`))
	return nil
}

// flexInt accepts integers, floats and numeric strings. Anything else is
// treated as absent.
type flexInt struct {
	value int
	set   bool
}

func (n *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	n.value, n.set = int(f), true
	return nil
}

func (n flexInt) ptr() *int {
	if !n.set || n.value < 0 {
		return nil
	}
	v := n.value
	return &v
}

type stepOutput struct {
	Action      flexString `json:"action"`
	Selector    flexString `json:"selector"`
	Value       flexString `json:"value"`
	Description flexString `json:"description"`
	WaitBefore  flexInt    `json:"wait_before"`
	WaitAfter   flexInt    `json:"wait_after"`
	Retry       flexInt    `json:"retry"`
}

type assertionOutput struct {
	Type        flexString `json:"type"`
	Selector    flexString `json:"selector"`
	Expected    flexString `json:"expected"`
	Operator    flexString `json:"operator"`
	Attribute   flexString `json:"attribute"`
	Description flexString `json:"description"`
}

type planOutput struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Steps       entryList              `json:"steps"`
	Assertions  entryList              `json:"assertions"`
	TestData    map[string]interface{} `json:"test_data"`
	Tags        []flexString           `json:"tags"`
}

// entryList keeps the elements of a JSON array undecoded so that each step or
// assertion can be decoded on its own. A value that is not an array yields no
// entries.
type entryList []json.RawMessage

func (l *entryList) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		*l = nil
		return nil
	}
	*l = raw
	return nil
}
