package payload

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Matcher recognizes one result envelope. Match must be pure and must not
// panic on any input.
type Matcher struct {
	Name  string
	Match func(res gjson.Result) (any, bool)
}

// Matchers are tried in order by Extract.
var Matchers = []Matcher{
	{Name: "structuredContent.result", Match: field("structuredContent.result")},
	{Name: "content.text", Match: contentText},
	{Name: "array", Match: array},
	{Name: "result", Match: field("result")},
}

// Extract returns the normalized value of a tool result.
func Extract(raw json.RawMessage) any {
	v, _ := Match(raw)

	return v
}

// Match returns the normalized value and the name of the matcher that
// produced it, or "raw" when none applied.
func Match(raw json.RawMessage) (any, string) {
	if len(raw) == 0 {
		return nil, "raw"
	}

	if !gjson.ValidBytes(raw) {
		return string(raw), "raw"
	}

	res := gjson.ParseBytes(raw)

	for _, m := range Matchers {
		if v, ok := m.Match(res); ok {
			return v, m.Name
		}
	}

	return decode(res), "raw"
}

func field(path string) func(gjson.Result) (any, bool) {
	return func(res gjson.Result) (any, bool) {
		v := res.Get(path)
		if !truthy(v) {
			return nil, false
		}

		return decode(v), true
	}
}

// contentText unwraps the first text content item. Text holding JSON is
// decoded; anything else is returned as the string itself.
func contentText(res gjson.Result) (any, bool) {
	text := res.Get("content.0.text")
	if !truthy(text) {
		return nil, false
	}

	s := text.String()

	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v, true
	}

	return s, true
}

func array(res gjson.Result) (any, bool) {
	if !res.IsArray() {
		return nil, false
	}

	return decode(res), true
}

// truthy follows loose truthiness: missing, null, false, 0, and "" are
// falsy; objects and arrays are always truthy.
func truthy(r gjson.Result) bool {
	if !r.Exists() {
		return false
	}

	switch r.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		return r.Str != ""
	default:
		return true
	}
}

func decode(r gjson.Result) any {
	var v any
	if err := json.Unmarshal([]byte(r.Raw), &v); err != nil {
		return r.Value()
	}

	return v
}

// Rows coerces a normalized value into a list. Lists are returned as they
// are, nil becomes an empty list, and any other value becomes a
// one-element list.
func Rows(v any) []any {
	switch rows := v.(type) {
	case nil:
		return []any{}
	case []any:
		return rows
	default:
		return []any{v}
	}
}
