package service

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

const (
	notJSONName    = "API response (not JSON formatted)"
	parseErrorName = "Error parsing API response"
)

var (
	fencedArrayPattern  = regexp.MustCompile("(?s)```json\\s*(\\[.*?\\])\\s*```")
	bracketArrayPattern = regexp.MustCompile(`(?s)\[.*?\]`)
)

// arrayLocator finds the JSON array payload inside completion text.
type arrayLocator func(text string) (string, bool)

// arrayLocators are tried in order; the first hit is parsed and no other is tried.
var arrayLocators = []arrayLocator{
	fencedArray,
	firstBracketedArray,
}

func fencedArray(text string) (string, bool) {
	m := fencedArrayPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func firstBracketedArray(text string) (string, bool) {
	m := bracketArrayPattern.FindString(text)
	return m, m != ""
}

// extractCandidates turns free-form completion text into candidate objects. It
// never fails: text without an array, or with an array that does not parse,
// becomes a single diagnostic candidate carrying the raw text.
func extractCandidates(text string) []map[string]interface{} {
	for _, locate := range arrayLocators {
		payload, ok := locate(text)
		if !ok {
			continue
		}

		var items []interface{}
		if err := json.Unmarshal([]byte(payload), &items); err != nil {
			return []map[string]interface{}{{"name": parseErrorName, "description": text}}
		}

		out := make([]map[string]interface{}, 0, len(items))
		for _, item := range items {
			if obj, ok := item.(map[string]interface{}); ok {
				out = append(out, obj)
			}
		}
		return out
	}

	return []map[string]interface{}{{"name": notJSONName, "description": text}}
}

// field renders a candidate value as text; absent and null become "".
func field(candidate map[string]interface{}, key string) string {
	switch v := candidate[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// firstField returns the first non-empty value among keys.
func firstField(candidate map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v := field(candidate, key); v != "" {
			return v
		}
	}
	return ""
}
