package gateways

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

var kvSplitter = regexp.MustCompile(`[&\s]+`)

// Normalize turns an opaque gateway response body into a flat map with
// lower-cased keys so correlation logic stays gateway-agnostic. It never
// fails: unparseable non-empty input degrades to {"message": body} and empty
// input yields an empty map. Parsers are tried in order, first success wins.
func Normalize(body string) map[string]string {
	body = strings.TrimSpace(body)
	if body == "" {
		return map[string]string{}
	}

	if result, ok := normalizeJSON(body); ok {
		return result
	}
	if result, ok := normalizeXML(body); ok {
		return result
	}

	result := map[string]string{}
	normalized := strings.ReplaceAll(body, "\n", "&")
	for _, part := range kvSplitter.Split(normalized, -1) {
		if idx := strings.Index(part, "="); idx >= 0 {
			key := strings.ToLower(strings.TrimSpace(part[:idx]))
			result[key] = strings.TrimSpace(part[idx+1:])
		}
	}
	if len(result) == 0 {
		result["message"] = body
	}
	return result
}

// normalizeJSON flattens a JSON object, descending into nested objects such
// as the "response" envelope eSewa wraps some replies in. Keys colliding
// across nesting levels resolve last-seen-wins; callers must not rely on
// which one survives.
func normalizeJSON(body string) (map[string]string, bool) {
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return nil, false
	}

	result := map[string]string{}
	stack := []map[string]interface{}{parsed}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for key, value := range node {
			if nested, ok := value.(map[string]interface{}); ok {
				stack = append(stack, nested)
				continue
			}
			result[strings.ToLower(key)] = stringify(value)
		}
	}
	return result, true
}

// normalizeXML collects every leaf element's tag and text.
func normalizeXML(body string) (map[string]string, bool) {
	decoder := xml.NewDecoder(strings.NewReader(body))
	result := map[string]string{}
	depth := 0
	current := ""
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false
		}
		switch t := token.(type) {
		case xml.StartElement:
			depth++
			current = t.Name.Local
		case xml.EndElement:
			depth--
		case xml.CharData:
			text := strings.TrimSpace(string(t))
			// depth 1 is the document root, only nested elements count
			if text != "" && depth > 1 {
				result[strings.ToLower(current)] = text
			}
		}
	}
	if len(result) == 0 {
		return nil, false
	}
	return result, true
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
