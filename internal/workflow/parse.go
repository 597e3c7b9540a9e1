package workflow

import (
	"encoding/json"
	"net/http"
	"strings"
)

// decodeBody turns a 2xx workflow body into a JSON object. Workflows
// answer with an object, an array of objects, a JSON string holding
// either, or a bare URL. Backticks sometimes wrap values.
func decodeBody(raw []byte) (map[string]any, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil, &UpstreamError{StatusCode: http.StatusInternalServerError, Message: "Generation service returned an empty response"}
	}
	if strings.HasPrefix(text, "Internal S") {
		return nil, &UpstreamError{StatusCode: http.StatusInternalServerError, Message: "Generation service failed"}
	}

	v, ok := parseJSON(text)
	if !ok {
		if u := cleanURL(text); isHTTPURL(u) {
			return map[string]any{"resultUrls": []any{u}}, nil
		}
		// unrecognized but not a failure signal
		return map[string]any{}, nil
	}

	return normalize(v, 0), nil
}

// parseJSON tries the text as is, then with backticks removed
func parseJSON(text string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		return v, true
	}
	stripped := strings.ReplaceAll(text, "`", "")
	if err := json.Unmarshal([]byte(stripped), &v); err == nil {
		return v, true
	}
	return nil, false
}

func normalize(v any, depth int) map[string]any {
	if depth > 3 {
		return map[string]any{}
	}
	switch t := v.(type) {
	case map[string]any:
		return t
	case []any:
		if len(t) == 0 {
			return map[string]any{}
		}
		return normalize(t[0], depth+1)
	case string:
		if inner, ok := parseJSON(strings.TrimSpace(t)); ok {
			return normalize(inner, depth+1)
		}
		if u := cleanURL(t); isHTTPURL(u) {
			return map[string]any{"resultUrls": []any{u}}
		}
	}
	return map[string]any{}
}

// extractResultURL checks, in order: resultJson.resultUrls[0], videoUrl,
// resultUrls[0], data.videoUrl. resultJson and data may be JSON strings.
func extractResultURL(doc map[string]any) string {
	if rj := asObject(doc["resultJson"]); rj != nil {
		if u := firstString(rj["resultUrls"]); u != "" {
			return u
		}
	}
	if u := asString(doc["videoUrl"]); u != "" {
		return u
	}
	if u := firstString(doc["resultUrls"]); u != "" {
		return u
	}
	if data := asObject(doc["data"]); data != nil {
		if u := asString(data["videoUrl"]); u != "" {
			return u
		}
	}
	return ""
}

func asObject(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case string:
		if inner, ok := parseJSON(strings.TrimSpace(t)); ok {
			if m, ok := inner.(map[string]any); ok {
				return m
			}
		}
	}
	return nil
}

func asString(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return cleanURL(s)
}

func firstString(v any) string {
	switch t := v.(type) {
	case []any:
		if len(t) > 0 {
			return asString(t[0])
		}
	case string:
		return asString(t)
	}
	return ""
}

func cleanURL(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "`\""))
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
