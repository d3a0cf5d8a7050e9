package models

import (
	"bytes"
	"encoding/json"
	"regexp"
	"sort"
)

// maxPayloadDepth bounds recursive payload searches against cyclic or
// pathologically nested capture output.
const maxPayloadDepth = 8

var (
	checkoutPathPattern   = regexp.MustCompile(`(?i)checkouts/([A-Za-z0-9]{15,18})([^A-Za-z0-9]|$)`)
	checkoutIDTextPattern = regexp.MustCompile(`"checkoutId"\s*:\s*"([^"]+)"`)
	storePathPattern      = regexp.MustCompile(`(?i)stores/([A-Za-z0-9_-]{4,32})([^A-Za-z0-9_-]|$)`)
	paymentTokenPattern   = regexp.MustCompile(`\btok_[A-Za-z0-9]{8,}\b`)
)

// BodyValue decodes a captured payload into structured data. Capture tooling
// frequently double-encodes bodies as JSON strings, so one level of embedded
// JSON is unwrapped. Parse failure is reported as absent data, never an error.
func BodyValue(raw json.RawMessage) (any, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, false
	}

	var value any
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return nil, false
	}

	if s, ok := value.(string); ok {
		var inner any
		if err := json.Unmarshal([]byte(s), &inner); err == nil {
			switch inner.(type) {
			case map[string]any, []any:
				return inner, true
			}
		}
		return s, true
	}
	return value, true
}

// HasKeyDeep reports whether key exists anywhere in the structure, searching
// maps and slices recursively up to maxPayloadDepth levels.
func HasKeyDeep(value any, key string) bool {
	return hasKeyDeep(value, key, 0)
}

func hasKeyDeep(value any, key string, depth int) bool {
	if depth > maxPayloadDepth {
		return false
	}
	switch v := value.(type) {
	case map[string]any:
		if _, ok := v[key]; ok {
			return true
		}
		for _, child := range v {
			if hasKeyDeep(child, key, depth+1) {
				return true
			}
		}
	case []any:
		for _, child := range v {
			if hasKeyDeep(child, key, depth+1) {
				return true
			}
		}
	}
	return false
}

// FindKeyDeep returns the first value stored under key anywhere in the
// structure. Map keys are visited in sorted order so the result is
// deterministic when a key occurs more than once at the same depth.
func FindKeyDeep(value any, key string) (any, bool) {
	return findKeyDeep(value, key, 0)
}

func findKeyDeep(value any, key string, depth int) (any, bool) {
	if depth > maxPayloadDepth {
		return nil, false
	}
	switch v := value.(type) {
	case map[string]any:
		if child, ok := v[key]; ok {
			return child, true
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if child, ok := findKeyDeep(v[k], key, depth+1); ok {
				return child, true
			}
		}
	case []any:
		for _, child := range v {
			if found, ok := findKeyDeep(child, key, depth+1); ok {
				return found, true
			}
		}
	}
	return nil, false
}

// FieldString returns the first non-empty string stored at any of the given
// top-level keys.
func FieldString(value any, keys ...string) (string, bool) {
	m, ok := value.(map[string]any)
	if !ok {
		return "", false
	}
	for _, key := range keys {
		if s, ok := m[key].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// ExtractCheckoutID locates the checkout/session identifier for an
// interaction. The priority order is fixed: a 15-18 character alphanumeric
// path segment after the literal "checkouts/" marker in the URL, then a
// top-level checkoutId in the response body, then a nested one, then the
// request body (structured, or a targeted text pattern when the body does
// not parse). Generic id-like fields never qualify.
func ExtractCheckoutID(i Interaction) (string, bool) {
	if m := checkoutPathPattern.FindStringSubmatch(i.URL); m != nil {
		return m[1], true
	}

	if body, ok := BodyValue(i.ResponseBody); ok {
		if s, ok := FieldString(body, "checkoutId"); ok {
			return s, true
		}
		if v, ok := FindKeyDeep(body, "checkoutId"); ok {
			if s, ok := v.(string); ok && s != "" {
				return s, true
			}
		}
	}

	if body, ok := BodyValue(i.RequestBody); ok {
		if s, ok := FieldString(body, "checkoutId"); ok {
			return s, true
		}
		if v, ok := FindKeyDeep(body, "checkoutId"); ok {
			if s, ok := v.(string); ok && s != "" {
				return s, true
			}
		}
	} else if m := checkoutIDTextPattern.FindStringSubmatch(string(i.RequestBody)); m != nil {
		return m[1], true
	}

	return "", false
}

// ExtractStoreID locates a storefront identifier from the URL path or a
// storeId/webstoreId body field.
func ExtractStoreID(i Interaction) (string, bool) {
	if m := storePathPattern.FindStringSubmatch(i.URL); m != nil {
		return m[1], true
	}
	for _, raw := range []json.RawMessage{i.ResponseBody, i.RequestBody} {
		if body, ok := BodyValue(raw); ok {
			if s, ok := FieldString(body, "storeId", "webstoreId"); ok {
				return s, true
			}
		}
	}
	return "", false
}

// ExtractPaymentToken locates a payment-token-like value in either payload.
func ExtractPaymentToken(i Interaction) (string, bool) {
	for _, raw := range []json.RawMessage{i.RequestBody, i.ResponseBody} {
		if body, ok := BodyValue(raw); ok {
			if s, ok := FieldString(body, "paymentToken", "token", "paymentMethodId"); ok {
				return s, true
			}
			if v, ok := FindKeyDeep(body, "paymentToken"); ok {
				if s, ok := v.(string); ok && s != "" {
					return s, true
				}
			}
		}
		if m := paymentTokenPattern.FindString(string(raw)); m != "" {
			return m, true
		}
	}
	return "", false
}

// ErrorMessages collects error text from the response body: entries of an
// "errors" array (bare strings or objects with a message field), plus
// top-level error/message strings when the status indicates failure.
func ErrorMessages(i Interaction) []string {
	body, ok := BodyValue(i.ResponseBody)
	if !ok {
		return nil
	}
	m, ok := body.(map[string]any)
	if !ok {
		return nil
	}

	var messages []string
	if list, ok := m["errors"].([]any); ok {
		for _, item := range list {
			switch e := item.(type) {
			case string:
				if e != "" {
					messages = append(messages, e)
				}
			case map[string]any:
				if s, ok := e["message"].(string); ok && s != "" {
					messages = append(messages, s)
				}
			}
		}
	}
	if i.Failed() {
		for _, key := range []string{"error", "message"} {
			if s, ok := m[key].(string); ok && s != "" {
				messages = append(messages, s)
			}
		}
	}
	return messages
}
