package relay

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"leadrelay/pkg/errors"
)

// A candidateFunc inspects one possible identifier location inside a
// webhook body. Missing intermediate levels simply report no match.
type candidateFunc func(body map[string]interface{}) (interface{}, bool)

// identifierCandidates in priority order: the flat bracket-notation key
// some transports emit for nested form fields, the equivalent nested
// object path, then a plain top-level key.
var identifierCandidates = []candidateFunc{
	flatKey("data[FIELDS][ID]"),
	nestedPath("data", "FIELDS", "ID"),
	flatKey("leadId"),
}

// ExtractLeadID locates the lead identifier inside a loosely structured
// webhook payload. The original body may arrive wrapped in up to two
// levels of a `body` field; candidates are tried innermost-first.
func ExtractLeadID(payload map[string]interface{}) (string, error) {
	for _, body := range bodyLevels(payload) {
		for _, candidate := range identifierCandidates {
			v, ok := candidate(body)
			if !ok {
				continue
			}
			if id := strings.TrimSpace(stringify(v)); id != "" {
				return id, nil
			}
		}
	}

	return "", errors.ErrMissingIdentifier
}

// bodyLevels returns the innermost body first, then each enclosing
// wrapper, so a transport-wrapped payload wins over its envelope.
func bodyLevels(payload map[string]interface{}) []map[string]interface{} {
	levels := []map[string]interface{}{payload}
	body := payload
	for i := 0; i < 2; i++ {
		inner, ok := body["body"].(map[string]interface{})
		if !ok {
			break
		}
		levels = append([]map[string]interface{}{inner}, levels...)
		body = inner
	}
	return levels
}

func flatKey(key string) candidateFunc {
	return func(body map[string]interface{}) (interface{}, bool) {
		v, ok := body[key]
		return v, ok
	}
}

func nestedPath(keys ...string) candidateFunc {
	return func(body map[string]interface{}) (interface{}, bool) {
		current := interface{}(body)
		for _, key := range keys {
			obj, ok := current.(map[string]interface{})
			if !ok {
				return nil, false
			}
			current, ok = obj[key]
			if !ok {
				return nil, false
			}
		}
		return current, true
	}
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case nil:
		return ""
	case map[string]interface{}, []interface{}:
		// Containers are never identifiers.
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}
