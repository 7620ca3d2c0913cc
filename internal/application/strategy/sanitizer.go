package strategy

import "strings"

// RedactionMarker replaces every denylisted field value in strategy output.
const RedactionMarker = "[REDACTED]"

// sensitiveFieldNames is the denylist of field names whose values must never
// reach a user-facing response. Matching is case-insensitive so "Password"
// and "privateKey" are both caught.
var sensitiveFieldNames = []string{
	"password",
	"token",
	"secret",
	"key",
	"credential",
	"auth",
	"sql",
	"query",
	"certificate",
	"privateKey",
}

func isSensitiveField(name string) bool {
	for _, sensitive := range sensitiveFieldNames {
		if strings.EqualFold(name, sensitive) {
			return true
		}
	}
	return false
}

// sanitizeMap returns a copy of the map with denylisted fields redacted.
// Redaction recurses one level deep: nested maps are sanitized, but maps
// nested further down are carried as-is.
func sanitizeMap(fields map[string]interface{}) map[string]interface{} {
	return sanitizeMapDepth(fields, 1)
}

func sanitizeMapDepth(fields map[string]interface{}, remainingDepth int) map[string]interface{} {
	if fields == nil {
		return nil
	}

	sanitized := make(map[string]interface{}, len(fields))
	for name, value := range fields {
		if isSensitiveField(name) {
			sanitized[name] = RedactionMarker
			continue
		}

		if nested, ok := value.(map[string]interface{}); ok && remainingDepth > 0 {
			sanitized[name] = sanitizeMapDepth(nested, remainingDepth-1)
			continue
		}

		sanitized[name] = value
	}
	return sanitized
}
