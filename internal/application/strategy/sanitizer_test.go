package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeMap(t *testing.T) {
	t.Run("should redact denylisted fields", func(t *testing.T) {
		sanitized := sanitizeMap(map[string]interface{}{
			"password": "hunter2",
			"token":    "jwt-value",
			"secret":   "s3cr3t",
			"message":  "kept",
		})

		assert.Equal(t, RedactionMarker, sanitized["password"])
		assert.Equal(t, RedactionMarker, sanitized["token"])
		assert.Equal(t, RedactionMarker, sanitized["secret"])
		assert.Equal(t, "kept", sanitized["message"])
	})

	t.Run("should match field names case-insensitively", func(t *testing.T) {
		sanitized := sanitizeMap(map[string]interface{}{
			"Password":   "hunter2",
			"AUTH":       "basic",
			"privatekey": "pem",
		})

		assert.Equal(t, RedactionMarker, sanitized["Password"])
		assert.Equal(t, RedactionMarker, sanitized["AUTH"])
		assert.Equal(t, RedactionMarker, sanitized["privatekey"])
	})

	t.Run("should redact sql and query fields", func(t *testing.T) {
		sanitized := sanitizeMap(map[string]interface{}{
			"sql":   "SELECT * FROM users",
			"query": "DELETE FROM orders",
		})

		assert.Equal(t, RedactionMarker, sanitized["sql"])
		assert.Equal(t, RedactionMarker, sanitized["query"])
	})

	t.Run("should not redact fields merely containing a denylisted word", func(t *testing.T) {
		sanitized := sanitizeMap(map[string]interface{}{
			"password_hint_count": 3,
			"keyboard":            "qwerty",
		})

		assert.Equal(t, 3, sanitized["password_hint_count"])
		assert.Equal(t, "qwerty", sanitized["keyboard"])
	})

	t.Run("should recurse exactly one level into nested maps", func(t *testing.T) {
		sanitized := sanitizeMap(map[string]interface{}{
			"context": map[string]interface{}{
				"token": "jwt-value",
				"deep": map[string]interface{}{
					"password": "untouched-by-depth-limit",
				},
			},
		})

		nested := sanitized["context"].(map[string]interface{})
		assert.Equal(t, RedactionMarker, nested["token"])

		deep := nested["deep"].(map[string]interface{})
		assert.Equal(t, "untouched-by-depth-limit", deep["password"])
	})

	t.Run("should leave the input map unmodified", func(t *testing.T) {
		original := map[string]interface{}{"password": "hunter2"}
		sanitizeMap(original)
		assert.Equal(t, "hunter2", original["password"])
	})

	t.Run("should keep a nil map nil", func(t *testing.T) {
		assert.Nil(t, sanitizeMap(nil))
	})
}
