package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityLevel_Creation(t *testing.T) {
	t.Run("should create all defined levels", func(t *testing.T) {
		for _, name := range []string{LevelInfo, LevelWarn, LevelError, LevelFatal} {
			level, err := NewSeverityLevel(name)
			assert.NoError(t, err)
			assert.Equal(t, name, level.String())
		}
	})

	t.Run("should reject an unknown level", func(t *testing.T) {
		_, err := NewSeverityLevel("TRACE")
		assert.Error(t, err)
	})

	t.Run("should reject an empty level", func(t *testing.T) {
		_, err := NewSeverityLevel("")
		assert.Error(t, err)
	})
}

func TestSeverityLevel_Priority(t *testing.T) {
	t.Run("should order FATAL highest", func(t *testing.T) {
		fatal := MustSeverityLevel(LevelFatal)
		errLevel := MustSeverityLevel(LevelError)
		warn := MustSeverityLevel(LevelWarn)
		info := MustSeverityLevel(LevelInfo)

		assert.Equal(t, 0, fatal.Priority())
		assert.True(t, fatal.IsHigherPriority(errLevel))
		assert.True(t, errLevel.IsHigherPriority(warn))
		assert.True(t, warn.IsHigherPriority(info))
	})
}

func TestSeverityLevel_RequiresNotification(t *testing.T) {
	t.Run("should require notification for FATAL and ERROR only", func(t *testing.T) {
		assert.True(t, MustSeverityLevel(LevelFatal).RequiresNotification())
		assert.True(t, MustSeverityLevel(LevelError).RequiresNotification())
		assert.False(t, MustSeverityLevel(LevelWarn).RequiresNotification())
		assert.False(t, MustSeverityLevel(LevelInfo).RequiresNotification())
	})
}
