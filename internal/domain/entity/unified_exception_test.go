package entity

import (
	"errors"
	"testing"
	"time"

	"faultline/internal/domain/valueobject"

	"github.com/stretchr/testify/assert"
)

func testClassification(t *testing.T, category, level, code string) valueobject.Classification {
	t.Helper()
	classification, err := valueobject.NewClassification(valueobject.ClassificationParams{
		Category:    valueobject.MustExceptionCategory(category),
		Level:       valueobject.MustSeverityLevel(level),
		Code:        code,
		UserMessage: "A test-worthy condition occurred.",
		ShouldLog:   true,
		Confidence:  0.9,
	})
	assert.NoError(t, err)
	return classification
}

func testContext() *valueobject.ExceptionContext {
	return valueobject.DefaultExceptionContext(valueobject.MustSourceTag(valueobject.SourceSystem))
}

func TestUnifiedException_Creation(t *testing.T) {
	t.Run("should create an exception with identity and timestamp", func(t *testing.T) {
		classification := testClassification(t, valueobject.CategoryApplication, valueobject.LevelError, "GENERAL_ERROR")
		original := errors.New("boom")

		exception, err := NewUnifiedException(classification, "boom", testContext(), original, UnifiedExceptionParams{})

		assert.NoError(t, err)
		assert.NotEmpty(t, exception.ID())
		assert.Equal(t, "boom", exception.Message())
		assert.Equal(t, valueobject.CategoryApplication, exception.Category().String())
		assert.Equal(t, "GENERAL_ERROR", exception.Code())
		assert.Equal(t, original, exception.OriginalFault())
		assert.WithinDuration(t, time.Now(), exception.OccurredAt(), time.Second)
	})

	t.Run("should reject a nil context", func(t *testing.T) {
		classification := testClassification(t, valueobject.CategoryApplication, valueobject.LevelError, "GENERAL_ERROR")
		_, err := NewUnifiedException(classification, "boom", nil, nil, UnifiedExceptionParams{})
		assert.Error(t, err)
	})

	t.Run("should reject an unset classification", func(t *testing.T) {
		_, err := NewUnifiedException(valueobject.Classification{}, "boom", testContext(), nil, UnifiedExceptionParams{})
		assert.Error(t, err)
	})

	t.Run("should default an empty message", func(t *testing.T) {
		classification := testClassification(t, valueobject.CategoryApplication, valueobject.LevelError, "GENERAL_ERROR")
		exception, err := NewUnifiedException(classification, "", testContext(), nil, UnifiedExceptionParams{})

		assert.NoError(t, err)
		assert.Equal(t, "Unknown error occurred", exception.Message())
	})
}

func TestUnifiedException_RenderErrorResponse(t *testing.T) {
	t.Run("should render validation faults with field errors", func(t *testing.T) {
		classification := testClassification(t, valueobject.CategoryValidation, valueobject.LevelWarn, "VALIDATION_ERROR")
		exception, err := NewUnifiedException(classification, "invalid input", testContext(), nil, UnifiedExceptionParams{
			ValidationErrors: []string{"email is required", "name is too short"},
		})
		assert.NoError(t, err)

		response := exception.RenderErrorResponse("req-42")

		assert.Equal(t, "Validation Failed", response.Title)
		assert.Equal(t, 422, response.Status)
		assert.Equal(t, "VALIDATION_ERROR", response.Code)
		assert.Equal(t, "req-42", response.RequestID)
		assert.Equal(t, []string{"email is required", "name is too short"}, response.ValidationErrors)
	})

	t.Run("should render HTTP faults with upstream status echo", func(t *testing.T) {
		classification := testClassification(t, valueobject.CategoryHTTP, valueobject.LevelError, "HTTP_502")
		exception, err := NewUnifiedException(classification, "bad gateway", testContext(), nil, UnifiedExceptionParams{
			HTTPStatus:   502,
			HTTPResponse: map[string]interface{}{"upstream": "billing"},
		})
		assert.NoError(t, err)

		response := exception.RenderErrorResponse("")

		assert.Equal(t, "Request Error", response.Title)
		assert.Equal(t, 500, response.Status)
		assert.Equal(t, 502, response.HTTPStatus)
		assert.NotNil(t, response.HTTPResponse)
		assert.Empty(t, response.ValidationErrors)
	})

	t.Run("should fall back to a row's ERROR entry for missing levels", func(t *testing.T) {
		classification := testClassification(t, valueobject.CategoryDomain, valueobject.LevelInfo, "RULE_NOTE")
		exception, err := NewUnifiedException(classification, "note", testContext(), nil, UnifiedExceptionParams{})
		assert.NoError(t, err)

		response := exception.RenderErrorResponse("")

		assert.Equal(t, "Business Rule Violation", response.Title)
		assert.Equal(t, 409, response.Status)
	})

	t.Run("should use the raw message when no user message is set", func(t *testing.T) {
		classification, err := valueobject.NewClassification(valueobject.ClassificationParams{
			Category:   valueobject.MustExceptionCategory(valueobject.CategoryApplication),
			Level:      valueobject.MustSeverityLevel(valueobject.LevelError),
			Code:       "GENERAL_ERROR",
			ShouldLog:  true,
			Confidence: 0.5,
		})
		assert.NoError(t, err)

		exception, err := NewUnifiedException(classification, "raw wording", testContext(), nil, UnifiedExceptionParams{})
		assert.NoError(t, err)

		assert.Equal(t, "raw wording", exception.RenderErrorResponse("").Message)
	})
}
