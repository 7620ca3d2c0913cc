package strategy

import (
	"faultline/internal/domain/entity"
	"faultline/internal/domain/valueobject"
)

// applicationMessages localizes application classification codes.
var applicationMessages = map[string]string{
	"UNKNOWN_ERROR":           "An unexpected error occurred.",
	"GENERAL_ERROR":           "An unexpected error occurred.",
	"TRANSFORM_ERROR":         "The fault could not be fully processed.",
	"APPLICATION_ERROR":       "The application could not complete the operation.",
	"BUSINESS_RULE_VIOLATION": "The operation conflicts with a business rule.",
	"OPERATION_NOT_ALLOWED":   "This operation is not allowed.",
	"RESOURCE_EXHAUSTED":      "The system is overloaded; please try again later.",
}

// ApplicationStrategy handles application-origin faults, the catch-all
// category for faults no more specific recognizer claimed.
type ApplicationStrategy struct {
	baseStrategy
}

// NewApplicationStrategy creates the application-origin strategy.
func NewApplicationStrategy() *ApplicationStrategy {
	s := &ApplicationStrategy{
		baseStrategy: newBaseStrategy(
			ApplicationStrategyName,
			ApplicationStrategyPriority,
			valueobject.MustExceptionCategory(valueobject.CategoryApplication),
			"application_error",
			applicationMessages,
		),
	}

	s.contextExtras = func(exception *entity.UnifiedException) map[string]interface{} {
		extras := map[string]interface{}{}
		if exceptionContext := exception.Context(); exceptionContext != nil {
			extras["source"] = exceptionContext.Source().String()
		}
		return extras
	}

	s.responseExtras = func(exception *entity.UnifiedException) map[string]interface{} {
		extras := map[string]interface{}{}
		if advice := exception.RecoveryAdvice(); advice != "" {
			extras["recovery_advice"] = advice
		}
		return extras
	}

	return s
}
