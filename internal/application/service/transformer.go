package service

import (
	"context"
	"fmt"

	"faultline/internal/application/common/slogger"
	"faultline/internal/domain/entity"
	"faultline/internal/domain/valueobject"
)

// FaultTransformer produces the canonical UnifiedException for a raw fault.
// It is a total function: internal failures degrade to a TRANSFORM_ERROR
// exception instead of propagating.
type FaultTransformer struct {
	classifier *FaultClassifier
}

// NewFaultTransformer creates a transformer over the given classifier.
func NewFaultTransformer(classifier *FaultClassifier) *FaultTransformer {
	if classifier == nil {
		classifier = NewFaultClassifier()
	}
	return &FaultTransformer{classifier: classifier}
}

// Transform builds the unified exception for a fault. The classification is
// computed exactly once per call and snapshotted into the exception.
func (t *FaultTransformer) Transform(
	fault interface{},
	exceptionContext *valueobject.ExceptionContext,
) (exception *entity.UnifiedException) {
	defer func() {
		if r := recover(); r != nil {
			slogger.WithComponent("transformer").ErrorWithError(context.Background(),
				fmt.Errorf("transformer panic: %v", r),
				"Transformation failed, using degraded exception", nil)
			exception = t.degraded(fault, exceptionContext)
		}
	}()

	if exceptionContext == nil {
		exceptionContext = valueobject.DefaultExceptionContext(
			valueobject.MustSourceTag(valueobject.SourceSystem))
	}

	view := viewOf(fault)
	classification := t.classifier.Classify(fault, exceptionContext)
	message, _ := extractMessage(view)
	if message == "" {
		message = "Unknown error occurred"
	}

	params := entity.UnifiedExceptionParams{}
	if details, ok := view.details(); ok {
		params.Details = details
	}
	if errs, ok := view.validationErrors(); ok {
		params.ValidationErrors = errs
	}
	if status, ok := view.status(); ok {
		params.HTTPStatus = status
	}
	if body, ok := view.response(); ok {
		params.HTTPResponse = body
	}
	if traceID, ok := view.traceID(); ok {
		params.TraceID = traceID
	}
	if retryAfter, ok := view.retryAfter(); ok {
		params.RetryAfter = retryAfter
	}

	built, err := entity.NewUnifiedException(
		classification,
		message,
		exceptionContext,
		view.originalError(),
		params,
	)
	if err != nil {
		return t.degraded(fault, exceptionContext)
	}
	return built
}

// degraded is the designated fallback constructor: category APPLICATION,
// level ERROR, code TRANSFORM_ERROR, message extracted best-effort.
func (t *FaultTransformer) degraded(
	fault interface{},
	exceptionContext *valueobject.ExceptionContext,
) *entity.UnifiedException {
	if exceptionContext == nil {
		exceptionContext = valueobject.DefaultExceptionContext(
			valueobject.MustSourceTag(valueobject.SourceSystem))
	}

	message := "Unknown error occurred"
	func() {
		defer func() { _ = recover() }()
		if extracted, ok := extractMessage(viewOf(fault)); ok && extracted != "" {
			message = extracted
		}
	}()

	classification, err := valueobject.NewClassification(valueobject.ClassificationParams{
		Category:       valueobject.MustExceptionCategory(valueobject.CategoryApplication),
		Level:          valueobject.MustSeverityLevel(valueobject.LevelError),
		Code:           CodeTransformError,
		UserMessage:    categoryUserMessages[valueobject.CategoryApplication],
		RecoveryAdvice: categoryRecoveryAdvice[valueobject.CategoryApplication],
		ShouldNotify:   false,
		ShouldLog:      true,
		Confidence:     0.1,
	})
	if err != nil {
		panic("degraded classification must be constructible: " + err.Error())
	}

	exception, err := entity.NewUnifiedException(
		classification, message, exceptionContext, nil, entity.UnifiedExceptionParams{})
	if err != nil {
		panic("degraded exception must be constructible: " + err.Error())
	}
	return exception
}
