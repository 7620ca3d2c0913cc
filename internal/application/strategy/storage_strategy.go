package strategy

import (
	"faultline/internal/domain/entity"
	"faultline/internal/domain/valueobject"
)

// storageMessages localizes storage classification codes.
var storageMessages = map[string]string{
	"DATABASE_ERROR":       "A storage error occurred while processing your request.",
	"DUPLICATE_ENTRY":      "A record with the same identity already exists.",
	"CONSTRAINT_VIOLATION": "The change would violate a data integrity rule.",
	"FOREIGN_KEY_ERROR":    "The change references data that does not exist.",
	"QUERY_TIMEOUT":        "The storage layer took too long to respond.",
}

// StorageStrategy handles storage-origin faults (the INFRASTRUCTURE
// category). Raw query text never survives sanitization.
type StorageStrategy struct {
	baseStrategy
}

// NewStorageStrategy creates the storage-origin strategy.
func NewStorageStrategy() *StorageStrategy {
	s := &StorageStrategy{
		baseStrategy: newBaseStrategy(
			StorageStrategyName,
			StorageStrategyPriority,
			valueobject.MustExceptionCategory(valueobject.CategoryInfrastructure),
			"storage_error",
			storageMessages,
		),
	}

	s.contextExtras = func(exception *entity.UnifiedException) map[string]interface{} {
		extras := map[string]interface{}{}
		if exceptionContext := exception.Context(); exceptionContext != nil {
			putNonEmpty(extras, "correlation_id", exceptionContext.CorrelationID())
		}
		return extras
	}

	s.responseExtras = func(exception *entity.UnifiedException) map[string]interface{} {
		return map[string]interface{}{"retryable": true}
	}

	return s
}
