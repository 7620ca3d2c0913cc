package strategy

import (
	"faultline/internal/domain/entity"
	"faultline/internal/domain/valueobject"
)

// networkMessages localizes network classification codes.
var networkMessages = map[string]string{
	"NETWORK_ERROR":      "An upstream service is currently unreachable.",
	"CONNECTION_REFUSED": "The upstream service refused the connection.",
	"DNS_LOOKUP_FAILED":  "The upstream service could not be resolved.",
	"UPSTREAM_TIMEOUT":   "The upstream service took too long to respond.",
}

// defaultNetworkRetryAfterSeconds is suggested when the source exception
// carries no retry-after hint of its own.
const defaultNetworkRetryAfterSeconds = 30

// NetworkStrategy handles network-origin faults (the EXTERNAL category).
type NetworkStrategy struct {
	baseStrategy
}

// NewNetworkStrategy creates the network-origin strategy.
func NewNetworkStrategy() *NetworkStrategy {
	s := &NetworkStrategy{
		baseStrategy: newBaseStrategy(
			NetworkStrategyName,
			NetworkStrategyPriority,
			valueobject.MustExceptionCategory(valueobject.CategoryExternal),
			"network_error",
			networkMessages,
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
		extras := map[string]interface{}{"retryable": true}
		if exception.RetryAfter() == 0 {
			extras["retry_after"] = defaultNetworkRetryAfterSeconds
		}
		return extras
	}

	return s
}
