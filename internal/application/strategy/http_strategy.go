package strategy

import (
	"faultline/internal/domain/entity"
	"faultline/internal/domain/valueobject"
)

// Registry names and dispatch priorities of the built-in strategies. Lower
// priority runs first.
const (
	HTTPStrategyName        = "http_origin"
	ApplicationStrategyName = "application_origin"
	StorageStrategyName     = "storage_origin"
	NetworkStrategyName     = "network_origin"

	HTTPStrategyPriority        = 10
	ApplicationStrategyPriority = 20
	StorageStrategyPriority     = 30
	NetworkStrategyPriority     = 40
)

// httpMessages localizes HTTP classification codes.
var httpMessages = map[string]string{
	"HTTP_400": "The request was malformed and could not be processed.",
	"HTTP_401": "Authentication is required to access this resource.",
	"HTTP_403": "You do not have permission to access this resource.",
	"HTTP_404": "The requested resource could not be found.",
	"HTTP_409": "The request conflicts with the current state of the resource.",
	"HTTP_429": "Too many requests; please slow down.",
	"HTTP_500": "The server encountered an internal error.",
	"HTTP_502": "An upstream server returned an invalid response.",
	"HTTP_503": "The service is temporarily unavailable.",
	"HTTP_504": "An upstream server took too long to respond.",
}

// HTTPStrategy handles HTTP-origin faults. It echoes the upstream status and
// sanitized response body alongside the standard payload.
type HTTPStrategy struct {
	baseStrategy
}

// NewHTTPStrategy creates the HTTP-origin strategy.
func NewHTTPStrategy() *HTTPStrategy {
	s := &HTTPStrategy{
		baseStrategy: newBaseStrategy(
			HTTPStrategyName,
			HTTPStrategyPriority,
			valueobject.MustExceptionCategory(valueobject.CategoryHTTP),
			"http_error",
			httpMessages,
		),
	}

	s.contextExtras = func(exception *entity.UnifiedException) map[string]interface{} {
		extras := map[string]interface{}{}
		if exceptionContext := exception.Context(); exceptionContext != nil {
			putNonEmpty(extras, "user_agent", exceptionContext.UserAgent())
			putNonEmpty(extras, "ip_address", exceptionContext.IPAddress())
		}
		return extras
	}

	s.responseExtras = func(exception *entity.UnifiedException) map[string]interface{} {
		extras := map[string]interface{}{}
		if status := exception.HTTPStatus(); status != 0 {
			extras["status"] = status
		}
		if body, ok := exception.HTTPResponse().(map[string]interface{}); ok {
			extras["response"] = sanitizeMap(body)
		} else if body := exception.HTTPResponse(); body != nil {
			extras["response"] = body
		}
		return extras
	}

	return s
}
