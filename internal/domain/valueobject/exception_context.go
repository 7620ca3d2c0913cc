package valueobject

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// maxCustomDataKeys bounds the custom data bag to prevent memory bloat from
// callers forwarding arbitrarily large payloads.
const maxCustomDataKeys = 50

// ExceptionContextParams carries the caller-supplied parts of an exception
// context. Every field is optional; the constructor fills in identity,
// timestamp and source defaults.
type ExceptionContextParams struct {
	TenantID       string
	UserID         string
	OrganizationID string
	DepartmentID   string
	RequestID      string
	CorrelationID  string
	UserAgent      string
	IPAddress      string
	Source         SourceTag
	CustomData     map[string]interface{}
}

// ExceptionContext is the immutable ambient-context snapshot attached to
// every fault entering the pipeline. It is created exactly once per inbound
// fault and never mutated afterwards.
type ExceptionContext struct {
	id             string
	tenantID       string
	userID         string
	organizationID string
	departmentID   string
	requestID      string
	correlationID  string
	userAgent      string
	ipAddress      string
	source         SourceTag
	occurredAt     time.Time
	customData     map[string]interface{}
}

// NewExceptionContext creates a new exception context. Identity and creation
// timestamp are generated here; the custom data bag is copied so later
// mutation of the caller's map cannot leak into the context.
func NewExceptionContext(params ExceptionContextParams) *ExceptionContext {
	source := params.Source
	if source.String() == "" {
		source = SourceTag{source: SourceSystem}
	}

	return &ExceptionContext{
		id:             uuid.New().String(),
		tenantID:       params.TenantID,
		userID:         params.UserID,
		organizationID: params.OrganizationID,
		departmentID:   params.DepartmentID,
		requestID:      params.RequestID,
		correlationID:  params.CorrelationID,
		userAgent:      params.UserAgent,
		ipAddress:      params.IPAddress,
		source:         source,
		occurredAt:     time.Now(),
		customData:     copyCustomData(params.CustomData),
	}
}

// DefaultExceptionContext creates a context with only a source tag, used when
// the caller-supplied extraction step produced nothing.
func DefaultExceptionContext(source SourceTag) *ExceptionContext {
	return NewExceptionContext(ExceptionContextParams{Source: source})
}

// ID returns the context identity.
func (c *ExceptionContext) ID() string {
	return c.id
}

// TenantID returns the tenant identifier, if any.
func (c *ExceptionContext) TenantID() string {
	return c.tenantID
}

// UserID returns the user identifier, if any.
func (c *ExceptionContext) UserID() string {
	return c.userID
}

// OrganizationID returns the organization identifier, if any.
func (c *ExceptionContext) OrganizationID() string {
	return c.organizationID
}

// DepartmentID returns the department identifier, if any.
func (c *ExceptionContext) DepartmentID() string {
	return c.departmentID
}

// RequestID returns the request identifier, if any.
func (c *ExceptionContext) RequestID() string {
	return c.requestID
}

// CorrelationID returns the correlation identifier, if any.
func (c *ExceptionContext) CorrelationID() string {
	return c.correlationID
}

// UserAgent returns the client user agent, if any.
func (c *ExceptionContext) UserAgent() string {
	return c.userAgent
}

// IPAddress returns the client IP address, if any.
func (c *ExceptionContext) IPAddress() string {
	return c.ipAddress
}

// Source returns the source tag.
func (c *ExceptionContext) Source() SourceTag {
	return c.source
}

// OccurredAt returns the context creation timestamp.
func (c *ExceptionContext) OccurredAt() time.Time {
	return c.occurredAt
}

// CustomData returns a copy of the custom data bag.
func (c *ExceptionContext) CustomData() map[string]interface{} {
	return copyCustomData(c.customData)
}

// CustomValue returns a single custom data value and whether it was present.
func (c *ExceptionContext) CustomValue(key string) (interface{}, bool) {
	v, ok := c.customData[key]
	return v, ok
}

// copyCustomData copies the custom data map, capping it at maxCustomDataKeys.
// Oversized bags keep the first maxCustomDataKeys keys in sorted order, so the
// retained subset is the same on every run.
func copyCustomData(original map[string]interface{}) map[string]interface{} {
	if original == nil {
		return nil
	}

	if len(original) <= maxCustomDataKeys {
		copied := make(map[string]interface{}, len(original))
		for k, v := range original {
			copied[k] = v
		}
		return copied
	}

	keys := make([]string, 0, len(original))
	for k := range original {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	copied := make(map[string]interface{}, maxCustomDataKeys)
	for _, k := range keys[:maxCustomDataKeys] {
		copied[k] = original[k]
	}
	return copied
}
