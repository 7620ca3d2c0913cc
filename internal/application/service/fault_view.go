package service

import (
	"fmt"
	"time"
)

// StructuredFault is the typed application-fault shape the first recognizer
// battery accepts: an error carrying its own kind, severity and code.
type StructuredFault interface {
	error
	ErrorKind() string
	FaultSeverity() string
	ErrorCode() string
}

// HTTPFault is the accessor form of an HTTP-shaped fault: a numeric status
// plus a response body.
type HTTPFault interface {
	StatusCode() int
	ResponseBody() interface{}
}

// faultView is a structurally-typed window over an unknown fault value. Every
// duck-typed check in the pipeline (message, status, response, nested error)
// goes through it, so shape inspection stays in one place and never relies on
// concrete types.
type faultView struct {
	fault  interface{}
	asMap  map[string]interface{}
	hasMap bool
}

func viewOf(fault interface{}) faultView {
	v := faultView{fault: fault}
	if m, ok := fault.(map[string]interface{}); ok {
		v.asMap = m
		v.hasMap = true
	}
	return v
}

// messageField extracts the fault's own message: a Message accessor, a
// "message" map key, or an error's Error() text.
func (v faultView) messageField() (string, bool) {
	if m, ok := v.fault.(interface{ Message() string }); ok {
		return m.Message(), true
	}
	if v.hasMap {
		if msg, ok := v.asMap["message"].(string); ok {
			return msg, true
		}
	}
	if err, ok := v.fault.(error); ok && err != nil {
		return err.Error(), true
	}
	return "", false
}

// asString extracts the fault when it is itself a plain message.
func (v faultView) asString() (string, bool) {
	s, ok := v.fault.(string)
	return s, ok
}

// errorField extracts a nested "error" value.
func (v faultView) errorField() (interface{}, bool) {
	if v.hasMap {
		if nested, ok := v.asMap["error"]; ok && nested != nil {
			return nested, true
		}
	}
	return nil, false
}

// structured extracts the typed application-fault shape, either as the
// StructuredFault interface or as a map carrying kind/severity/code keys.
func (v faultView) structured() (kind, severity, code string, ok bool) {
	if sf, isStructured := v.fault.(StructuredFault); isStructured {
		return sf.ErrorKind(), sf.FaultSeverity(), sf.ErrorCode(), true
	}
	if !v.hasMap {
		return "", "", "", false
	}

	kind, kindOK := v.asMap["kind"].(string)
	severity, sevOK := v.asMap["severity"].(string)
	code, codeOK := v.asMap["code"].(string)
	if kindOK && sevOK && codeOK {
		return kind, severity, code, true
	}
	return "", "", "", false
}

// status extracts a numeric HTTP status from a StatusCode accessor or a
// "status" map key.
func (v faultView) status() (int, bool) {
	if hf, ok := v.fault.(HTTPFault); ok {
		if s := hf.StatusCode(); s != 0 {
			return s, true
		}
	}
	if v.hasMap {
		if s, ok := toInt(v.asMap["status"]); ok {
			return s, true
		}
	}
	return 0, false
}

// response extracts the HTTP response body echo.
func (v faultView) response() (interface{}, bool) {
	if hf, ok := v.fault.(HTTPFault); ok {
		if body := hf.ResponseBody(); body != nil {
			return body, true
		}
	}
	if v.hasMap {
		if body, ok := v.asMap["response"]; ok && body != nil {
			return body, true
		}
	}
	return nil, false
}

// details extracts a caller-supplied details bag.
func (v faultView) details() (map[string]interface{}, bool) {
	if v.hasMap {
		if d, ok := v.asMap["details"].(map[string]interface{}); ok {
			return d, true
		}
	}
	if d, ok := v.fault.(interface{ Details() map[string]interface{} }); ok {
		if bag := d.Details(); bag != nil {
			return bag, true
		}
	}
	return nil, false
}

// validationErrors extracts per-field validation messages from an "errors"
// key carrying strings.
func (v faultView) validationErrors() ([]string, bool) {
	if !v.hasMap {
		return nil, false
	}

	switch raw := v.asMap["errors"].(type) {
	case []string:
		return append([]string(nil), raw...), true
	case []interface{}:
		msgs := make([]string, 0, len(raw))
		for _, item := range raw {
			msgs = append(msgs, fmt.Sprintf("%v", item))
		}
		if len(msgs) > 0 {
			return msgs, true
		}
	}
	return nil, false
}

// traceID extracts a trace identifier.
func (v faultView) traceID() (string, bool) {
	if v.hasMap {
		if id, ok := v.asMap["traceId"].(string); ok && id != "" {
			return id, true
		}
	}
	return "", false
}

// retryAfter extracts a retry-after hint in seconds.
func (v faultView) retryAfter() (time.Duration, bool) {
	if v.hasMap {
		if secs, ok := toInt(v.asMap["retryAfter"]); ok && secs > 0 {
			return time.Duration(secs) * time.Second, true
		}
	}
	return 0, false
}

// originalError returns the fault itself when it is a structured error, or a
// nested "error" value that is one. Anything else is not retained.
func (v faultView) originalError() error {
	if err, ok := v.fault.(error); ok {
		return err
	}
	if nested, ok := v.errorField(); ok {
		if err, isErr := nested.(error); isErr {
			return err
		}
	}
	return nil
}

// toInt normalizes the numeric types JSON decoding and typed callers produce.
func toInt(value interface{}) (int, bool) {
	switch n := value.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
