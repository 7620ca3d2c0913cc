package valueobject

import (
	"encoding/json"
	"fmt"
)

// SourceTag identifies the surface a fault entered the system through.
type SourceTag struct {
	source string
}

const (
	SourceWeb    = "WEB"
	SourceAPI    = "API"
	SourceCLI    = "CLI"
	SourceSystem = "SYSTEM"
)

var validSourceTags = map[string]string{
	SourceWeb:    "web",
	SourceAPI:    "api",
	SourceCLI:    "cli",
	SourceSystem: "system",
}

// NewSourceTag creates a new source tag with validation. An empty source
// defaults to SYSTEM, matching the defaulted-context behavior.
func NewSourceTag(source string) (SourceTag, error) {
	if source == "" {
		return SourceTag{source: SourceSystem}, nil
	}

	if _, exists := validSourceTags[source]; !exists {
		return SourceTag{}, fmt.Errorf("invalid source tag: %s is not a valid source", source)
	}

	return SourceTag{source: source}, nil
}

// MustSourceTag creates a source tag and panics on invalid input.
func MustSourceTag(source string) SourceTag {
	s, err := NewSourceTag(source)
	if err != nil {
		panic(err)
	}
	return s
}

// String returns the string representation of the source tag.
func (s SourceTag) String() string {
	return s.source
}

// BusValue returns the lower-cased value expected by the fault bus contract
// (WEB maps to "web", API to "api", CLI to "cli", anything else to "system").
func (s SourceTag) BusValue() string {
	if v, ok := validSourceTags[s.source]; ok {
		return v
	}
	return "system"
}

// IsCLI returns true if the fault entered through the CLI surface.
func (s SourceTag) IsCLI() bool {
	return s.source == SourceCLI
}

// Equals returns true if both source tags are equal.
func (s SourceTag) Equals(other SourceTag) bool {
	return s.source == other.source
}

// MarshalJSON implements json.Marshaler.
func (s SourceTag) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.source)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *SourceTag) UnmarshalJSON(data []byte) error {
	var source string
	if err := json.Unmarshal(data, &source); err != nil {
		return err
	}

	parsed, err := NewSourceTag(source)
	if err != nil {
		return err
	}

	s.source = parsed.source
	return nil
}
