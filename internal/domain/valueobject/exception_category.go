package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ExceptionCategory represents the origin category assigned to a fault.
type ExceptionCategory struct {
	category string
}

const (
	CategoryHTTP           = "HTTP"
	CategoryApplication    = "APPLICATION"
	CategoryDomain         = "DOMAIN"
	CategoryInfrastructure = "INFRASTRUCTURE"
	CategoryExternal       = "EXTERNAL"
	CategoryConfiguration  = "CONFIGURATION"
	CategoryValidation     = "VALIDATION"
)

var validCategories = map[string]int{
	CategoryHTTP:           0,
	CategoryApplication:    1,
	CategoryDomain:         2,
	CategoryInfrastructure: 3,
	CategoryExternal:       4,
	CategoryConfiguration:  5,
	CategoryValidation:     6,
}

// exceptionNames maps each category to the canonical error name used on the
// fault bus. Categories without an entry fall back to "UnifiedException".
var exceptionNames = map[string]string{
	CategoryHTTP:           "HttpException",
	CategoryApplication:    "ApplicationException",
	CategoryDomain:         "DomainException",
	CategoryInfrastructure: "InfrastructureException",
	CategoryExternal:       "ExternalServiceException",
	CategoryConfiguration:  "ConfigurationException",
	CategoryValidation:     "ValidationException",
}

// NewExceptionCategory creates a new exception category with validation.
func NewExceptionCategory(category string) (ExceptionCategory, error) {
	if category == "" {
		return ExceptionCategory{}, errors.New("invalid exception category: cannot be empty")
	}

	if _, exists := validCategories[category]; !exists {
		return ExceptionCategory{}, fmt.Errorf("invalid exception category: %s is not a valid category", category)
	}

	return ExceptionCategory{category: category}, nil
}

// MustExceptionCategory creates an exception category and panics on invalid
// input. Intended for the package-level constants below and for tests.
func MustExceptionCategory(category string) ExceptionCategory {
	c, err := NewExceptionCategory(category)
	if err != nil {
		panic(err)
	}
	return c
}

// AllExceptionCategories returns every valid category, in table order.
func AllExceptionCategories() []ExceptionCategory {
	categories := make([]ExceptionCategory, len(validCategories))
	for name, idx := range validCategories {
		categories[idx] = ExceptionCategory{category: name}
	}
	return categories
}

// String returns the string representation of the category.
func (c ExceptionCategory) String() string {
	return c.category
}

// IsZero reports whether the category was never set.
func (c ExceptionCategory) IsZero() bool {
	return c.category == ""
}

// ExceptionName returns the canonical error name used when publishing to the
// fault bus.
func (c ExceptionCategory) ExceptionName() string {
	if name, ok := exceptionNames[c.category]; ok {
		return name
	}
	return "UnifiedException"
}

// IsHTTP returns true if this is the HTTP category.
func (c ExceptionCategory) IsHTTP() bool {
	return c.category == CategoryHTTP
}

// IsValidation returns true if this is the validation category.
func (c ExceptionCategory) IsValidation() bool {
	return c.category == CategoryValidation
}

// IsInfrastructure returns true if this is the infrastructure category.
func (c ExceptionCategory) IsInfrastructure() bool {
	return c.category == CategoryInfrastructure
}

// IsExternal returns true if this is the external category.
func (c ExceptionCategory) IsExternal() bool {
	return c.category == CategoryExternal
}

// Equals returns true if both categories are equal.
func (c ExceptionCategory) Equals(other ExceptionCategory) bool {
	return c.category == other.category
}

// MarshalJSON implements json.Marshaler.
func (c ExceptionCategory) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.category)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *ExceptionCategory) UnmarshalJSON(data []byte) error {
	var category string
	if err := json.Unmarshal(data, &category); err != nil {
		return err
	}

	parsed, err := NewExceptionCategory(category)
	if err != nil {
		return err
	}

	c.category = parsed.category
	return nil
}
