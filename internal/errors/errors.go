// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrStrategyNotFound    = errors.New("strategy not found")
	ErrInvalidContractCode = errors.New("invalid contract code")
	ErrInvalidLeg          = errors.New("invalid leg")
	ErrLegNotFound         = errors.New("leg not found")
	ErrConfigInvalid       = errors.New("invalid configuration")
	ErrStateNotFound       = errors.New("state not found")
	ErrMarketData          = errors.New("market data unavailable")
	ErrDatabaseError       = errors.New("database error")
	ErrInputValidation     = errors.New("input validation failed")
)

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// Unwrap lets errors.Is match ErrInputValidation.
func (e *ValidationError) Unwrap() error {
	return ErrInputValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ParseError represents an input that could not be parsed, such as a contract code.
type ParseError struct {
	Kind  string
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse error [%s] %q: %v", e.Kind, e.Input, e.Err)
	}
	return fmt.Sprintf("parse error [%s] %q", e.Kind, e.Input)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError.
func NewParseError(kind, input string, err error) *ParseError {
	return &ParseError{
		Kind:  kind,
		Input: input,
		Err:   err,
	}
}

// DataError represents a data-related error.
type DataError struct {
	DataType string
	Key      string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.Key, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.Key, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(dataType, key, message string, err error) *DataError {
	return &DataError{
		DataType: dataType,
		Key:      key,
		Message:  message,
		Err:      err,
	}
}

// CalculationError records a strategy calculation that failed and was replaced
// by a neutral result.
type CalculationError struct {
	StrategyID string
	Cause      interface{}
}

func (e *CalculationError) Error() string {
	return fmt.Sprintf("calculation error [%s]: %v", e.StrategyID, e.Cause)
}

// NewCalculationError creates a new CalculationError.
func NewCalculationError(strategyID string, cause interface{}) *CalculationError {
	return &CalculationError{
		StrategyID: strategyID,
		Cause:      cause,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
