// Package errors provides a standardized error format for the CLI and
// demo layers that sit on top of the channel package. The channel
// package itself never uses this: channel.Code is the closed taxonomy
// for operation outcomes, and wrapping it in a categorized error would
// blur the "codes, not exceptions" contract described on channel.Code. This package is for the surrounding program (argument
// validation, pipeline wiring) that does want conventional errors.
package errors

import "fmt"

// Category groups errors by what part of the surrounding program raised
// them.
type Category string

const (
	CategoryValidation Category = "VALIDATION"
	CategorySystem     Category = "SYSTEM"
)

// StandardError is a consistent, greppable error shape: a category, a
// short machine-matchable code, and a human message.
type StandardError struct {
	Category Category
	Code     string
	Message  string
}

// Error implements the error interface.
func (e *StandardError) Error() string {
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// New creates a StandardError.
func New(category Category, code, message string) *StandardError {
	return &StandardError{Category: category, Code: code, Message: message}
}

// InvalidCapacity reports a rejected channel capacity argument.
func InvalidCapacity(n int, context string) *StandardError {
	return New(CategoryValidation, "INVALID_CAPACITY",
		fmt.Sprintf("capacity %d invalid for %s", n, context))
}

// UnknownPipeline reports a lookup against a pipeline name that was
// never registered.
func UnknownPipeline(name string) *StandardError {
	return New(CategoryValidation, "UNKNOWN_PIPELINE",
		fmt.Sprintf("no pipeline registered under name %q", name))
}
