package jsonapi

import (
	"fmt"
	"strconv"
	"strings"
)

// ErrorBuilder provides a fluent API for building Error objects.
type ErrorBuilder struct {
	err Error
}

// NewError creates a new ErrorBuilder with the given status, code, and title.
func NewError(status int, code, title string) *ErrorBuilder {
	return &ErrorBuilder{
		err: Error{
			Status: strconv.Itoa(status),
			Code:   code,
			Title:  title,
		},
	}
}

// Detail sets the error detail message.
func (b *ErrorBuilder) Detail(detail string) *ErrorBuilder {
	b.err.Detail = detail
	return b
}

// Detailf sets the error detail message with formatting.
func (b *ErrorBuilder) Detailf(format string, args ...any) *ErrorBuilder {
	b.err.Detail = fmt.Sprintf(format, args...)
	return b
}

// ID sets the error ID.
func (b *ErrorBuilder) ID(id string) *ErrorBuilder {
	b.err.ID = id
	return b
}

// Pointer sets the JSON pointer to the source of the error.
// Example: "/data/attributes/email"
func (b *ErrorBuilder) Pointer(pointer string) *ErrorBuilder {
	if b.err.Source == nil {
		b.err.Source = &ErrorSource{}
	}
	b.err.Source.Pointer = pointer
	return b
}

// Parameter sets the query parameter that caused the error.
func (b *ErrorBuilder) Parameter(param string) *ErrorBuilder {
	if b.err.Source == nil {
		b.err.Source = &ErrorSource{}
	}
	b.err.Source.Parameter = param
	return b
}

// Header sets the header that caused the error.
func (b *ErrorBuilder) Header(header string) *ErrorBuilder {
	if b.err.Source == nil {
		b.err.Source = &ErrorSource{}
	}
	b.err.Source.Header = header
	return b
}

// Meta adds metadata to the error.
func (b *ErrorBuilder) Meta(key string, value any) *ErrorBuilder {
	if b.err.Meta == nil {
		b.err.Meta = make(Meta)
	}
	b.err.Meta[key] = value
	return b
}

// AboutLink sets the about link for more information about the error.
func (b *ErrorBuilder) AboutLink(url string) *ErrorBuilder {
	if b.err.Links == nil {
		b.err.Links = &ErrorLinks{}
	}
	b.err.Links.About = url
	return b
}

// Build returns the constructed Error.
func (b *ErrorBuilder) Build() Error {
	return b.err
}

// StatusCode returns the HTTP status code as an int.
func (e Error) StatusCode() int {
	code, _ := strconv.Atoi(e.Status)
	return code
}

// Common error constructors

// ErrBadRequest creates a 400 Bad Request error.
func ErrBadRequest(detail string) Error {
	return NewError(400, "bad_request", "Bad Request").Detail(detail).Build()
}

// ErrNotFound creates a 404 Not Found error.
func ErrNotFound(resourceType string) Error {
	return NewError(404, "not_found", "Not Found").
		Detailf("The requested %s was not found", resourceType).
		Build()
}

// ErrMethodNotAllowed creates a 405 Method Not Allowed error listing the allowed methods.
func ErrMethodNotAllowed(method string, allowed []string) Error {
	b := NewError(405, "method_not_allowed", "Method Not Allowed").
		Meta("requested_method", method)
	if len(allowed) == 0 {
		return b.Detailf("The %s method is not allowed for this resource", method).Build()
	}
	return b.Detailf("%s is not supported. Use one of: %s", method, strings.Join(allowed, ", ")).
		Meta("allowed_methods", allowed).
		Build()
}

// ErrValidation creates a 422 Unprocessable Entity error for validation failures.
func ErrValidation(field, message string) Error {
	return NewError(422, "validation_error", "Validation Failed").
		Detail(message).
		Pointer("/data/attributes/" + field).
		Build()
}

// ErrInvalidParameter creates a 400 error pointing at the offending query parameter.
func ErrInvalidParameter(param, reason string) Error {
	return NewError(400, "invalid_parameter", "Invalid Parameter").
		Detailf("%s is invalid: %s", param, reason).
		Parameter(param).
		Build()
}

// ErrInternal creates a 500 Internal Server Error.
func ErrInternal(detail string) Error {
	if detail == "" {
		detail = "An internal error occurred"
	}
	return NewError(500, "internal_error", "Internal Server Error").Detail(detail).Build()
}

// ErrServiceUnavailable creates a 503 Service Unavailable error.
func ErrServiceUnavailable(detail string) Error {
	if detail == "" {
		detail = "Service temporarily unavailable"
	}
	return NewError(503, "service_unavailable", "Service Unavailable").Detail(detail).Build()
}

// ErrFromError creates a JSON:API Error from a standard Go error.
func ErrFromError(err error) Error {
	if err == nil {
		return ErrInternal("")
	}
	return ErrInternal(err.Error())
}
