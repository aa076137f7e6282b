package domain

import (
	"errors"
	"fmt"
)

// Error types for domain-specific errors
type ErrorType string

const (
	ErrorTypeValidation       ErrorType = "validation"
	ErrorTypeDecode           ErrorType = "decode"
	ErrorTypeTransport        ErrorType = "transport"
	ErrorTypeMalformedOutput  ErrorType = "malformed_output"
	ErrorTypePipeline         ErrorType = "pipeline"
	ErrorTypeQuality          ErrorType = "quality"
	ErrorTypeContextRetrieval ErrorType = "context_retrieval"
	ErrorTypeConfig           ErrorType = "config"
	ErrorTypeIO               ErrorType = "io"
)

// DomainError represents a domain-specific error with context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

// DecodeError covers unreadable or unrenderable source documents.
func DecodeError(message string, err error) *DomainError {
	return NewError(ErrorTypeDecode, message, err)
}

// TransportError covers timeouts, throttling, connection failures and
// unparseable API envelopes. Transport errors are retryable.
func TransportError(message string, err error) *DomainError {
	return NewError(ErrorTypeTransport, message, err)
}

// MalformedOutputError covers oracle text that could not be structured.
func MalformedOutputError(message string, err error) *DomainError {
	return NewError(ErrorTypeMalformedOutput, message, err)
}

// PipelineError is the fatal terminal error: the final attempt of the
// retry budget failed at the transport level.
func PipelineError(message string, err error) *DomainError {
	return NewError(ErrorTypePipeline, message, err)
}

func QualityError(message string, err error) *DomainError {
	return NewError(ErrorTypeQuality, message, err)
}

func ContextRetrievalError(message string, err error) *DomainError {
	return NewError(ErrorTypeContextRetrieval, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

func IOError(message string, err error) *DomainError {
	return NewError(ErrorTypeIO, message, err)
}

// isType reports whether err wraps a DomainError of the given type.
func isType(err error, t ErrorType) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type == t
	}
	return false
}

// IsTransport reports whether err is a retryable transport failure.
func IsTransport(err error) bool {
	return isType(err, ErrorTypeTransport)
}

// IsMalformedOutput reports whether err is a structuring failure on
// text the oracle did return.
func IsMalformedOutput(err error) bool {
	return isType(err, ErrorTypeMalformedOutput)
}

// IsPipeline reports whether err is a fatal pipeline failure.
func IsPipeline(err error) bool {
	return isType(err, ErrorTypePipeline)
}

// IsDecode reports whether err is a document decode failure.
func IsDecode(err error) bool {
	return isType(err, ErrorTypeDecode)
}
