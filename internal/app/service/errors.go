package service

import (
	"fmt"
	"strings"
)

// ValidationError reports missing or malformed input.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Fields, ", "))
}

// NotFoundError reports a lookup miss.
type NotFoundError struct {
	ID       string
	Location string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resource %s at %q not found", e.ID, e.Location)
}

// UpstreamError wraps a failure of the record store or a third-party API.
type UpstreamError struct {
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Detail is the cause as reported to clients.
func (e *UpstreamError) Detail() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func upstream(message string, err error) error {
	return &UpstreamError{Message: message, Err: err}
}
