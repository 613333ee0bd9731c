// Package errors provides structured errors for inventory operations.
package errors

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// InventoryError is a provider failure with enough context to tell which
// call failed and why.
type InventoryError struct {
	Code     string `json:"code"`
	Op       string `json:"op"`
	Kind     string `json:"kind,omitempty"`
	Provider string `json:"provider,omitempty"`
	Message  string `json:"message"`
	Err      error  `json:"-"`
}

func (e *InventoryError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s: %s (%s): %s", e.Code, e.Op, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, e.Message)
}

func (e *InventoryError) Unwrap() error {
	return e.Err
}

// Error codes
const (
	ErrCodeAPIFailure     = "API_FAILURE"
	ErrCodeRequestFailure = "REQUEST_FAILURE"
	ErrCodeRenderFailure  = "RENDER_FAILURE"
)

// NewAPIError wraps a failed provider call. When the failure carries a
// service error code (AccessDenied, RequestLimitExceeded, ...) it becomes
// the message prefix so operators see it without digging.
func NewAPIError(provider, op, kind string, err error) *InventoryError {
	ie := &InventoryError{
		Code:     ErrCodeRequestFailure,
		Op:       op,
		Kind:     kind,
		Provider: provider,
		Message:  err.Error(),
		Err:      err,
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		ie.Code = ErrCodeAPIFailure
		ie.Message = fmt.Sprintf("%s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return ie
}

// NewRenderError wraps a failure in the final render stage
func NewRenderError(sink string, err error) *InventoryError {
	return &InventoryError{
		Code:    ErrCodeRenderFailure,
		Op:      sink,
		Message: err.Error(),
		Err:     err,
	}
}

// ServiceCode returns the provider's error code for err, or "" when err does
// not carry one.
func ServiceCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
