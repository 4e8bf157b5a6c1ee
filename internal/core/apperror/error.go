// Package apperror provides structured error handling for the platform.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes grouped by concern
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"

	// Validation errors (400)
	CodeValidation      = "VALIDATION_ERROR"
	CodeInvalidQuantity = "INVALID_QUANTITY"

	// Business rule violations (422)
	CodeBusinessRule           = "BUSINESS_RULE_VIOLATION"
	CodeInsufficientStock      = "INSUFFICIENT_STOCK"
	CodeInsufficientBatchStock = "INSUFFICIENT_BATCH_STOCK"
	CodeOverCredit             = "OVER_CREDIT"
	CodeBatchAlreadyConsumed   = "BATCH_ALREADY_CONSUMED"
	CodeDocumentCommitted      = "DOCUMENT_ALREADY_COMMITTED"
	CodeDocumentVoided         = "DOCUMENT_VOIDED"
	CodePurchaseClosed         = "PURCHASE_CLOSED"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict  = "CONFLICT"
	CodeDuplicate = "DUPLICATE_ENTRY"
)

// AppError is the standard error type for the platform.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, quantities, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInvalidQuantity rejects non-positive quantities. Always a caller bug.
func NewInvalidQuantity(operation string, quantity int64) *AppError {
	return &AppError{
		Code:       CodeInvalidQuantity,
		Message:    "quantity must be positive",
		HTTPStatus: http.StatusBadRequest,
		Details: map[string]any{
			"operation": operation,
			"quantity":  quantity,
		},
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewBusinessRule creates a business rule violation error (422)
func NewBusinessRule(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewInsufficientStock reports a product-level stock shortage.
// Recoverable by the caller: reduce quantity or wait for a receipt.
func NewInsufficientStock(productID string, required, available int64) *AppError {
	return &AppError{
		Code:       CodeInsufficientStock,
		Message:    "insufficient stock",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"product_id": productID,
			"required":   required,
			"available":  available,
		},
	}
}

// NewInsufficientBatchStock reports a debit exceeding a single batch's remainder.
func NewInsufficientBatchStock(batchID string, required, available int64) *AppError {
	return &AppError{
		Code:       CodeInsufficientBatchStock,
		Message:    "insufficient batch stock",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"batch_id":  batchID,
			"required":  required,
			"available": available,
		},
	}
}

// NewOverCredit reports a credit that would push a batch above its initial
// quantity. Indicates a logic error upstream (e.g. double reversal); the
// operation is aborted, never clamped.
func NewOverCredit(batchID string, credit, current, initial int64) *AppError {
	return &AppError{
		Code:       CodeOverCredit,
		Message:    "credit exceeds batch initial quantity",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"batch_id": batchID,
			"credit":   credit,
			"current":  current,
			"initial":  initial,
		},
	}
}

// NewBatchAlreadyConsumed blocks a purchase-edit reversal because stock from
// the batch has already left through another document.
func NewBatchAlreadyConsumed(batchID string, consumed int64) *AppError {
	return &AppError{
		Code:       CodeBatchAlreadyConsumed,
		Message:    "batch has been partially consumed by another document",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"batch_id": batchID,
			"consumed": consumed,
		},
	}
}

// NewConcurrentModification creates an optimistic locking error
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModification,
		Message:    "Record was modified by another user. Please refresh and try again.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewDuplicate creates a duplicate entry error (409)
func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// HasCode checks if error carries the given code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}
