// Package businessflow contains the core pipeline logic: quota tracking, posting orchestration and content runs
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Initiative-related errors
	ErrInitiativeNotFound  = errors.New("initiative not found")
	ErrInvalidInitiativeID = errors.New("invalid initiative id")
	ErrInvalidAdSetID      = errors.New("invalid ad set id")

	// Pipeline errors
	ErrPipelineAlreadyRunning = errors.New("pipeline already running for initiative")

	// Quota errors
	ErrQuotaExceeded    = errors.New("quota exceeded")
	ErrUnknownQuotaKind = errors.New("unknown quota kind")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func IsInitiativeNotFound(err error) bool {
	return errors.Is(err, ErrInitiativeNotFound)
}

func IsInvalidInitiativeID(err error) bool {
	return errors.Is(err, ErrInvalidInitiativeID)
}

func IsInvalidAdSetID(err error) bool {
	return errors.Is(err, ErrInvalidAdSetID)
}

func IsPipelineAlreadyRunning(err error) bool {
	return errors.Is(err, ErrPipelineAlreadyRunning)
}

func IsQuotaExceeded(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}
