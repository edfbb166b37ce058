package bizerror

import (
	"errors"
	"net/http"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
)

type BizError interface {
	Respond() *BizErrorDetail
}

type BizErrorDetail struct {
	Status  int
	Code    string
	Message string

	Data  interface{}
	Cause error
}

type ErrBadParam struct {
	Cause error
}

func (e *ErrBadParam) Unwrap() error {
	return e.Cause
}
func (e *ErrBadParam) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "common.bad_param"
}
func (e *ErrBadParam) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: "common.bad_param", Message: e.Error(), Cause: e.Cause}
}

// ErrPrecondition reports a violated precondition, e.g. an inactive workflow version at creation time.
// Nothing has been written when it is returned.
type ErrPrecondition struct {
	Message string
}

func (e *ErrPrecondition) Error() string {
	return e.Message
}
func (e *ErrPrecondition) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: http.StatusPreconditionFailed, Code: "common.precondition_failed", Message: e.Message}
}

// ErrCoding signals the caller skipped an upstream check, e.g. publishing an already published submission.
type ErrCoding struct {
	Message string
}

func (e *ErrCoding) Error() string {
	return "coding error: " + e.Message
}
func (e *ErrCoding) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: http.StatusConflict, Code: "common.coding_error", Message: e.Message}
}

type ErrInvalidInput struct {
	Field   string
	Message string
}

func (e *ErrInvalidInput) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}
func (e *ErrInvalidInput) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: "common.invalid_input", Message: e.Error()}
}

// ErrMaliciousInput is raised for workflow integrity violations which are only reachable with tampered input.
type ErrMaliciousInput struct {
	Message string
}

func (e *ErrMaliciousInput) Error() string {
	return "malicious input: " + e.Message
}
func (e *ErrMaliciousInput) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: "common.malicious_input", Message: e.Message}
}

func IsCodingError(err error) bool {
	var e *ErrCoding
	return errors.As(err, &e)
}

func IsPrecondition(err error) bool {
	var e *ErrPrecondition
	return errors.As(err, &e)
}
