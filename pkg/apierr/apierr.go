package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Symbolic error codes surfaced to callers.
const (
	CodeNoFile          = "NO_FILE"
	CodeInvalidFileType = "INVALID_FILE_TYPE"
	CodeFileTooLarge    = "FILE_TOO_LARGE"
	CodeHTTP            = "HTTP_ERROR"
	CodeNetwork         = "NETWORK_ERROR"
	CodeNoJobID         = "NO_JOB_ID"
	CodePollingTimeout  = "POLLING_TIMEOUT"
	CodeCancelled       = "CANCELLED"
)

var knownCodes = map[string]bool{
	CodeNoFile:          true,
	CodeInvalidFileType: true,
	CodeFileTooLarge:    true,
	CodeHTTP:            true,
	CodeNetwork:         true,
	CodeNoJobID:         true,
	CodePollingTimeout:  true,
	CodeCancelled:       true,
}

// KnownCode reports whether code is one of the codes above. Servers may
// send their own codes in error bodies.
func KnownCode(code string) bool {
	return knownCodes[code]
}

// Error is the only error value that crosses the client boundary.
type Error struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
	Code    string `json:"code"`
}

func (e *Error) Error() string {
	return e.Message
}

// New builds an Error.
func New(status int, code, message string) *Error {
	return &Error{Message: message, Status: status, Code: code}
}

// Validation builds a 400 error for checks that run before any I/O.
func Validation(code, message string) *Error {
	return New(http.StatusBadRequest, code, message)
}

// HTTP builds an error for a non-success response. Empty message or code
// fall back to "HTTP <status>" and HTTP_ERROR.
func HTTP(status int, code, message string) *Error {
	if message == "" {
		message = fmt.Sprintf("HTTP %d", status)
	}
	if code == "" {
		code = CodeHTTP
	}
	return New(status, code, message)
}

// Network builds a status 0 error for a request that never got a response.
func Network(err error) *Error {
	return New(0, CodeNetwork, err.Error())
}

// Cancelled builds a status 0 error for a call the caller's context ended.
func Cancelled(err error) *Error {
	return New(0, CodeCancelled, err.Error())
}

// PollingTimeout is returned once the poll attempt cap is exceeded.
func PollingTimeout(attempts int) *Error {
	return New(http.StatusRequestTimeout, CodePollingTimeout,
		fmt.Sprintf("job did not finish after %d status checks", attempts))
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// From converts err into an *Error. An *Error anywhere in the chain is
// returned untouched, context.Canceled becomes CANCELLED and everything else
// NETWORK_ERROR. An http.Client timeout also wraps context.DeadlineExceeded,
// so deadlines are left to the owner of the context (see Cancelled).
func From(err error) *Error {
	if err == nil {
		return nil
	}
	if apiErr, ok := As(err); ok {
		return apiErr
	}
	if errors.Is(err, context.Canceled) {
		return Cancelled(err)
	}
	return Network(err)
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	apiErr, ok := As(err)
	return ok && apiErr.Code == code
}
