package errs

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"mySocialApp/logging"
)

// Application error codes. They are mapped to http status codes
// by ReturnError, so the domain never has to know about http.
const (
	ECONFLICT     = "conflict"
	EINTERNAL     = "internal"
	EINVALID      = "invalid"
	ENOTFOUND     = "not_found"
	EUNAUTHORIZED = "unauthorized"
	EFORBIDDEN    = "forbidden"
)

// codes maps application error codes to http status codes.
var codes = map[string]int{
	ECONFLICT:     http.StatusConflict,
	EINVALID:      http.StatusBadRequest,
	ENOTFOUND:     http.StatusNotFound,
	EUNAUTHORIZED: http.StatusUnauthorized,
	EFORBIDDEN:    http.StatusForbidden,
	EINTERNAL:     http.StatusInternalServerError,
}

// Error represents an application-specific error. Its Message is meant
// to be shown to the end user, so it must never contain internals.
type Error struct {
	Code    string
	Message string
}

// Error implements the error interface. Not used by the application otherwise.
func (e *Error) Error() string {
	return fmt.Sprintf("app error: code=%s message=%s", e.Code, e.Message)
}

// Errorf is a helper function to return an Error with a given code and formatted message.
func Errorf(code string, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// ErrorCode unwraps an application error and returns its code.
// Non-application errors always return EINTERNAL.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage unwraps an application error and returns its message.
// Non-application errors always return "Internal error.".
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error."
}

// ErrorStatusCode returns the http status code for an application error code.
func ErrorStatusCode(code string) int {
	if v, ok := codes[code]; ok {
		return v
	}
	return http.StatusInternalServerError
}

// ReturnError writes the error envelope {"result": false, "error": "..."} with
// the status code matching the error. Internal errors are logged, since their
// real cause is hidden from the client.
func ReturnError(w http.ResponseWriter, r *http.Request, err error) {
	code, message := ErrorCode(err), ErrorMessage(err)

	if code == EINTERNAL {
		LogError(r, err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ErrorStatusCode(code))
	json.NewEncoder(w).Encode(&ErrorResponse{Result: false, Error: message})
}

// LogError logs an error with the request's logger.
func LogError(r *http.Request, err error) {
	logger := logging.Ctx(r.Context())
	logger.Error().Err(err).Msg("request failed")
}

// ErrorResponse is the json envelope returned on failure.
type ErrorResponse struct {
	Result bool   `json:"result"`
	Error  string `json:"error"`
}
