// Package apierror builds HTTP errors that carry a stable machine-readable
// code alongside the human message.
package apierror

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
)

// Error codes returned to API clients.
const (
	CodeInvalidSearchCriteria  = "INVALID_SEARCH_CRITERIA"
	CodeInvalidPANFormat       = "INVALID_PAN_FORMAT"
	CodeInvalidDecisionData    = "INVALID_DECISION_DATA"
	CodeInvalidDecisionType    = "INVALID_DECISION_TYPE"
	CodeMissingCaseID          = "MISSING_CASE_ID"
	CodeInvalidSearchToken     = "INVALID_SEARCH_TOKEN"
	CodeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	CodeNoClientAccess         = "NO_CLIENT_ACCESS"
	CodeCaseAccessDenied       = "CASE_ACCESS_DENIED"
	CodeCaseNotFound           = "CASE_NOT_FOUND"
	CodeSearchError            = "DEDUPLICATION_SEARCH_ERROR"
	CodeDecisionError          = "DEDUPLICATION_DECISION_ERROR"
	CodeHistoryError           = "DEDUPLICATION_HISTORY_ERROR"
	CodeClustersError          = "DUPLICATE_CLUSTERS_ERROR"
)

// New returns an httperror with the given status and message, tagging the
// error code into the error meta so the error middleware can surface it.
func New(status int, code string, message string) error {
	err := httperror.NewHTTPError(status, message)
	he := httperror.ToHTTPError(err)
	he.Meta = map[string]any{"code": code}
	return he
}

// Code extracts the error code from an error, falling back to the provided
// default for plain errors.
func Code(err error, fallback string) string {
	if !httperror.IsHTTPError(err) {
		return fallback
	}
	he := httperror.ToHTTPError(err)
	if he.Meta == nil {
		return fallback
	}
	code, ok := he.Meta["code"].(string)
	if !ok || code == "" {
		return fallback
	}
	return code
}

func BadRequest(code, message string) error {
	return New(http.StatusBadRequest, code, message)
}

func Unauthorized(message string) error {
	return New(http.StatusUnauthorized, CodeAuthenticationRequired, message)
}

func Forbidden(code, message string) error {
	return New(http.StatusForbidden, code, message)
}

func NotFound(code, message string) error {
	return New(http.StatusNotFound, code, message)
}

func Internal(code, message string) error {
	return New(http.StatusInternalServerError, code, message)
}
