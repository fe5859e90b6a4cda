package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kailas-cloud/solrq/internal/domain/field"
	"github.com/kailas-cloud/solrq/internal/domain/search/scope"
	"github.com/kailas-cloud/solrq/internal/domain/setup"
	"github.com/kailas-cloud/solrq/internal/transport/solr"
	searchuc "github.com/kailas-cloud/solrq/internal/usecase/search"
)

// ErrorCode is the machine-readable error kind of an API error.
type ErrorCode string

// API error codes.
const (
	CodeBadRequest        ErrorCode = "bad_request"
	CodeUnauthorized      ErrorCode = "unauthorized"
	CodeValidationFailed  ErrorCode = "validation_failed"
	CodeUnrecognizedField ErrorCode = "unrecognized_field"
	CodeUnknownKind       ErrorCode = "unknown_restriction"
	CodeUnknownClass      ErrorCode = "unknown_class"
	CodeSolrRejected      ErrorCode = "solr_rejected"
	CodeSolrUnavailable   ErrorCode = "solr_unavailable"
	CodeInternalError     ErrorCode = "internal_error"
)

// ErrorResponse is the JSON body of every error.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		// Request errors echo the detail; it only names caller input.
		detailHandler(setup.ErrUnrecognizedField, http.StatusBadRequest, CodeUnrecognizedField),
		detailHandler(scope.ErrUnknownKind, http.StatusBadRequest, CodeUnknownKind),
		detailHandler(setup.ErrNoSetup, http.StatusNotFound, CodeUnknownClass),
		detailHandler(searchuc.ErrInvalidRequest, http.StatusBadRequest, CodeValidationFailed),
		detailHandler(field.ErrInvalidArgument, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(solr.ErrRejected, http.StatusBadGateway, CodeSolrRejected),
		sentinelHandler(solr.ErrUnavailable, http.StatusServiceUnavailable, CodeSolrUnavailable),
	}
}

// sentinelHandler answers with the sentinel text only.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

func detailHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}
