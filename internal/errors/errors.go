// Package errors maps failures onto gofulmen error envelopes and writes them
// as JSON responses for the detail proxy.
package errors

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/google/uuid"

	"github.com/pokedexplorer/pokedex/internal/core"
	"github.com/pokedexplorer/pokedex/internal/server/middleware"
)

// Error codes used by the proxy.
const (
	CodeInvalidInput     = "INVALID_INPUT"
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeRateLimited      = "RATE_LIMITED"
	CodeInternal         = "INTERNAL_ERROR"
	CodeDatabase         = "DATABASE_ERROR"
	CodeExternalService  = "EXTERNAL_SERVICE_ERROR"
	CodeTimeout          = "TIMEOUT"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
)

// codeInfo is how a code is answered. Internal causes stay in the log;
// public ones are echoed to the caller as details.wrapped_error.
type codeInfo struct {
	status int
	public bool
}

var codeTable = map[string]codeInfo{
	CodeInvalidInput:     {http.StatusBadRequest, true},
	CodeNotFound:         {http.StatusNotFound, true},
	CodeMethodNotAllowed: {http.StatusMethodNotAllowed, true},
	CodeRateLimited:      {http.StatusTooManyRequests, true},
	CodeTimeout:          {http.StatusGatewayTimeout, true},
	CodeExternalService:  {http.StatusBadGateway, true},
	CodeUnavailable:      {http.StatusServiceUnavailable, true},
	CodeDatabase:         {http.StatusInternalServerError, false},
	CodeInternal:         {http.StatusInternalServerError, false},
}

func lookupCode(code string) codeInfo {
	if info, ok := codeTable[code]; ok {
		return info
	}
	return codeInfo{status: http.StatusInternalServerError}
}

func NewInvalidInputError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInvalidInput, message)
}

func NewNotFoundError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeNotFound, message)
}

func NewMethodNotAllowedError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeMethodNotAllowed, message)
}

func NewInternalError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInternal, message)
}

func NewUnavailableError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeUnavailable, message)
}

// Wrap builds an envelope for code that carries err's text, with the
// request ID as both correlation and trace ID.
func Wrap(ctx context.Context, code string, err error, message string) *errors.ErrorEnvelope {
	id := requestIDOr(ctx, uuid.NewString)
	envelope := errors.NewErrorEnvelope(code, message).WithCorrelationID(id).WithTraceID(id)
	return withCause(envelope, err)
}

func WrapDatabaseError(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return Wrap(ctx, CodeDatabase, err, message)
}

func WrapExternalService(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return Wrap(ctx, CodeExternalService, err, message)
}

// FromLookup maps a detail lookup failure to its envelope. The message is
// always the user-facing reason from core.Classify.
func FromLookup(ctx context.Context, name string, err error) *errors.ErrorEnvelope {
	kind, reason := core.Classify(err)
	var fetchErr *core.FetchError
	hasFetch := stderrors.As(err, &fetchErr)

	code := CodeExternalService
	switch {
	case kind == core.FailureValidation:
		code = CodeInvalidInput
	case hasFetch && fetchErr.Status == http.StatusTooManyRequests:
		code = CodeRateLimited
	case kind == core.FailureNotFound:
		code = CodeNotFound
	case stderrors.Is(err, context.DeadlineExceeded):
		code = CodeTimeout
	}

	details := map[string]interface{}{"name": name, "kind": kind.String()}
	if hasFetch && fetchErr.Status != 0 {
		details["upstream_status"] = fetchErr.Status
	}
	return Wrap(ctx, code, err, reason).WithDetails(details)
}

// EnsureEnvelope normalizes any error into a gofulmen ErrorEnvelope.
func EnsureEnvelope(err error) *errors.ErrorEnvelope {
	if err == nil {
		env, _ := errors.NewErrorEnvelope(CodeInternal, "unexpected nil error").WithSeverity(errors.SeverityCritical)
		return env
	}

	var envelope *errors.ErrorEnvelope
	if stderrors.As(err, &envelope) && envelope != nil {
		return envelope
	}

	env, _ := withCause(errors.NewErrorEnvelope(CodeInternal, "unexpected error"), err).WithSeverity(errors.SeverityHigh)
	return env
}

// EnsureCorrelationID fills in a missing correlation ID from the request
// context.
func EnsureCorrelationID(envelope *errors.ErrorEnvelope, ctx context.Context) *errors.ErrorEnvelope {
	if envelope == nil || envelope.CorrelationID != "" {
		return envelope
	}
	return envelope.WithCorrelationID(requestIDOr(ctx, func() string {
		return "fallback-" + errors.GenerateCorrelationID()
	}))
}

// HTTPStatusFromEnvelope resolves the HTTP status for an envelope.
func HTTPStatusFromEnvelope(envelope *errors.ErrorEnvelope) int {
	if envelope == nil {
		return http.StatusInternalServerError
	}
	return HTTPStatusFromCode(envelope.Code)
}

// HTTPStatusFromCode resolves the HTTP status for an error code. Unknown
// codes are 500.
func HTTPStatusFromCode(code string) int {
	return lookupCode(code).status
}

func requestIDOr(ctx context.Context, fallback func() string) string {
	if ctx != nil {
		if id := middleware.GetRequestID(ctx); id != "" {
			return id
		}
	}
	return fallback()
}

const causeKey = "wrapped_error"

func withCause(envelope *errors.ErrorEnvelope, err error) *errors.ErrorEnvelope {
	if envelope == nil || err == nil {
		return envelope
	}
	updated, updateErr := envelope.WithContext(map[string]interface{}{causeKey: err.Error()})
	if updateErr != nil {
		return envelope
	}
	return updated
}
