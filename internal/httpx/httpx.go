// Package httpx holds the request and response plumbing shared by the HTTP
// handlers: JSON replies, error to status mapping and the authenticated actor.
package httpx

import (
	"context"
	"errors"
	"libraloan/internal/errs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxBody caps JSON request bodies.
const maxBody = 1 << 20

type ctxKey string

const (
	actorKey  ctxKey = "libraloan.actor"
	loggerKey ctxKey = "libraloan.logger"
)

// Actor is the authenticated member behind a request.
type Actor struct {
	ID    uuid.UUID
	Admin bool
}

// WithActor stores the authenticated actor in ctx.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// ActorFrom fetches the actor stored by WithActor.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey).(Actor)
	return a, ok
}

// WithLogger stores a request scoped logger in ctx.
func WithLogger(ctx context.Context, log *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// Logger returns the request logger, or a no-op logger.
func Logger(ctx context.Context) *zap.Logger {
	if log, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return log
	}
	return zap.NewNop()
}

// Fields are extra top level keys of a reply.
type Fields map[string]any

// OK writes {"success": true, "message": message, ...fields}.
func OK(w http.ResponseWriter, status int, message string, fields Fields) {
	write(w, status, true, message, fields)
}

// Error maps err to a status code and writes {"success": false, "message": ...}.
// Only rule errors reach the client verbatim.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := Status(err)
	if status >= http.StatusInternalServerError {
		Logger(r.Context()).Error("request failed", zap.Error(err))
	}
	write(w, status, false, errs.Message(err), nil)
}

// Status picks the response code for err.
func Status(err error) int {
	switch {
	case errors.Is(err, errs.ErrDataInconsistency):
		return http.StatusInternalServerError
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrAlreadyExists), errors.Is(err, errs.ErrDuplicateOpenLoan):
		return http.StatusConflict
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrNoCopiesAvailable),
		errors.Is(err, errs.ErrAlreadyReturned),
		errors.Is(err, errs.ErrLoanStillOpen),
		errors.Is(err, errs.ErrAllCopiesAlreadyAvailable):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func write(w http.ResponseWriter, status int, success bool, message string, fields Fields) {
	body := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		body[k] = v
	}
	body["success"] = success
	body["message"] = message

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Decode reads a JSON body into v.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errs.Rule(errs.ErrValidation, "Invalid request body.")
	}
	return nil
}

// UUIDParam parses a chi URL parameter as a uuid.
func UUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errs.Rule(errs.ErrValidation, "Invalid %s.", name)
	}
	return id, nil
}

// MustActor returns the actor or writes 401 and reports false.
func MustActor(w http.ResponseWriter, r *http.Request) (Actor, bool) {
	a, ok := ActorFrom(r.Context())
	if !ok {
		Error(w, r, errs.ErrUnauthorized)
	}
	return a, ok
}
