package httpserver

import (
	"errors"
	"libraloan/internal/errs"
	"libraloan/internal/httpx"
	"libraloan/internal/membership"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// logRequests writes one line per request and hands a request scoped
// logger to the handlers.
func logRequests(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			reqLog := log.With(zap.String("request_id", middleware.GetReqID(r.Context())))

			next.ServeHTTP(ww, r.WithContext(httpx.WithLogger(r.Context(), reqLog)))

			reqLog.Info("http",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("dur", time.Since(start)),
			)
		})
	}
}

// recoverPanics turns a handler panic into a 500 reply.
func recoverPanics(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error("panic",
						zap.Any("reason", rec),
						zap.ByteString("stack", debug.Stack()),
						zap.String("path", r.URL.Path),
					)
					httpx.Error(w, r, errors.New("panic"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// authenticate resolves the bearer token into an actor. Requests without a
// valid token are refused.
func authenticate(members membership.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				httpx.Error(w, r, errs.ErrUnauthorized)
				return
			}
			id, err := members.ParseToken(token)
			if err != nil {
				httpx.Error(w, r, err)
				return
			}
			member, err := members.GetMember(r.Context(), id)
			if err != nil {
				if errors.Is(err, errs.ErrNotFound) {
					err = errs.ErrUnauthorized
				}
				httpx.Error(w, r, err)
				return
			}
			ctx := httpx.WithActor(r.Context(), httpx.Actor{ID: member.ID, Admin: member.IsAdmin()})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireAdmin lets only admins through; it must run after authenticate.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := httpx.ActorFrom(r.Context())
		if !ok {
			httpx.Error(w, r, errs.ErrUnauthorized)
			return
		}
		if !actor.Admin {
			httpx.Error(w, r, errs.Rule(errs.ErrForbidden, "Only admins can do that."))
			return
		}
		next.ServeHTTP(w, r)
	})
}
