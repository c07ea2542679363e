// Package httpserver wires the domain handlers into a chi router and runs
// the HTTP server.
package httpserver

import (
	"context"
	"errors"
	"libraloan/internal/audit"
	"libraloan/internal/catalog"
	"libraloan/internal/circulation"
	"libraloan/internal/httpx"
	"libraloan/internal/membership"
	"libraloan/internal/upload"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Deps are the services the router exposes.
type Deps struct {
	Catalog     catalog.Service
	Circulation circulation.Service
	Members     membership.Service
	Importer    *upload.Importer
	Auditor     *audit.Auditor
	DueDays     int
	Log         *zap.Logger
	// Ping reports storage health; nil means always healthy.
	Ping func(context.Context) error
}

// NewRouter builds the HTTP API.
func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	books := catalog.NewHandler(d.Catalog)
	loans := circulation.NewHandler(d.Circulation, d.Catalog, d.DueDays)
	members := membership.NewHandler(d.Members)
	uploads := upload.NewHandler(d.Importer)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(otelhttp.NewMiddleware("libraloan.http",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	))
	r.Use(logRequests(log))
	r.Use(recoverPanics(log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ping != nil {
			if err := d.Ping(r.Context()); err != nil {
				httpx.Error(w, r, err)
				return
			}
		}
		httpx.OK(w, http.StatusOK, "ok", nil)
	})

	r.Post("/members", members.HandleRegister)
	r.Post("/login", members.HandleLogin)
	r.Get("/books", books.HandleListBooks)
	r.Get("/books/{title}", books.HandleGetBook)
	r.Get("/packages", books.HandleListPackages)
	r.Get("/packages/{hotel}", books.HandleGetPackage)

	r.Group(func(r chi.Router) {
		r.Use(authenticate(d.Members))

		r.Get("/members/me", members.HandleMe)
		r.Put("/members/me/avatar", members.HandleSetAvatar)

		r.Route("/loans", func(r chi.Router) {
			r.Post("/", loans.HandleCreateLoan)
			r.Get("/", loans.HandleListLoans)
			r.Get("/{id}", loans.HandleGetLoan)
			r.Post("/{id}/renew", loans.HandleRenewLoan)
			r.Post("/{id}/return", loans.HandleReturnLoan)
			r.Delete("/{id}", loans.HandleDeleteLoan)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			r.Post("/books", books.HandleCreateBook)
			r.Post("/packages", books.HandleCreatePackage)
			r.Get("/admin/overdue", loans.HandleOverdue)
			r.Post("/admin/upload", uploads.HandleUpload)
			if d.Auditor != nil {
				r.Get("/admin/audit", audit.NewHandler(d.Auditor).HandleAudit)
			}
		})
	})

	return r
}

// Run serves h on addr until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, addr string, h http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		log.Info("shutdown complete")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
