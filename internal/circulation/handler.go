// internal/circulation/handler.go
package circulation

import (
	"context"
	"fmt"
	"libraloan/internal/catalog"
	"libraloan/internal/errs"
	"libraloan/internal/httpx"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Titles resolves books for requests that name them by title.
type Titles interface {
	GetBook(ctx context.Context, id uuid.UUID) (*catalog.Book, error)
	GetBookByTitle(ctx context.Context, title string) (*catalog.Book, error)
}

type Handler struct {
	service Service
	books   Titles
	dueDays int
	now     func() time.Time
}

func NewHandler(service Service, books Titles, dueDays int) *Handler {
	if dueDays <= 0 {
		dueDays = DefaultDueDays
	}
	return &Handler{service: service, books: books, dueDays: dueDays, now: time.Now}
}

type loanResponse struct {
	*Loan
	BookTitle    string    `json:"book_title,omitempty"`
	DueDate      time.Time `json:"due_date"`
	DaysBorrowed int       `json:"days_borrowed"`
	IsOverdue    bool      `json:"is_overdue"`
}

func (h *Handler) view(ctx context.Context, l *Loan, dueDays int) loanResponse {
	now := h.now()
	resp := loanResponse{
		Loan:         l,
		DueDate:      l.DueDate(dueDays),
		DaysBorrowed: l.DaysBorrowed(now),
		IsOverdue:    l.IsOverdue(now, dueDays),
	}
	if b, err := h.books.GetBook(ctx, l.BookID); err == nil {
		resp.BookTitle = b.Title
	}
	return resp
}

func (h *Handler) views(ctx context.Context, loans []*Loan, dueDays int) []loanResponse {
	out := make([]loanResponse, 0, len(loans))
	for _, l := range loans {
		out = append(out, h.view(ctx, l, dueDays))
	}
	return out
}

func (h *Handler) HandleCreateLoan(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.MustActor(w, r)
	if !ok {
		return
	}
	if actor.Admin {
		httpx.Error(w, r, errs.Rule(errs.ErrForbidden, "Admins cannot borrow books."))
		return
	}

	var req struct {
		BookTitle string `json:"book_title"`
	}
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	book, err := h.books.GetBookByTitle(r.Context(), req.BookTitle)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	res, err := h.service.CreateLoan(r.Context(), actor.ID, book.ID, time.Time{})
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusCreated, res.Message, httpx.Fields{"loan": h.view(r.Context(), res.Loan, h.dueDays)})
}

func (h *Handler) HandleListLoans(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.MustActor(w, r)
	if !ok {
		return
	}
	openOnly, _ := strconv.ParseBool(r.URL.Query().Get("open"))
	loans, err := h.service.LoansFor(r.Context(), actor.ID, openOnly)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, fmt.Sprintf("%d loans", len(loans)),
		httpx.Fields{"loans": h.views(r.Context(), loans, h.dueDays)})
}

func (h *Handler) HandleGetLoan(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.MustActor(w, r)
	if !ok {
		return
	}
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	loan, err := h.service.GetLoan(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	if loan.BorrowerID != actor.ID && !actor.Admin {
		httpx.Error(w, r, errs.Rule(errs.ErrForbidden, "You can only view your own loans."))
		return
	}
	httpx.OK(w, http.StatusOK, "", httpx.Fields{"loan": h.view(r.Context(), loan, h.dueDays)})
}

func (h *Handler) HandleRenewLoan(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, func(ctx context.Context, actor, loan uuid.UUID) (Result, error) {
		return h.service.RenewLoan(ctx, actor, loan, time.Time{})
	})
}

func (h *Handler) HandleReturnLoan(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, func(ctx context.Context, actor, loan uuid.UUID) (Result, error) {
		return h.service.ReturnLoan(ctx, actor, loan, time.Time{})
	})
}

func (h *Handler) HandleDeleteLoan(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.service.DeleteLoan)
}

func (h *Handler) lifecycle(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID, uuid.UUID) (Result, error)) {
	actor, ok := httpx.MustActor(w, r)
	if !ok {
		return
	}
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	res, err := op(r.Context(), actor.ID, id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	fields := httpx.Fields{}
	if res.Loan != nil {
		fields["loan"] = h.view(r.Context(), res.Loan, h.dueDays)
	}
	httpx.OK(w, http.StatusOK, res.Message, fields)
}

// HandleOverdue lists open loans past due; due_days overrides the configured period.
func (h *Handler) HandleOverdue(w http.ResponseWriter, r *http.Request) {
	dueDays := h.dueDays
	if v := r.URL.Query().Get("due_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			httpx.Error(w, r, errs.Rule(errs.ErrValidation, "Due days must be a whole number."))
			return
		}
		dueDays = n
	}
	loans, err := h.service.Overdue(r.Context(), dueDays)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, fmt.Sprintf("%d overdue loans", len(loans)),
		httpx.Fields{"due_days": dueDays, "loans": h.views(r.Context(), loans, dueDays)})
}
