// internal/catalog/handler.go
package catalog

import (
	"fmt"
	"libraloan/internal/httpx"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// bookResponse adds the derived availability fields to a book.
type bookResponse struct {
	*Book
	ShortDescription string `json:"short_description"`
	IsAvailable      bool   `json:"is_available"`
	BorrowedCount    int    `json:"borrowed_count"`
}

func toResponse(b *Book) bookResponse {
	return bookResponse{
		Book:             b,
		ShortDescription: b.ShortDescription(),
		IsAvailable:      b.IsAvailable(),
		BorrowedCount:    b.BorrowedCount(),
	}
}

func (h *Handler) HandleListBooks(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		category = CategoryAll
	}
	books, err := h.service.ListBooks(r.Context(), category)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	out := make([]bookResponse, 0, len(books))
	for _, b := range books {
		out = append(out, toResponse(b))
	}
	httpx.OK(w, http.StatusOK, fmt.Sprintf("%d books", len(out)), httpx.Fields{"category": category, "books": out})
}

func (h *Handler) HandleGetBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.service.GetBookByTitle(r.Context(), chi.URLParam(r, "title"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", httpx.Fields{"book": toResponse(book)})
}

func (h *Handler) HandleCreateBook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string   `json:"title"`
		Category    string   `json:"category"`
		URL         string   `json:"url"`
		Description []string `json:"description"`
		Authors     []string `json:"authors"`
		Genres      []string `json:"genres"`
		Pages       int      `json:"pages"`
		Copies      int      `json:"copies"`
		Available   *int     `json:"available"`
	}
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}

	in := NewBook(req)
	if err := in.ValidateForm(); err != nil {
		httpx.Error(w, r, err)
		return
	}
	book, err := h.service.AddBook(r.Context(), in)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusCreated, fmt.Sprintf("Added '%s' to the catalog.", book.Title),
		httpx.Fields{"book": toResponse(book)})
}

func (h *Handler) HandleListPackages(w http.ResponseWriter, r *http.Request) {
	packages, err := h.service.ListPackages(r.Context())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, fmt.Sprintf("%d packages", len(packages)), httpx.Fields{"packages": packages})
}

func (h *Handler) HandleGetPackage(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetPackage(r.Context(), chi.URLParam(r, "hotel"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", httpx.Fields{"package": p, "cost": p.Cost()})
}

func (h *Handler) HandleCreatePackage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HotelName   string  `json:"hotel_name"`
		Duration    int     `json:"duration"`
		UnitCost    float64 `json:"unit_cost"`
		ImageURL    string  `json:"image_url"`
		Description string  `json:"description"`
	}
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	p, err := h.service.AddPackage(r.Context(), NewPackage(req))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusCreated, fmt.Sprintf("Added package '%s'.", p.HotelName), httpx.Fields{"package": p})
}
