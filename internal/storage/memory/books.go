// Package memory contains mutex-guarded in-process implementations of the
// repository interfaces. They back tests and the demo storage mode.
package memory

import (
	"context"
	"libraloan/internal/catalog"
	"libraloan/internal/errs"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// BookRepo implements catalog.BookRepository.
type BookRepo struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*catalog.Book
	byTitle map[string]uuid.UUID
}

// NewBookRepo constructs an empty book repository.
func NewBookRepo() *BookRepo {
	return &BookRepo{
		byID:    make(map[uuid.UUID]*catalog.Book),
		byTitle: make(map[string]uuid.UUID),
	}
}

func (r *BookRepo) Create(_ context.Context, b *catalog.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byTitle[b.Title]; ok {
		return errs.ErrAlreadyExists
	}
	r.byID[b.ID] = cloneBook(b)
	r.byTitle[b.Title] = b.ID
	return nil
}

func (r *BookRepo) Get(_ context.Context, id uuid.UUID) (*catalog.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return cloneBook(b), nil
}

func (r *BookRepo) GetByTitle(_ context.Context, title string) (*catalog.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byTitle[title]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return cloneBook(r.byID[id]), nil
}

func (r *BookRepo) List(_ context.Context, category string) ([]*catalog.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*catalog.Book, 0, len(r.byID))
	for _, b := range r.byID {
		if category == "" || b.Category == category {
			out = append(out, cloneBook(b))
		}
	}
	slices.SortFunc(out, func(a, b *catalog.Book) int { return strings.Compare(a.Title, b.Title) })
	return out, nil
}

func (r *BookRepo) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID), nil
}

// UpdateCounters applies fn to a copy under the lock and keeps the result
// only when fn succeeds.
func (r *BookRepo) UpdateCounters(_ context.Context, id uuid.UUID, fn func(*catalog.Book) error) (*catalog.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	next := cloneBook(cur)
	if err := fn(next); err != nil {
		return nil, err
	}
	cur.Available = next.Available
	cur.UpdatedAt = time.Now().UTC()
	return cloneBook(cur), nil
}

// Put overwrites a stored book as-is, bypassing validation. Tests use it to
// plant corrupt counters.
func (r *BookRepo) Put(b *catalog.Book) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[b.ID] = cloneBook(b)
	r.byTitle[b.Title] = b.ID
}

func cloneBook(b *catalog.Book) *catalog.Book {
	c := *b
	c.Description = slices.Clone(b.Description)
	c.Authors = slices.Clone(b.Authors)
	c.Genres = slices.Clone(b.Genres)
	return &c
}

// PackageRepo implements catalog.PackageRepository.
type PackageRepo struct {
	mu      sync.Mutex
	byHotel map[string]*catalog.Package
}

// NewPackageRepo constructs an empty package repository.
func NewPackageRepo() *PackageRepo {
	return &PackageRepo{byHotel: make(map[string]*catalog.Package)}
}

func (r *PackageRepo) Create(_ context.Context, p *catalog.Package) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byHotel[p.HotelName]; ok {
		return errs.ErrAlreadyExists
	}
	c := *p
	r.byHotel[p.HotelName] = &c
	return nil
}

func (r *PackageRepo) GetByHotel(_ context.Context, hotelName string) (*catalog.Package, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byHotel[hotelName]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (r *PackageRepo) List(_ context.Context) ([]*catalog.Package, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*catalog.Package, 0, len(r.byHotel))
	for _, p := range r.byHotel {
		c := *p
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *catalog.Package) int { return strings.Compare(a.HotelName, b.HotelName) })
	return out, nil
}
