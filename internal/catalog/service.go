// internal/catalog/service.go
package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the catalog service.
type Service interface {
	AddBook(ctx context.Context, in NewBook) (*Book, error)
	GetBook(ctx context.Context, id uuid.UUID) (*Book, error)
	GetBookByTitle(ctx context.Context, title string) (*Book, error)
	ListBooks(ctx context.Context, category string) ([]*Book, error)
	SeedIfEmpty(ctx context.Context, books []NewBook) (ImportReport, error)
	ImportBooks(ctx context.Context, books []NewBook) (ImportReport, error)

	BorrowOne(ctx context.Context, id uuid.UUID) (int, error)
	ReturnOne(ctx context.Context, id uuid.UUID) (int, error)

	AddPackage(ctx context.Context, in NewPackage) (*Package, error)
	GetPackage(ctx context.Context, hotelName string) (*Package, error)
	ListPackages(ctx context.Context) ([]*Package, error)
}

// BookRepository persists books.
type BookRepository interface {
	// Create inserts a book; a taken title yields errs.ErrAlreadyExists.
	Create(ctx context.Context, b *Book) error
	Get(ctx context.Context, id uuid.UUID) (*Book, error)
	GetByTitle(ctx context.Context, title string) (*Book, error)
	// List returns books ordered by title; empty category means all.
	List(ctx context.Context, category string) ([]*Book, error)
	Count(ctx context.Context) (int, error)
	// UpdateCounters locks the book, applies fn and persists Available when
	// fn returns nil. No other writer can interleave between fn and the write.
	UpdateCounters(ctx context.Context, id uuid.UUID, fn func(*Book) error) (*Book, error)
}

// PackageRepository persists hotel packages.
type PackageRepository interface {
	Create(ctx context.Context, p *Package) error
	GetByHotel(ctx context.Context, hotelName string) (*Package, error)
	List(ctx context.Context) ([]*Package, error)
}
