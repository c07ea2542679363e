// internal/catalog/implementation.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"libraloan/internal/errs"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// service implements the Service interface.
type service struct {
	books    BookRepository
	packages PackageRepository
	log      *zap.Logger
	now      func() time.Time
}

// NewService creates a new catalog service instance.
func NewService(books BookRepository, packages PackageRepository, log *zap.Logger) Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &service{
		books:    books,
		packages: packages,
		log:      log,
		now:      time.Now,
	}
}

// AddBook creates a new book in the catalog with all copies on the shelf
// unless the input says otherwise.
func (s *service) AddBook(ctx context.Context, in NewBook) (*Book, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	book := in.build(s.now().UTC())
	if err := s.books.Create(ctx, book); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return nil, errs.Rule(errs.ErrAlreadyExists, "A book titled '%s' already exists.", book.Title)
		}
		return nil, fmt.Errorf("failed to create book: %w", err)
	}
	s.log.Info("book added", zap.String("book_id", book.ID.String()), zap.String("title", book.Title),
		zap.Int("copies", book.Copies))
	return book, nil
}

// GetBook retrieves a book by its ID.
func (s *service) GetBook(ctx context.Context, id uuid.UUID) (*Book, error) {
	book, err := s.books.Get(ctx, id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.Rule(errs.ErrNotFound, "Book with ID %s not found.", id)
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return book, nil
}

// GetBookByTitle retrieves a book by its unique title.
func (s *service) GetBookByTitle(ctx context.Context, title string) (*Book, error) {
	book, err := s.books.GetByTitle(ctx, title)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.Rule(errs.ErrNotFound, "Book \"%s\" not found.", title)
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return book, nil
}

// ListBooks returns the books of one category, or all of them, ordered by title.
func (s *service) ListBooks(ctx context.Context, category string) ([]*Book, error) {
	if category == CategoryAll {
		category = ""
	}
	books, err := s.books.List(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

// SeedIfEmpty populates the catalog once; a non-empty catalog is left alone.
func (s *service) SeedIfEmpty(ctx context.Context, books []NewBook) (ImportReport, error) {
	n, err := s.books.Count(ctx)
	if err != nil {
		return ImportReport{}, fmt.Errorf("failed to count books: %w", err)
	}
	if n > 0 {
		return ImportReport{Skipped: len(books)}, nil
	}
	return s.ImportBooks(ctx, books)
}

// ImportBooks inserts the given books, skipping titles already in the catalog.
func (s *service) ImportBooks(ctx context.Context, books []NewBook) (ImportReport, error) {
	var report ImportReport
	for i, in := range books {
		if err := in.Validate(); err != nil {
			return report, fmt.Errorf("book %d: %w", i+1, err)
		}
		book := in.build(s.now().UTC())
		err := s.books.Create(ctx, book)
		switch {
		case err == nil:
			report.Inserted++
		case errors.Is(err, errs.ErrAlreadyExists):
			report.Skipped++
		default:
			return report, fmt.Errorf("failed to import book %q: %w", book.Title, err)
		}
	}
	s.log.Info("books imported", zap.Int("inserted", report.Inserted), zap.Int("skipped", report.Skipped))
	return report, nil
}

// BorrowOne takes one copy off the shelf and returns the new available count.
func (s *service) BorrowOne(ctx context.Context, id uuid.UUID) (int, error) {
	return s.adjust(ctx, id, TakeCopy)
}

// ReturnOne puts one copy back on the shelf and returns the new available count.
func (s *service) ReturnOne(ctx context.Context, id uuid.UUID) (int, error) {
	return s.adjust(ctx, id, PutCopy)
}

func (s *service) adjust(ctx context.Context, id uuid.UUID, fn func(*Book) error) (int, error) {
	book, err := s.books.UpdateCounters(ctx, id, fn)
	if err != nil {
		switch {
		case errs.IsRule(err):
			if errors.Is(err, errs.ErrDataInconsistency) {
				s.log.Error("book counters out of range", zap.String("book_id", id.String()), zap.Error(err))
			}
			return 0, err
		case errors.Is(err, errs.ErrNotFound):
			return 0, errs.Rule(errs.ErrNotFound, "Book with ID %s not found.", id)
		}
		return 0, fmt.Errorf("failed to update book counters: %w", err)
	}
	return book.Available, nil
}

// AddPackage creates a new hotel package.
func (s *service) AddPackage(ctx context.Context, in NewPackage) (*Package, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	p := &Package{
		ID:          uuid.New(),
		HotelName:   in.HotelName,
		Duration:    in.Duration,
		UnitCost:    in.UnitCost,
		ImageURL:    in.ImageURL,
		Description: in.Description,
	}
	if err := s.packages.Create(ctx, p); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return nil, errs.Rule(errs.ErrAlreadyExists, "A package for '%s' already exists.", p.HotelName)
		}
		return nil, fmt.Errorf("failed to create package: %w", err)
	}
	return p, nil
}

// GetPackage retrieves a package by hotel name.
func (s *service) GetPackage(ctx context.Context, hotelName string) (*Package, error) {
	p, err := s.packages.GetByHotel(ctx, hotelName)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.Rule(errs.ErrNotFound, "Package \"%s\" not found.", hotelName)
		}
		return nil, fmt.Errorf("failed to get package: %w", err)
	}
	return p, nil
}

// ListPackages returns every package ordered by hotel name.
func (s *service) ListPackages(ctx context.Context) ([]*Package, error) {
	ps, err := s.packages.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	return ps, nil
}
