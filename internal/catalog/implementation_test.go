package catalog_test

import (
	"context"
	"libraloan/internal/catalog"
	"libraloan/internal/errs"
	"libraloan/internal/storage/memory"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newService() (catalog.Service, *memory.BookRepo) {
	books := memory.NewBookRepo()
	return catalog.NewService(books, memory.NewPackageRepo(), nil), books
}

func TestBorrowAndReturnOne(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	b, err := svc.AddBook(ctx, catalog.NewBook{Title: "Dune", Copies: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, b.Available)

	n, err := svc.BorrowOne(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = svc.BorrowOne(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = svc.BorrowOne(ctx, b.ID)
	require.ErrorIs(t, err, errs.ErrNoCopiesAvailable)

	n, err = svc.ReturnOne(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = svc.ReturnOne(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = svc.ReturnOne(ctx, b.ID)
	require.ErrorIs(t, err, errs.ErrAllCopiesAlreadyAvailable)

	got, err := svc.GetBook(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Available)
}

func TestBorrowOne_CorruptCounters(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService()
	id := uuid.New()
	repo.Put(&catalog.Book{ID: id, Title: "Broken", Copies: 2, Available: 5})

	_, err := svc.BorrowOne(ctx, id)
	require.ErrorIs(t, err, errs.ErrDataInconsistency)
	assert.Equal(t, "Book 'Broken' has inconsistent counters (5 available of 2 copies).", errs.Message(err))

	repo.Put(&catalog.Book{ID: id, Title: "Broken", Copies: 2, Available: -1})
	_, err = svc.ReturnOne(ctx, id)
	require.ErrorIs(t, err, errs.ErrDataInconsistency)

	got, err := svc.GetBook(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, -1, got.Available)
}

func TestBorrowOne_UnknownBook(t *testing.T) {
	svc, _ := newService()
	_, err := svc.BorrowOne(context.Background(), uuid.New())
	require.ErrorIs(t, err, errs.ErrNotFound)
	assert.True(t, errs.IsRule(err))
}

func TestAddBook_DuplicateTitle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	_, err := svc.AddBook(ctx, catalog.NewBook{Title: "Dune", Copies: 1})
	require.NoError(t, err)
	_, err = svc.AddBook(ctx, catalog.NewBook{Title: "Dune", Copies: 1})
	require.ErrorIs(t, err, errs.ErrAlreadyExists)
}

func TestListBooks_ByCategory(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	for _, nb := range []catalog.NewBook{
		{Title: "Matilda", Category: "Children"},
		{Title: "Dune", Category: "Adult"},
		{Title: "Emma", Category: "Adult"},
	} {
		_, err := svc.AddBook(ctx, nb)
		require.NoError(t, err)
	}

	all, err := svc.ListBooks(ctx, catalog.CategoryAll)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dune", "Emma", "Matilda"}, titles(all))

	adult, err := svc.ListBooks(ctx, "Adult")
	require.NoError(t, err)
	assert.Equal(t, []string{"Dune", "Emma"}, titles(adult))
}

func TestSeedIfEmpty(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	seed := []catalog.NewBook{{Title: "A", Copies: 1}, {Title: "B", Copies: 1}}

	report, err := svc.SeedIfEmpty(ctx, seed)
	require.NoError(t, err)
	assert.Equal(t, catalog.ImportReport{Inserted: 2}, report)

	report, err = svc.SeedIfEmpty(ctx, append(seed, catalog.NewBook{Title: "C"}))
	require.NoError(t, err)
	assert.Equal(t, catalog.ImportReport{Skipped: 3}, report)
}

func TestPackages(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	_, err := svc.AddPackage(ctx, catalog.NewPackage{HotelName: "Ritz", Duration: 2, UnitCost: 50})
	require.NoError(t, err)
	_, err = svc.AddPackage(ctx, catalog.NewPackage{HotelName: "Ritz", Duration: 2, UnitCost: 50})
	require.ErrorIs(t, err, errs.ErrAlreadyExists)

	_, err = svc.GetPackage(ctx, "Savoy")
	require.ErrorIs(t, err, errs.ErrNotFound)
	assert.Equal(t, `Package "Savoy" not found.`, errs.Message(err))

	ps, err := svc.ListPackages(ctx)
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, 100.0, ps[0].Cost())
}

// Any interleaving of borrows and returns keeps 0 <= available <= copies,
// and available always equals copies minus the copies currently out.
func TestCountersStayInRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		svc, _ := newService()
		copies := rapid.IntRange(0, 5).Draw(t, "copies")
		b, err := svc.AddBook(ctx, catalog.NewBook{Title: "T", Copies: copies})
		if err != nil {
			t.Fatalf("add book: %v", err)
		}

		out := 0
		ops := rapid.SliceOf(rapid.Bool()).Draw(t, "borrow")
		for _, borrow := range ops {
			if borrow {
				if _, err := svc.BorrowOne(ctx, b.ID); err == nil {
					out++
				} else if out < copies {
					t.Fatalf("borrow refused with %d of %d out: %v", out, copies, err)
				}
			} else {
				if _, err := svc.ReturnOne(ctx, b.ID); err == nil {
					out--
				} else if out > 0 {
					t.Fatalf("return refused with %d out: %v", out, err)
				}
			}
			got, err := svc.GetBook(ctx, b.ID)
			if err != nil {
				t.Fatalf("get book: %v", err)
			}
			if got.Available < 0 || got.Available > got.Copies {
				t.Fatalf("available %d outside [0, %d]", got.Available, got.Copies)
			}
			if got.Available != copies-out {
				t.Fatalf("available %d, want %d", got.Available, copies-out)
			}
		}
	})
}

func titles(books []*catalog.Book) []string {
	out := make([]string, 0, len(books))
	for _, b := range books {
		out = append(out, b.Title)
	}
	return out
}
