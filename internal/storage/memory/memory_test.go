package memory_test

import (
	"context"
	"errors"
	"libraloan/internal/catalog"
	"libraloan/internal/circulation"
	"libraloan/internal/errs"
	"libraloan/internal/membership"
	"libraloan/internal/storage/memory"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoanRepo_OnePerPairUntilReturned(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewLoanRepo()
	borrower, book := uuid.New(), uuid.New()
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	first := &circulation.Loan{ID: uuid.New(), BorrowerID: borrower, BookID: book, BorrowDate: at}
	require.NoError(t, repo.Create(ctx, first))
	err := repo.Create(ctx, &circulation.Loan{ID: uuid.New(), BorrowerID: borrower, BookID: book, BorrowDate: at})
	require.ErrorIs(t, err, errs.ErrDuplicateOpenLoan)

	_, err = repo.MarkReturned(ctx, first.ID, at.Add(time.Hour))
	require.NoError(t, err)
	_, err = repo.MarkReturned(ctx, first.ID, at.Add(2*time.Hour))
	require.ErrorIs(t, err, errs.ErrAlreadyReturned)
	_, err = repo.Renew(ctx, first.ID, at)
	require.ErrorIs(t, err, errs.ErrAlreadyReturned)

	second := &circulation.Loan{ID: uuid.New(), BorrowerID: borrower, BookID: book, BorrowDate: at.Add(24 * time.Hour)}
	require.NoError(t, repo.Create(ctx, second))

	latest, err := repo.FindLatest(ctx, borrower, book)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	// Deleting the closed loan must not free the pair held by the open one.
	require.NoError(t, repo.Delete(ctx, first.ID))
	open, err := repo.FindOpen(ctx, borrower, book)
	require.NoError(t, err)
	assert.Equal(t, second.ID, open.ID)
}

func TestLoanRepo_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewLoanRepo()
	l := &circulation.Loan{ID: uuid.New(), BorrowerID: uuid.New(), BookID: uuid.New(), BorrowDate: time.Now()}
	require.NoError(t, repo.Create(ctx, l))

	got, err := repo.Get(ctx, l.ID)
	require.NoError(t, err)
	got.RenewCount = 99

	again, err := repo.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Zero(t, again.RenewCount)
}

func TestLoanRepo_ListOverdueOldestFirst(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewLoanRepo()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var want []uuid.UUID
	for i := 0; i < 3; i++ {
		l := &circulation.Loan{ID: uuid.New(), BorrowerID: uuid.New(), BookID: uuid.New(), BorrowDate: base.AddDate(0, 0, i)}
		require.NoError(t, repo.Create(ctx, l))
		want = append(want, l.ID)
	}

	got, err := repo.ListOverdue(ctx, base.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, want[:2], []uuid.UUID{got[0].ID, got[1].ID})
}

func TestBookRepo_UpdateCountersKeepsStateOnError(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewBookRepo()
	b := &catalog.Book{ID: uuid.New(), Title: "Dune", Copies: 2, Available: 2}
	require.NoError(t, repo.Create(ctx, b))

	boom := errors.New("refused")
	_, err := repo.UpdateCounters(ctx, b.ID, func(b *catalog.Book) error {
		b.Available = 0
		b.Title = "changed"
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := repo.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Available)
	assert.Equal(t, "Dune", got.Title)

	_, err = repo.UpdateCounters(ctx, uuid.New(), func(*catalog.Book) error { return nil })
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestBookRepo_ConcurrentUpdatesSerialize(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewBookRepo()
	b := &catalog.Book{ID: uuid.New(), Title: "Dune", Copies: 10, Available: 10}
	require.NoError(t, repo.Create(ctx, b))

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.UpdateCounters(ctx, b.ID, catalog.TakeCopy)
		}()
	}
	wg.Wait()

	got, err := repo.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Available)
}

func TestMemberRepo_UniqueEmail(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemberRepo()
	m := &membership.Member{ID: uuid.New(), Email: "al@x.io"}
	require.NoError(t, repo.Create(ctx, m, &membership.Credential{MemberID: m.ID, PasswordHash: "h", Salt: "s"}))

	other := &membership.Member{ID: uuid.New(), Email: "al@x.io"}
	err := repo.Create(ctx, other, &membership.Credential{MemberID: other.ID})
	require.ErrorIs(t, err, errs.ErrAlreadyExists)
	_, err = repo.GetByID(ctx, other.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)

	cred, err := repo.GetCredential(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "h", cred.PasswordHash)
}
