package catalog

import (
	"libraloan/internal/errs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTakeCopy(t *testing.T) {
	tests := []struct {
		name      string
		available int
		copies    int
		wantErr   error
		wantAfter int
	}{
		{name: "last copy", available: 1, copies: 3, wantAfter: 0},
		{name: "none left", available: 0, copies: 3, wantErr: errs.ErrNoCopiesAvailable, wantAfter: 0},
		{name: "negative counter", available: -1, copies: 3, wantErr: errs.ErrNoCopiesAvailable, wantAfter: -1},
		{name: "above copies", available: 4, copies: 3, wantErr: errs.ErrDataInconsistency, wantAfter: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Book{Title: "Dune", Copies: tt.copies, Available: tt.available}
			err := TakeCopy(b)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantAfter, b.Available)
		})
	}
}

func TestPutCopy(t *testing.T) {
	tests := []struct {
		name      string
		available int
		copies    int
		wantErr   error
		wantAfter int
	}{
		{name: "one out", available: 2, copies: 3, wantAfter: 3},
		{name: "all on shelf", available: 3, copies: 3, wantErr: errs.ErrAllCopiesAlreadyAvailable, wantAfter: 3},
		{name: "negative counter", available: -1, copies: 3, wantErr: errs.ErrDataInconsistency, wantAfter: -1},
		{name: "zero copies", available: 0, copies: 0, wantErr: errs.ErrAllCopiesAlreadyAvailable, wantAfter: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Book{Title: "Dune", Copies: tt.copies, Available: tt.available}
			err := PutCopy(b)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantAfter, b.Available)
		})
	}
}

func TestTakeCopy_Messages(t *testing.T) {
	err := TakeCopy(&Book{Title: "Dune", Copies: 1})
	assert.Equal(t, "Cannot borrow 'Dune'. It has no available copies.", errs.Message(err))

	err = PutCopy(&Book{Title: "Dune", Copies: 1, Available: 1})
	assert.Equal(t, "All copies of 'Dune' are already available.", errs.Message(err))
}

func TestBook_Derived(t *testing.T) {
	b := &Book{Copies: 5, Available: 2, Description: []string{" ", "First.", "Middle.", "Last.", ""}}
	assert.True(t, b.IsAvailable())
	assert.Equal(t, 3, b.BorrowedCount())
	assert.Equal(t, "First. ... Last.", b.ShortDescription())

	assert.Equal(t, "Only.", (&Book{Description: []string{"Only."}}).ShortDescription())
	assert.Empty(t, (&Book{}).ShortDescription())
	assert.False(t, (&Book{Copies: 1}).IsAvailable())
}

func TestNewBook_Validate(t *testing.T) {
	two, four := 2, 4
	assert.NoError(t, NewBook{Title: "A", Copies: 3, Available: &two}.Validate())
	assert.ErrorIs(t, NewBook{Title: "A", Copies: 3, Available: &four}.Validate(), errs.ErrValidation)
	assert.ErrorIs(t, NewBook{Title: "  "}.Validate(), errs.ErrValidation)
	assert.ErrorIs(t, NewBook{Title: "A", Category: "Toddlers"}.Validate(), errs.ErrValidation)
	assert.ErrorIs(t, NewBook{Title: "A", Copies: -1}.Validate(), errs.ErrValidation)

	assert.ErrorIs(t, NewBook{Title: "A"}.ValidateForm(), errs.ErrValidation)
	assert.NoError(t, NewBook{Title: "A", Category: "Teens", Genres: []string{"Magic"}}.ValidateForm())
}

func TestPackage_Cost(t *testing.T) {
	p := &Package{Duration: 3, UnitCost: 99.5}
	assert.Equal(t, 298.5, p.Cost())
	assert.ErrorIs(t, NewPackage{HotelName: "Ritz"}.Validate(), errs.ErrValidation)
}
