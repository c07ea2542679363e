package upload

import (
	"libraloan/internal/errs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBooks(t *testing.T) {
	src := `title,category,url,description,authors,genres,pages,copies,available
"Dune, Deluxe",Adult,http://x/dune.jpg,First para|Second para|Last para,Frank Herbert,Fiction;Fantasy,612,3,
Matilda,Children,,One,Roald Dahl;Quentin Blake,Fiction,240,2,1
`
	books, err := ParseBooks(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, books, 2)

	assert.Equal(t, "Dune, Deluxe", books[0].Title)
	assert.Equal(t, []string{"First para", "Second para", "Last para"}, books[0].Description)
	assert.Equal(t, []string{"Fiction", "Fantasy"}, books[0].Genres)
	assert.Equal(t, 612, books[0].Pages)
	assert.Nil(t, books[0].Available)

	assert.Equal(t, []string{"Roald Dahl", "Quentin Blake"}, books[1].Authors)
	require.NotNil(t, books[1].Available)
	assert.Equal(t, 1, *books[1].Available)
}

func TestParseBooks_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{name: "empty", src: "", want: "The file is empty."},
		{name: "missing title column", src: "name,copies\nx,1\n", want: `Missing column "title".`},
		{name: "bad number", src: "title,copies\nA,1\nB,two\n", want: `Line 3: copies must be a whole number, got "two".`},
		{name: "available above copies", src: "title,copies,available\nA,1,2\n", want: "Line 2: Available copies must be between 0 and 1."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBooks(strings.NewReader(tt.src))
			require.ErrorIs(t, err, errs.ErrValidation)
			assert.Equal(t, tt.want, errs.Message(err))
		})
	}
}

func TestParseBooks_ByteOrderMark(t *testing.T) {
	books, err := ParseBooks(strings.NewReader("\uFEFFtitle,copies\nDune,2\n"))
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Dune", books[0].Title)
	assert.Equal(t, 2, books[0].Copies)
}

func TestParseMembers(t *testing.T) {
	rows, err := ParseMembers(strings.NewReader("email,password,name\na@b.io,secret,Ann\n"))
	require.NoError(t, err)
	assert.Equal(t, []MemberRow{{Email: "a@b.io", Name: "Ann", Password: "secret"}}, rows)

	_, err = ParseMembers(strings.NewReader("email,password,name\n,secret,Ann\n"))
	assert.Equal(t, "Line 2: email and password are required.", errs.Message(err))
}

func TestParsePackages(t *testing.T) {
	src := "hotel_name,duration,unit_cost,image_url,description\nShangri-La,3,120.5,img.png,Sea view\n"
	rows, err := ParsePackages(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 120.5, rows[0].UnitCost)
	assert.Equal(t, 3, rows[0].Duration)
}
