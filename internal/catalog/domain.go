// internal/catalog/domain.go
package catalog

import (
	"fmt"
	"libraloan/internal/errs"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// CategoryAll selects every book when listing.
const CategoryAll = "All"

const maxTitleLen = 300

// Categories a book may be filed under.
var Categories = []string{"Children", "Teens", "Adult"}

// Genres offered on the add-book form.
var Genres = []string{
	"Animals", "Business", "Comics", "Communication", "Dark Academia",
	"Emotion", "Fantasy", "Fiction", "Friendship", "Graphic Novels",
	"Grief", "Historical Fiction", "Indigenous", "Leadership", "Magic",
	"Mental Health", "Nonfiction", "Personal Development", "Picture Books",
	"Poetry", "Productivity", "Psychology", "Romance", "School", "Self Help",
}

// Book represents a catalog title with a finite pool of physical copies.
type Book struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	URL         string    `json:"url,omitempty"`
	Description []string  `json:"description"`
	Authors     []string  `json:"authors"`
	Genres      []string  `json:"genres"`
	Pages       int       `json:"pages"`
	Copies      int       `json:"copies"`
	Available   int       `json:"available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsAvailable reports whether at least one copy can be lent out.
func (b *Book) IsAvailable() bool {
	return b.Available > 0
}

// BorrowedCount is the number of copies currently out on loan.
func (b *Book) BorrowedCount() int {
	return b.Copies - b.Available
}

// ShortDescription joins the first and last non-blank paragraphs.
func (b *Book) ShortDescription() string {
	parts := make([]string, 0, len(b.Description))
	for _, p := range b.Description {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return parts[0] + " ... " + parts[len(parts)-1]
}

// takeCopy decrements Available, refusing when nothing is free or the
// counters are already corrupt.
func (b *Book) takeCopy() error {
	if b.Available <= 0 {
		return errs.Rule(errs.ErrNoCopiesAvailable, "Cannot borrow '%s'. It has no available copies.", b.Title)
	}
	if b.Available > b.Copies {
		return errs.Rule(errs.ErrDataInconsistency,
			"Book '%s' has inconsistent counters (%d available of %d copies).", b.Title, b.Available, b.Copies)
	}
	b.Available--
	return nil
}

// putCopy increments Available, refusing when nothing is out on loan.
func (b *Book) putCopy() error {
	if b.Available >= b.Copies {
		return errs.Rule(errs.ErrAllCopiesAlreadyAvailable, "All copies of '%s' are already available.", b.Title)
	}
	if b.Available < 0 {
		return errs.Rule(errs.ErrDataInconsistency,
			"Book '%s' has inconsistent counters (%d available of %d copies).", b.Title, b.Available, b.Copies)
	}
	b.Available++
	return nil
}

// TakeCopy is the counter mutation applied by BorrowOne. Stores call it while
// holding the row, so the check and the write happen as one step.
func TakeCopy(b *Book) error { return b.takeCopy() }

// PutCopy is the counter mutation applied by ReturnOne.
func PutCopy(b *Book) error { return b.putCopy() }

// NewBook is the validated input for adding a book to the catalog.
// Available nil means "all copies on the shelf".
type NewBook struct {
	Title       string
	Category    string
	URL         string
	Description []string
	Authors     []string
	Genres      []string
	Pages       int
	Copies      int
	Available   *int
}

// Validate checks the fields every source (form, import, seed) must satisfy.
func (n NewBook) Validate() error {
	title := strings.TrimSpace(n.Title)
	if title == "" {
		return errs.Rule(errs.ErrValidation, "Title is required.")
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return errs.Rule(errs.ErrValidation, "Title must be at most %d characters.", maxTitleLen)
	}
	if n.Category != "" && !slices.Contains(Categories, n.Category) {
		return errs.Rule(errs.ErrValidation, "Unknown category %q.", n.Category)
	}
	if n.Pages < 0 {
		return errs.Rule(errs.ErrValidation, "Number of pages cannot be negative.")
	}
	if n.Copies < 0 {
		return errs.Rule(errs.ErrValidation, "Number of copies cannot be negative.")
	}
	if n.Available != nil && (*n.Available < 0 || *n.Available > n.Copies) {
		return errs.Rule(errs.ErrValidation, "Available copies must be between 0 and %d.", n.Copies)
	}
	return nil
}

// ValidateForm adds the stricter admin form rules on top of Validate.
func (n NewBook) ValidateForm() error {
	if err := n.Validate(); err != nil {
		return err
	}
	if n.Category == "" {
		return errs.Rule(errs.ErrValidation, "Choose a category.")
	}
	for _, g := range n.Genres {
		if !slices.Contains(Genres, g) {
			return errs.Rule(errs.ErrValidation, "Unknown genre %q.", g)
		}
	}
	return nil
}

func (n NewBook) build(now time.Time) *Book {
	available := n.Copies
	if n.Available != nil {
		available = *n.Available
	}
	return &Book{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(n.Title),
		Category:    n.Category,
		URL:         n.URL,
		Description: nonNil(n.Description),
		Authors:     nonNil(n.Authors),
		Genres:      nonNil(n.Genres),
		Pages:       n.Pages,
		Copies:      n.Copies,
		Available:   available,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Package is a hotel stay offered alongside the library catalog.
type Package struct {
	ID          uuid.UUID `json:"id"`
	HotelName   string    `json:"hotel_name"`
	Duration    int       `json:"duration"`
	UnitCost    float64   `json:"unit_cost"`
	ImageURL    string    `json:"image_url"`
	Description string    `json:"description"`
}

// Cost is the price of the whole stay.
func (p *Package) Cost() float64 {
	return p.UnitCost * float64(p.Duration)
}

// NewPackage is the validated input for adding a package.
type NewPackage struct {
	HotelName   string
	Duration    int
	UnitCost    float64
	ImageURL    string
	Description string
}

// Validate mirrors the column limits of the package collection.
func (n NewPackage) Validate() error {
	switch {
	case strings.TrimSpace(n.HotelName) == "":
		return errs.Rule(errs.ErrValidation, "Hotel name is required.")
	case utf8.RuneCountInString(n.HotelName) > 30:
		return errs.Rule(errs.ErrValidation, "Hotel name must be at most 30 characters.")
	case n.Duration <= 0:
		return errs.Rule(errs.ErrValidation, "Duration must be positive.")
	case n.UnitCost < 0:
		return errs.Rule(errs.ErrValidation, "Unit cost cannot be negative.")
	case utf8.RuneCountInString(n.Description) > 500:
		return errs.Rule(errs.ErrValidation, "Description must be at most 500 characters.")
	}
	return nil
}

// ImportReport summarises a bulk insert.
type ImportReport struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

func (r ImportReport) String() string {
	return fmt.Sprintf("%d inserted, %d skipped", r.Inserted, r.Skipped)
}
