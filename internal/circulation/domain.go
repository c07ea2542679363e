// internal/circulation/domain.go
package circulation

import (
	"time"

	"github.com/google/uuid"
)

// DefaultDueDays is the loan period used when none is configured.
const DefaultDueDays = 14

const day = 24 * time.Hour

// Loan links one borrower to one book until the copy is returned.
// BorrowerID and BookID are references; neither entity is owned by the loan.
type Loan struct {
	ID         uuid.UUID  `json:"id"`
	BorrowerID uuid.UUID  `json:"borrower_id"`
	BookID     uuid.UUID  `json:"book_id"`
	BorrowDate time.Time  `json:"borrow_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
	RenewCount int        `json:"renew_count"`
	CreatedAt  time.Time  `json:"created_at"`
}

// IsReturned reports whether the loan is closed.
func (l *Loan) IsReturned() bool {
	return l.ReturnDate != nil
}

// IsOpen reports whether the copy is still out with the borrower.
func (l *Loan) IsOpen() bool {
	return l.ReturnDate == nil
}

// DueDate is the borrow date plus the loan period.
func (l *Loan) DueDate(dueDays int) time.Time {
	return l.BorrowDate.AddDate(0, 0, dueDays)
}

// IsOverdue reports whether an open loan has passed its due date at now.
// Closed loans are never overdue.
func (l *Loan) IsOverdue(now time.Time, dueDays int) bool {
	if l.IsReturned() {
		return false
	}
	return now.After(l.DueDate(dueDays))
}

// DaysBorrowed counts whole days from borrow to return, or to now while open.
func (l *Loan) DaysBorrowed(now time.Time) int {
	end := now
	if l.ReturnDate != nil {
		end = *l.ReturnDate
	}
	d := end.Sub(l.BorrowDate)
	days := int(d / day)
	if d < 0 && d%day != 0 {
		days--
	}
	return days
}

// Result is what a successful lifecycle operation hands to the presentation layer.
type Result struct {
	Loan    *Loan  `json:"loan,omitempty"`
	Message string `json:"message"`
}

// Event types written to the loan journal.
const (
	EventLoanCreated  = "LoanCreated"
	EventLoanRenewed  = "LoanRenewed"
	EventLoanReturned = "LoanReturned"
	EventLoanDeleted  = "LoanDeleted"
)

// Event is a journal entry describing one loan state change.
type Event struct {
	Type       string    `json:"type"`
	LoanID     uuid.UUID `json:"loan_id"`
	BorrowerID uuid.UUID `json:"borrower_id"`
	BookID     uuid.UUID `json:"book_id"`
	RenewCount int       `json:"renew_count"`
	OccurredAt time.Time `json:"occurred_at"`
}

func newEvent(typ string, l *Loan, at time.Time) Event {
	return Event{
		Type:       typ,
		LoanID:     l.ID,
		BorrowerID: l.BorrowerID,
		BookID:     l.BookID,
		RenewCount: l.RenewCount,
		OccurredAt: at,
	}
}
