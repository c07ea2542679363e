// internal/audit/audit.go
//
// Package audit verifies that the book counters agree with the loan table.
// Each check is a metric measured over one snapshot and compared against a
// threshold; a run reports every violated check and every drifting book.
package audit

import (
	"context"
	"fmt"
	"libraloan/internal/catalog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Books lists the catalog.
type Books interface {
	ListBooks(ctx context.Context, category string) ([]*catalog.Book, error)
}

// OpenLoans counts unreturned loans per book.
type OpenLoans interface {
	CountOpenByBook(ctx context.Context) (map[uuid.UUID]int, error)
}

// Threshold is the condition a healthy metric value satisfies.
type Threshold struct {
	Operator string // >, <, >=, <=, ==
	Value    float64
}

// Check measures one property of a snapshot.
type Check struct {
	Name      string
	Measure   func(*Snapshot) float64
	Threshold Threshold
}

// Snapshot is the state a run inspects.
type Snapshot struct {
	Books []*catalog.Book
	Open  map[uuid.UUID]int
}

// Drift kinds.
const (
	// DriftSurplus means more copies are on the shelf than the open loans allow.
	DriftSurplus = "surplus"
	// DriftUnaccounted means copies are out with no loan on record. Books
	// imported with available below copies start this way.
	DriftUnaccounted = "unaccounted"
)

// Drift describes one book whose counters disagree with its open loans.
type Drift struct {
	Kind      string    `json:"kind"`
	BookID    uuid.UUID `json:"book_id"`
	Title     string    `json:"title"`
	Copies    int       `json:"copies"`
	Available int       `json:"available"`
	OpenLoans int       `json:"open_loans"`
}

// Expected is the available count implied by the open loans.
func (d Drift) Expected() int { return d.Copies - d.OpenLoans }

type Violation struct {
	Check    string  `json:"check"`
	Operator string  `json:"operator"`
	Expected float64 `json:"expected"`
	Actual   float64 `json:"actual"`
}

// Result captures one run.
type Result struct {
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
	Duration   time.Duration `json:"duration"`
	Books      int           `json:"books"`
	Healthy    bool          `json:"healthy"`
	Violations []Violation   `json:"violations"`
	Drifts     []Drift       `json:"drifts"`
}

// DefaultChecks are the checks every run evaluates unless replaced.
func DefaultChecks() []Check {
	return []Check{
		{
			Name: "books_with_surplus_copies",
			Measure: func(s *Snapshot) float64 {
				n := 0
				for _, d := range drifts(s) {
					if d.Kind == DriftSurplus {
						n++
					}
				}
				return float64(n)
			},
			Threshold: Threshold{Operator: "==", Value: 0},
		},
		{
			Name: "books_out_of_range",
			Measure: func(s *Snapshot) float64 {
				n := 0
				for _, b := range s.Books {
					if b.Available < 0 || b.Available > b.Copies {
						n++
					}
				}
				return float64(n)
			},
			Threshold: Threshold{Operator: "==", Value: 0},
		},
		{
			Name: "open_loans_for_missing_books",
			Measure: func(s *Snapshot) float64 {
				known := make(map[uuid.UUID]struct{}, len(s.Books))
				for _, b := range s.Books {
					known[b.ID] = struct{}{}
				}
				n := 0
				for id, open := range s.Open {
					if _, ok := known[id]; !ok {
						n += open
					}
				}
				return float64(n)
			},
			Threshold: Threshold{Operator: "==", Value: 0},
		},
	}
}

// Auditor runs checks against live storage.
type Auditor struct {
	books  Books
	loans  OpenLoans
	checks []Check
	tracer trace.Tracer
	log    *zap.Logger
	now    func() time.Time
}

// New builds an auditor with the default checks plus any extra ones.
func New(books Books, loans OpenLoans, log *zap.Logger, extra ...Check) *Auditor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Auditor{
		books:  books,
		loans:  loans,
		checks: append(DefaultChecks(), extra...),
		tracer: otel.Tracer("libraloan/audit"),
		log:    log,
		now:    time.Now,
	}
}

// Run takes a snapshot and evaluates every check against it. The snapshot is
// not taken under a lock, so a loan opened mid-run can show up as transient drift.
func (a *Auditor) Run(ctx context.Context) (*Result, error) {
	ctx, span := a.tracer.Start(ctx, "audit.run")
	defer span.End()

	result := &Result{StartTime: a.now(), Violations: []Violation{}, Drifts: []Drift{}}

	span.AddEvent("taking_snapshot")
	books, err := a.books.ListBooks(ctx, "")
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list books: %w", err)
	}
	open, err := a.loans.CountOpenByBook(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("count open loans: %w", err)
	}
	snap := &Snapshot{Books: books, Open: open}
	result.Books = len(books)

	span.AddEvent("evaluating_checks")
	for _, c := range a.checks {
		value := c.Measure(snap)
		if !evaluateThreshold(value, c.Threshold) {
			result.Violations = append(result.Violations, Violation{
				Check:    c.Name,
				Operator: c.Threshold.Operator,
				Expected: c.Threshold.Value,
				Actual:   value,
			})
		}
	}

	result.Drifts = drifts(snap)
	for _, d := range result.Drifts {
		fields := []zap.Field{
			zap.String("kind", d.Kind),
			zap.String("book_id", d.BookID.String()),
			zap.String("title", d.Title),
			zap.Int("available", d.Available),
			zap.Int("expected", d.Expected()),
		}
		if d.Kind == DriftSurplus {
			a.log.Warn("counter drift", fields...)
		} else {
			a.log.Info("counter drift", fields...)
		}
	}

	result.Healthy = len(result.Violations) == 0
	result.EndTime = a.now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	span.SetAttributes(
		attribute.Bool("healthy", result.Healthy),
		attribute.Int("violations", len(result.Violations)),
		attribute.Int("drifts", len(result.Drifts)),
	)
	return result, nil
}

func drifts(s *Snapshot) []Drift {
	out := make([]Drift, 0)
	for _, b := range s.Books {
		open := s.Open[b.ID]
		lent := b.Copies - b.Available
		if lent != open {
			kind := DriftUnaccounted
			if lent < open {
				kind = DriftSurplus
			}
			out = append(out, Drift{
				Kind:      kind,
				BookID:    b.ID,
				Title:     b.Title,
				Copies:    b.Copies,
				Available: b.Available,
				OpenLoans: open,
			})
		}
	}
	return out
}

func evaluateThreshold(value float64, t Threshold) bool {
	switch t.Operator {
	case ">":
		return value > t.Value
	case "<":
		return value < t.Value
	case ">=":
		return value >= t.Value
	case "<=":
		return value <= t.Value
	case "==":
		return value == t.Value
	default:
		return false
	}
}
