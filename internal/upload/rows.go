// Package upload turns CSV files into catalog and membership records.
package upload

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"libraloan/internal/catalog"
	"libraloan/internal/errs"
	"strconv"
	"strings"
)

// Data types accepted by Import, named as on the upload form.
const (
	KindBooks    = "Books"
	KindUsers    = "Users"
	KindPackages = "Package"
)

// MemberRow is one line of a Users file.
type MemberRow struct {
	Email    string
	Name     string
	Password string
}

// record gives field access by header name.
type record struct {
	line   int
	header map[string]int
	fields []string
}

func (r record) get(name string) string {
	i, ok := r.header[name]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

func (r record) number(name string) (int, error) {
	v := r.get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, r.errorf("%s must be a whole number, got %q", name, v)
	}
	return n, nil
}

func (r record) decimal(name string) (float64, error) {
	v := r.get(name)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, r.errorf("%s must be a number, got %q", name, v)
	}
	return f, nil
}

func (r record) errorf(format string, args ...any) error {
	return errs.Rule(errs.ErrValidation, "Line %d: %s.", r.line, fmt.Sprintf(format, args...))
}

// readRecords reads a header line followed by data lines and checks that
// every required column is present.
func readRecords(src io.Reader, required ...string) ([]record, error) {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errs.Rule(errs.ErrValidation, "The file is empty.")
		}
		return nil, errs.Rule(errs.ErrValidation, "Unreadable CSV header: %v.", err)
	}
	header := make(map[string]int, len(head))
	for i, h := range head {
		header[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))] = i
	}
	for _, col := range required {
		if _, ok := header[col]; !ok {
			return nil, errs.Rule(errs.ErrValidation, "Missing column %q.", col)
		}
	}

	var out []record
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, errs.Rule(errs.ErrValidation, "Unreadable CSV: %v.", err)
		}
		line, _ := cr.FieldPos(0)
		out = append(out, record{line: line, header: header, fields: fields})
	}
}

func splitList(v, sep string) []string {
	out := []string{}
	for _, p := range strings.Split(v, sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseBooks reads a Books file. Description paragraphs are separated by
// '|', authors and genres by ';'. An empty available column means every copy
// is on the shelf.
func ParseBooks(src io.Reader) ([]catalog.NewBook, error) {
	recs, err := readRecords(src, "title")
	if err != nil {
		return nil, err
	}
	out := make([]catalog.NewBook, 0, len(recs))
	for _, r := range recs {
		pages, err := r.number("pages")
		if err != nil {
			return nil, err
		}
		copies, err := r.number("copies")
		if err != nil {
			return nil, err
		}
		nb := catalog.NewBook{
			Title:       r.get("title"),
			Category:    r.get("category"),
			URL:         r.get("url"),
			Description: splitList(r.get("description"), "|"),
			Authors:     splitList(r.get("authors"), ";"),
			Genres:      splitList(r.get("genres"), ";"),
			Pages:       pages,
			Copies:      copies,
		}
		if r.get("available") != "" {
			available, err := r.number("available")
			if err != nil {
				return nil, err
			}
			nb.Available = &available
		}
		if err := nb.Validate(); err != nil {
			return nil, r.errorf("%s", strings.TrimSuffix(errs.Message(err), "."))
		}
		out = append(out, nb)
	}
	return out, nil
}

// ParseMembers reads a Users file.
func ParseMembers(src io.Reader) ([]MemberRow, error) {
	recs, err := readRecords(src, "email", "password")
	if err != nil {
		return nil, err
	}
	out := make([]MemberRow, 0, len(recs))
	for _, r := range recs {
		row := MemberRow{Email: r.get("email"), Name: r.get("name"), Password: r.get("password")}
		if row.Email == "" || row.Password == "" {
			return nil, r.errorf("email and password are required")
		}
		out = append(out, row)
	}
	return out, nil
}

// ParsePackages reads a Package file.
func ParsePackages(src io.Reader) ([]catalog.NewPackage, error) {
	recs, err := readRecords(src, "hotel_name", "duration", "unit_cost")
	if err != nil {
		return nil, err
	}
	out := make([]catalog.NewPackage, 0, len(recs))
	for _, r := range recs {
		duration, err := r.number("duration")
		if err != nil {
			return nil, err
		}
		cost, err := r.decimal("unit_cost")
		if err != nil {
			return nil, err
		}
		np := catalog.NewPackage{
			HotelName:   r.get("hotel_name"),
			Duration:    duration,
			UnitCost:    cost,
			ImageURL:    r.get("image_url"),
			Description: r.get("description"),
		}
		if err := np.Validate(); err != nil {
			return nil, r.errorf("%s", strings.TrimSuffix(errs.Message(err), "."))
		}
		out = append(out, np)
	}
	return out, nil
}
