package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"libraloan/internal/catalog"
	"libraloan/internal/errs"
	"libraloan/internal/membership"

	"go.uber.org/zap"
)

// Report counts what an import did.
type Report = catalog.ImportReport

// Catalog is the part of the catalog service an import writes to.
type Catalog interface {
	ImportBooks(ctx context.Context, books []catalog.NewBook) (catalog.ImportReport, error)
	AddPackage(ctx context.Context, in catalog.NewPackage) (*catalog.Package, error)
}

// Members is the part of the membership service an import writes to.
type Members interface {
	EnsureMember(ctx context.Context, email, name, password string) (*membership.Member, bool, error)
}

// Importer loads uploaded CSV files. Rows that already exist are skipped.
type Importer struct {
	catalog Catalog
	members Members
	log     *zap.Logger
}

// NewImporter constructs an importer.
func NewImporter(c Catalog, m Members, log *zap.Logger) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{catalog: c, members: m, log: log}
}

// Import parses src as the given kind and stores every row.
func (im *Importer) Import(ctx context.Context, kind string, src io.Reader) (Report, error) {
	var (
		report Report
		err    error
	)
	switch kind {
	case KindBooks:
		report, err = im.importBooks(ctx, src)
	case KindUsers:
		report, err = im.importMembers(ctx, src)
	case KindPackages:
		report, err = im.importPackages(ctx, src)
	default:
		return Report{}, errs.Rule(errs.ErrValidation, "Unsupported data type %q.", kind)
	}
	if err != nil {
		return report, err
	}
	im.log.Info("upload imported", zap.String("kind", kind),
		zap.Int("inserted", report.Inserted), zap.Int("skipped", report.Skipped))
	return report, nil
}

func (im *Importer) importBooks(ctx context.Context, src io.Reader) (Report, error) {
	books, err := ParseBooks(src)
	if err != nil {
		return Report{}, err
	}
	return im.catalog.ImportBooks(ctx, books)
}

func (im *Importer) importMembers(ctx context.Context, src io.Reader) (Report, error) {
	rows, err := ParseMembers(src)
	if err != nil {
		return Report{}, err
	}
	var report Report
	for _, row := range rows {
		_, created, err := im.members.EnsureMember(ctx, row.Email, row.Name, row.Password)
		if err != nil {
			return report, fmt.Errorf("member %s: %w", row.Email, err)
		}
		if created {
			report.Inserted++
		} else {
			report.Skipped++
		}
	}
	return report, nil
}

func (im *Importer) importPackages(ctx context.Context, src io.Reader) (Report, error) {
	rows, err := ParsePackages(src)
	if err != nil {
		return Report{}, err
	}
	var report Report
	for _, p := range rows {
		_, err := im.catalog.AddPackage(ctx, p)
		switch {
		case err == nil:
			report.Inserted++
		case errors.Is(err, errs.ErrAlreadyExists):
			report.Skipped++
		default:
			return report, fmt.Errorf("package %s: %w", p.HotelName, err)
		}
	}
	return report, nil
}
