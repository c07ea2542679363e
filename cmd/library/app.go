package main

import (
	"context"
	"fmt"
	"libraloan/internal/audit"
	"libraloan/internal/catalog"
	"libraloan/internal/circulation"
	"libraloan/internal/config"
	"libraloan/internal/membership"
	"libraloan/internal/storage/memory"
	"libraloan/internal/storage/postgres"
	"libraloan/internal/upload"

	"go.uber.org/zap"
)

// application is the wired set of services for one process.
type application struct {
	catalog  catalog.Service
	loans    circulation.Service
	members  membership.Service
	importer *upload.Importer
	auditor  *audit.Auditor
	ping     func(context.Context) error
	close    func()
}

type stores struct {
	books    catalog.BookRepository
	packages catalog.PackageRepository
	loans    circulation.Repository
	members  membership.Repository
	journal  circulation.Journal
	open     audit.OpenLoans
}

func buildApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*application, error) {
	app := &application{close: func() {}}

	var st stores
	switch cfg.Storage {
	case config.StorageMemory:
		log.Warn("using in-memory storage; data is lost on exit")
		loans := memory.NewLoanRepo()
		st = stores{
			books:    memory.NewBookRepo(),
			packages: memory.NewPackageRepo(),
			loans:    loans,
			members:  memory.NewMemberRepo(),
			journal:  memory.NewJournal(),
			open:     loans,
		}
	default:
		db, err := postgres.New(ctx, cfg.DatabaseDSN, postgres.WithMaxConns(cfg.DatabaseMaxConns))
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		app.ping = db.Ping
		app.close = db.Close
		loans := postgres.NewLoanRepo(db)
		st = stores{
			books:    postgres.NewBookRepo(db),
			packages: postgres.NewPackageRepo(db),
			loans:    loans,
			members:  postgres.NewMemberRepo(db),
			journal:  postgres.NewJournal(db),
			open:     loans,
		}
	}

	app.catalog = catalog.NewService(st.books, st.packages, log.Named("catalog"))
	app.members = membership.NewService(st.members, membership.Config{
		SignKey:     []byte(cfg.JWTKey),
		TokenTTL:    cfg.TokenTTL,
		AdminEmails: cfg.AdminEmails,
	}, log.Named("membership"))
	app.loans = circulation.NewService(st.loans, app.catalog,
		circulation.WithLogger(log.Named("circulation")),
		circulation.WithJournal(st.journal),
	)
	app.importer = upload.NewImporter(app.catalog, app.members, log.Named("upload"))
	app.auditor = audit.New(app.catalog, st.open, log.Named("audit"))
	return app, nil
}
