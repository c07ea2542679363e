package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracedPool opens a client span around every statement sent through the pool.
type tracedPool struct {
	PgxPool
	tracer trace.Tracer
}

func newTracedPool(p PgxPool) *tracedPool {
	return &tracedPool{PgxPool: p, tracer: otel.Tracer("libraloan/postgres")}
}

func (p *tracedPool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	ctx, span := p.start(ctx, "postgres.exec", sql)
	tag, err := p.PgxPool.Exec(ctx, sql, args...)
	if err == nil {
		span.SetAttributes(attribute.Int64("db.rows_affected", tag.RowsAffected()))
	}
	finish(span, err)
	return tag, err
}

func (p *tracedPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	ctx, span := p.start(ctx, "postgres.query", sql)
	rows, err := p.PgxPool.Query(ctx, sql, args...)
	finish(span, err)
	return rows, err
}

// QueryRow spans only the round trip; scan errors surface to the caller.
func (p *tracedPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	ctx, span := p.start(ctx, "postgres.query_row", sql)
	defer span.End()
	return p.PgxPool.QueryRow(ctx, sql, args...)
}

func (p *tracedPool) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	ctx, span := p.start(ctx, "postgres.begin", "BEGIN")
	tx, err := p.PgxPool.BeginTx(ctx, opts)
	finish(span, err)
	return tx, err
}

func (p *tracedPool) start(ctx context.Context, name, sql string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.statement", statement(sql)),
		),
	)
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// statement collapses whitespace so multi-line queries read well in a trace view.
func statement(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}
