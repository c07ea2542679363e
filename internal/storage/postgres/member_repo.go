package postgres

import (
	"context"
	"errors"
	"libraloan/internal/errs"
	"libraloan/internal/membership"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MemberRepo implements membership.Repository using PostgreSQL.
type MemberRepo struct{ db *DB }

// NewMemberRepo constructs a member repository.
func NewMemberRepo(db *DB) *MemberRepo { return &MemberRepo{db: db} }

// Create inserts the member and its credential together.
func (r *MemberRepo) Create(ctx context.Context, m *membership.Member, c *membership.Credential) error {
	const insMember = `
INSERT INTO members (id, email, name, avatar, role, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	const insCred = `INSERT INTO credentials (member_id, password_hash, salt) VALUES ($1, $2, $3)`

	err := r.db.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insMember, m.ID, m.Email, m.Name, m.Avatar, m.Role, m.CreatedAt); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, insCred, m.ID, c.PasswordHash, c.Salt)
		return err
	})
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

func (r *MemberRepo) GetByID(ctx context.Context, id uuid.UUID) (*membership.Member, error) {
	const q = `SELECT id, email, name, avatar, role, created_at FROM members WHERE id=$1`
	return scanMember(r.db.Pool.QueryRow(ctx, q, id))
}

func (r *MemberRepo) GetByEmail(ctx context.Context, email string) (*membership.Member, error) {
	const q = `SELECT id, email, name, avatar, role, created_at FROM members WHERE email=$1`
	return scanMember(r.db.Pool.QueryRow(ctx, q, email))
}

func (r *MemberRepo) GetCredential(ctx context.Context, memberID uuid.UUID) (*membership.Credential, error) {
	const q = `SELECT member_id, password_hash, salt FROM credentials WHERE member_id=$1`
	var c membership.Credential
	if err := r.db.Pool.QueryRow(ctx, q, memberID).Scan(&c.MemberID, &c.PasswordHash, &c.Salt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *MemberRepo) UpdateAvatar(ctx context.Context, id uuid.UUID, avatar string) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE members SET avatar=$2 WHERE id=$1`, id, avatar)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func scanMember(row pgx.Row) (*membership.Member, error) {
	var m membership.Member
	if err := row.Scan(&m.ID, &m.Email, &m.Name, &m.Avatar, &m.Role, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}
