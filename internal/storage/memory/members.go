package memory

import (
	"context"
	"libraloan/internal/errs"
	"libraloan/internal/membership"
	"sync"

	"github.com/google/uuid"
)

// MemberRepo implements membership.Repository.
type MemberRepo struct {
	mu          sync.Mutex
	byID        map[uuid.UUID]*membership.Member
	byEmail     map[string]uuid.UUID
	credentials map[uuid.UUID]*membership.Credential
}

// NewMemberRepo constructs an empty member repository.
func NewMemberRepo() *MemberRepo {
	return &MemberRepo{
		byID:        make(map[uuid.UUID]*membership.Member),
		byEmail:     make(map[string]uuid.UUID),
		credentials: make(map[uuid.UUID]*membership.Credential),
	}
}

func (r *MemberRepo) Create(_ context.Context, m *membership.Member, c *membership.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[m.Email]; ok {
		return errs.ErrAlreadyExists
	}
	mc, cc := *m, *c
	r.byID[m.ID] = &mc
	r.byEmail[m.Email] = m.ID
	r.credentials[m.ID] = &cc
	return nil
}

func (r *MemberRepo) GetByID(_ context.Context, id uuid.UUID) (*membership.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *m
	return &c, nil
}

func (r *MemberRepo) GetByEmail(_ context.Context, email string) (*membership.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *r.byID[id]
	return &c, nil
}

func (r *MemberRepo) GetCredential(_ context.Context, memberID uuid.UUID) (*membership.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cred, ok := r.credentials[memberID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *cred
	return &c, nil
}

func (r *MemberRepo) UpdateAvatar(_ context.Context, id uuid.UUID, avatar string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	m.Avatar = avatar
	return nil
}
