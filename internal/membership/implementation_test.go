package membership_test

import (
	"context"
	"libraloan/internal/errs"
	"libraloan/internal/membership"
	"libraloan/internal/storage/memory"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var signKey = []byte("test-signing-key")

func newService(t *testing.T, cfg membership.Config) (membership.Service, *memory.MemberRepo) {
	t.Helper()
	repo := memory.NewMemberRepo()
	if cfg.SignKey == nil {
		cfg.SignKey = signKey
	}
	return membership.NewService(repo, cfg, nil), repo
}

func TestRegister(t *testing.T) {
	svc, _ := newService(t, membership.Config{AdminEmails: []string{"Boss@Lib.io"}})
	ctx := context.Background()

	m, err := svc.Register(ctx, "  Alice@Example.com ", " Alice ", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", m.Email)
	assert.Equal(t, "Alice", m.Name)
	assert.Equal(t, membership.RoleMember, m.Role)
	assert.NotEqual(t, uuid.Nil, m.ID)

	admin, err := svc.Register(ctx, "boss@lib.io", "Boss", "hunter2")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())

	_, err = svc.Register(ctx, "alice@example.com", "Other", "hunter2")
	require.ErrorIs(t, err, errs.ErrAlreadyExists)
	assert.Equal(t, "An account for alice@example.com already exists.", errs.Message(err))
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newService(t, membership.Config{})

	tests := []struct {
		name     string
		email    string
		password string
		message  string
	}{
		{name: "missing email", email: " ", password: "hunter2", message: "Email is required."},
		{name: "long email", email: "someone.with.a.long.name@example.com", password: "hunter2", message: "Email must be at most 30 characters."},
		{name: "malformed email", email: "not-an-email", password: "hunter2", message: "Invalid email."},
		{name: "display name form", email: "Al <al@x.io>", password: "hunter2", message: "Invalid email."},
		{name: "short password", email: "al@x.io", password: "abcd", message: "Password must be 5 to 20 characters."},
		{name: "long password", email: "al@x.io", password: "abcdefghijklmnopqrstu", message: "Password must be 5 to 20 characters."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.email, "Al", tt.password)
			require.ErrorIs(t, err, errs.ErrValidation)
			assert.Equal(t, tt.message, errs.Message(err))
		})
	}
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newService(t, membership.Config{TokenTTL: time.Hour})
	ctx := context.Background()
	m, err := svc.Register(ctx, "alice@example.com", "Alice", "hunter2")
	require.NoError(t, err)

	sess, err := svc.Authenticate(ctx, "ALICE@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, m.ID, sess.Member.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, time.Minute)

	id, err := svc.ParseToken(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, m.ID, id)

	_, err = svc.Authenticate(ctx, "alice@example.com", "wrong-pass")
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	assert.Equal(t, "Invalid email or password.", errs.Message(err))

	_, err = svc.Authenticate(ctx, "nobody@example.com", "hunter2")
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	assert.Equal(t, "Invalid email or password.", errs.Message(err), "unknown emails look like bad passwords")
}

func TestAuthenticate_RateLimited(t *testing.T) {
	svc, _ := newService(t, membership.Config{LoginEvery: time.Hour, LoginBurst: 2})
	ctx := context.Background()
	_, err := svc.Register(ctx, "alice@example.com", "Alice", "hunter2")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = svc.Authenticate(ctx, "alice@example.com", "wrong-pass")
		require.ErrorIs(t, err, errs.ErrUnauthorized)
	}
	_, err = svc.Authenticate(ctx, "alice@example.com", "hunter2")
	require.ErrorIs(t, err, errs.ErrRateLimited)

	// Buckets are per email.
	_, err = svc.Authenticate(ctx, "bob@example.com", "hunter2")
	require.ErrorIs(t, err, errs.ErrUnauthorized)
}

func TestParseToken_Rejects(t *testing.T) {
	svc, _ := newService(t, membership.Config{})
	sub := uuid.NewString()

	sign := func(key []byte, method jwt.SigningMethod, claims jwt.RegisteredClaims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	fresh := jwt.RegisteredClaims{Subject: sub, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}

	tests := map[string]string{
		"garbage":     "not.a.token",
		"expired":     sign(signKey, jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: sub, ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))}),
		"foreign key": sign([]byte("someone-else"), jwt.SigningMethodHS256, fresh),
		"other alg":   sign(signKey, jwt.SigningMethodHS512, fresh),
		"bad subject": sign(signKey, jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "member-7", ExpiresAt: fresh.ExpiresAt}),
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ParseToken(token)
			require.ErrorIs(t, err, errs.ErrUnauthorized)
		})
	}
}

func TestEnsureMember(t *testing.T) {
	svc, _ := newService(t, membership.Config{})
	ctx := context.Background()

	m, created, err := svc.EnsureMember(ctx, "carol@example.com", "Carol", "hunter2")
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := svc.EnsureMember(ctx, "Carol@Example.com", "Someone", "different")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, m.ID, again.ID)
	assert.Equal(t, "Carol", again.Name)
}

func TestSetAvatar(t *testing.T) {
	svc, _ := newService(t, membership.Config{})
	ctx := context.Background()
	m, err := svc.Register(ctx, "alice@example.com", "Alice", "hunter2")
	require.NoError(t, err)

	updated, err := svc.SetAvatar(ctx, m.ID, "../../etc/owl.png")
	require.NoError(t, err)
	assert.Equal(t, "owl.png", updated.Avatar)

	_, err = svc.SetAvatar(ctx, m.ID, "  ")
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = svc.SetAvatar(ctx, uuid.New(), "owl.png")
	require.ErrorIs(t, err, errs.ErrNotFound)
}
