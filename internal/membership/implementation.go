// internal/membership/implementation.go
package membership

import (
	"context"
	"errors"
	"fmt"
	"libraloan/internal/errs"
	"net/mail"
	"path"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	maxEmailLen    = 30
	minPasswordLen = 5
	maxPasswordLen = 20
)

// Config holds the membership settings taken from the application config.
type Config struct {
	SignKey     []byte
	TokenTTL    time.Duration
	AdminEmails []string
	// LoginEvery and LoginBurst bound login attempts per email.
	LoginEvery time.Duration
	LoginBurst int
}

// service implements the Service interface.
type service struct {
	repo     Repository
	signKey  []byte
	tokenTTL time.Duration
	admins   map[string]struct{}
	limiter  *keyedLimiter
	log      *zap.Logger
	now      func() time.Time
}

// NewService creates a new membership service instance.
func NewService(repo Repository, cfg Config, log *zap.Logger) Service {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.LoginEvery <= 0 {
		cfg.LoginEvery = time.Minute
	}
	if cfg.LoginBurst <= 0 {
		cfg.LoginBurst = 5 // 5 attempts per minute
	}
	admins := make(map[string]struct{}, len(cfg.AdminEmails))
	for _, e := range cfg.AdminEmails {
		admins[normalizeEmail(e)] = struct{}{}
	}
	return &service{
		repo:     repo,
		signKey:  cfg.SignKey,
		tokenTTL: cfg.TokenTTL,
		admins:   admins,
		limiter:  newKeyedLimiter(rate.Every(cfg.LoginEvery), cfg.LoginBurst),
		log:      log,
		now:      time.Now,
	}
}

// Register creates a new member.
func (s *service) Register(ctx context.Context, email, name, password string) (*Member, error) {
	email = normalizeEmail(email)
	if err := validateRegistration(email, password); err != nil {
		return nil, err
	}

	passwordHash, salt, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	member := &Member{
		ID:        uuid.New(),
		Email:     email,
		Name:      strings.TrimSpace(name),
		Role:      RoleMember,
		CreatedAt: s.now().UTC(),
	}
	if _, ok := s.admins[email]; ok {
		member.Role = RoleAdmin
	}
	credential := &Credential{
		MemberID:     member.ID,
		PasswordHash: passwordHash,
		Salt:         salt,
	}

	if err := s.repo.Create(ctx, member, credential); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return nil, errs.Rule(errs.ErrAlreadyExists, "An account for %s already exists.", email)
		}
		return nil, fmt.Errorf("failed to create member: %w", err)
	}

	s.log.Info("member registered", zap.String("member_id", member.ID.String()), zap.String("role", member.Role))
	return member, nil
}

// EnsureMember returns the member with the email, registering it first when
// absent. The bool reports whether a new member was created.
func (s *service) EnsureMember(ctx context.Context, email, name, password string) (*Member, bool, error) {
	member, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err == nil {
		return member, false, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to look up member: %w", err)
	}
	member, err = s.Register(ctx, email, name, password)
	if err != nil {
		return nil, false, err
	}
	return member, true, nil
}

// Authenticate verifies a member's credentials and issues an access token.
func (s *service) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if !s.limiter.allow(email) {
		return nil, errs.Rule(errs.ErrRateLimited, "Too many login attempts, try again later.")
	}

	invalid := errs.Rule(errs.ErrUnauthorized, "Invalid email or password.")

	member, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	credential, err := s.repo.GetCredential(ctx, member.ID)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	ok, err := verifyPassword(password, credential.Salt, credential.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	if !ok {
		return nil, invalid
	}

	token, exp, err := s.issueToken(member.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &Session{Member: member, Token: token, ExpiresAt: exp}, nil
}

// issueToken creates a signed HS256 JWT for the given member.
func (s *service) issueToken(memberID uuid.UUID) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.tokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   memberID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signKey)
	return signed, exp, err
}

// ParseToken validates an access token and returns the member id it names.
func (s *service) ParseToken(token string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.signKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", errs.ErrUnauthorized, err)
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", errs.ErrUnauthorized)
	}
	return id, nil
}

// GetMember retrieves a member by their ID.
func (s *service) GetMember(ctx context.Context, id uuid.UUID) (*Member, error) {
	member, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.Rule(errs.ErrNotFound, "Member with ID %s not found.", id)
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return member, nil
}

// SetAvatar stores the chosen avatar file name.
func (s *service) SetAvatar(ctx context.Context, id uuid.UUID, filename string) (*Member, error) {
	name := path.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == "/" {
		return nil, errs.Rule(errs.ErrValidation, "Choose an avatar.")
	}
	if err := s.repo.UpdateAvatar(ctx, id, name); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.Rule(errs.ErrNotFound, "Member with ID %s not found.", id)
		}
		return nil, fmt.Errorf("failed to update avatar: %w", err)
	}
	return s.GetMember(ctx, id)
}

func validateRegistration(email, password string) error {
	if email == "" {
		return errs.Rule(errs.ErrValidation, "Email is required.")
	}
	if utf8.RuneCountInString(email) > maxEmailLen {
		return errs.Rule(errs.ErrValidation, "Email must be at most %d characters.", maxEmailLen)
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return errs.Rule(errs.ErrValidation, "Invalid email.")
	}
	if n := utf8.RuneCountInString(password); n < minPasswordLen || n > maxPasswordLen {
		return errs.Rule(errs.ErrValidation, "Password must be %d to %d characters.", minPasswordLen, maxPasswordLen)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// keyedLimiter keeps one token bucket per key.
type keyedLimiter struct {
	mu    sync.Mutex
	limit rate.Limit
	burst int
	byKey map[string]*rate.Limiter
}

func newKeyedLimiter(limit rate.Limit, burst int) *keyedLimiter {
	return &keyedLimiter{limit: limit, burst: burst, byKey: make(map[string]*rate.Limiter)}
}

func (l *keyedLimiter) allow(key string) bool {
	l.mu.Lock()
	lim, ok := l.byKey[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.byKey[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
