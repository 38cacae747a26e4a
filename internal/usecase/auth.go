package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/aq2208/gorder-oms/internal/entity"
	"github.com/aq2208/gorder-oms/internal/security"
	"github.com/google/uuid"
)

// SessionStore tracks tokens revoked before their expiry.
type SessionStore interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type RegisterInput struct {
	Name, Email, Password string
}

type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

type Auth struct {
	store    Store
	tokens   *security.TokenIssuer
	sessions SessionStore // optional
	now      Clock
}

func NewAuth(store Store, tokens *security.TokenIssuer, sessions SessionStore) *Auth {
	return &Auth{store: store, tokens: tokens, sessions: sessions, now: time.Now}
}

// Register creates an admin user; every registered user administers the shop.
func (uc *Auth) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, &domain.ValidationError{Field: "credentials", Msg: "name, email, and password are required"}
	}
	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &domain.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		CreatedAt:    uc.now(),
	}

	err = uc.store.Tx(ctx, func(ctx context.Context, r Repos) error {
		_, err := r.Users.GetByEmail(ctx, u.Email)
		if err == nil {
			return domain.ErrUserExists
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return r.Users.Create(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	return uc.issue(u)
}

func (uc *Auth) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, &domain.ValidationError{Field: "credentials", Msg: "email and password are required"}
	}
	u, err := uc.store.Repos().Users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	ok, err := security.CheckPassword(u.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("check password: %w", err)
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}
	return uc.issue(u)
}

// Authenticate resolves a bearer token into the caller's principal.
func (uc *Auth) Authenticate(ctx context.Context, raw string) (security.Principal, error) {
	p, err := uc.tokens.Parse(raw)
	if err != nil {
		return security.Principal{}, err
	}
	if uc.sessions != nil {
		revoked, err := uc.sessions.IsRevoked(ctx, p.TokenID)
		if err != nil {
			return security.Principal{}, fmt.Errorf("session lookup: %w", err)
		}
		if revoked {
			return security.Principal{}, domain.ErrSessionExpired
		}
	}
	if _, err := uc.store.Repos().Users.GetByID(ctx, p.UserID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return security.Principal{}, domain.ErrUnauthorized
		}
		return security.Principal{}, err
	}
	return p, nil
}

func (uc *Auth) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return uc.store.Repos().Users.GetByID(ctx, userID)
}

// Logout revokes the caller's token until it would have expired anyway.
func (uc *Auth) Logout(ctx context.Context, p security.Principal) error {
	if uc.sessions == nil || p.TokenID == "" {
		return nil
	}
	return uc.sessions.Revoke(ctx, p.TokenID, p.ExpiresAt)
}

func (uc *Auth) issue(u *domain.User) (*Session, error) {
	tok, p, err := uc.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	return &Session{Token: tok, ExpiresAt: p.ExpiresAt, User: u}, nil
}
