package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Johnm75/Tienda/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Provider is the identity collaborator the services sign users in through.
type Provider interface {
	SignIn(ctx context.Context, cred Credential) (domain.UserHandle, error)
	SignUp(ctx context.Context, email, password string) (domain.UserHandle, error)
	DeleteUser(ctx context.Context, uid string) error
	IssueToken(u domain.UserHandle) (string, error)
	Authenticate(ctx context.Context, token string) (domain.UserHandle, error)
}

type Credential interface {
	credential()
}

type PasswordCredential struct {
	Email    string
	Password string
}

type GoogleCredential struct {
	IDToken string
}

func (PasswordCredential) credential() {}
func (GoogleCredential) credential()   {}

// CurrentUser returns the handle the auth middleware placed in ctx.
func CurrentUser(ctx context.Context) (domain.UserHandle, error) {
	u, ok := domain.UserFromContext(ctx)
	if !ok {
		return domain.UserHandle{}, &domain.AuthError{Op: "current user", Err: domain.ErrInvalidToken}
	}
	return u, nil
}

type LocalProvider struct {
	accounts   *AccountRepository
	tokens     *TokenIssuer
	google     GoogleTokenVerifier
	bcryptCost int
}

type Option func(*LocalProvider)

func WithGoogle(v GoogleTokenVerifier) Option {
	return func(p *LocalProvider) { p.google = v }
}

func WithBcryptCost(cost int) Option {
	return func(p *LocalProvider) { p.bcryptCost = cost }
}

func NewLocalProvider(accounts *AccountRepository, tokens *TokenIssuer, opts ...Option) *LocalProvider {
	p := &LocalProvider{
		accounts:   accounts,
		tokens:     tokens,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *LocalProvider) SignUp(ctx context.Context, email, password string) (domain.UserHandle, error) {
	email = normalizeEmail(email)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.bcryptCost)
	if err != nil {
		return domain.UserHandle{}, &domain.AuthError{Op: "sign up", Err: err}
	}

	a := account{UID: uuid.NewString(), Email: email}
	a.PasswordHash.String, a.PasswordHash.Valid = string(hash), true

	if err := p.accounts.create(ctx, a); err != nil {
		if errors.Is(err, errDuplicate) {
			return domain.UserHandle{}, &domain.AuthError{Op: "sign up", Err: domain.ErrEmailTaken}
		}
		return domain.UserHandle{}, &domain.AuthError{Op: "sign up", Err: err}
	}
	return domain.UserHandle{UID: a.UID, Email: a.Email}, nil
}

func (p *LocalProvider) SignIn(ctx context.Context, cred Credential) (domain.UserHandle, error) {
	switch c := cred.(type) {
	case PasswordCredential:
		return p.signInPassword(ctx, c)
	case GoogleCredential:
		return p.signInGoogle(ctx, c)
	default:
		return domain.UserHandle{}, &domain.AuthError{Op: "sign in", Err: fmt.Errorf("unsupported credential %T", cred)}
	}
}

func (p *LocalProvider) signInPassword(ctx context.Context, c PasswordCredential) (domain.UserHandle, error) {
	a, err := p.accounts.byEmail(ctx, normalizeEmail(c.Email))
	if errors.Is(err, errAccountNotFound) {
		return domain.UserHandle{}, &domain.AuthError{Op: "sign in", Err: domain.ErrInvalidCredentials}
	}
	if err != nil {
		return domain.UserHandle{}, &domain.AuthError{Op: "sign in", Err: err}
	}
	if !a.PasswordHash.Valid {
		return domain.UserHandle{}, &domain.AuthError{Op: "sign in", Err: domain.ErrInvalidCredentials}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash.String), []byte(c.Password)); err != nil {
		return domain.UserHandle{}, &domain.AuthError{Op: "sign in", Err: domain.ErrInvalidCredentials}
	}
	return domain.UserHandle{UID: a.UID, Email: a.Email}, nil
}

// signInGoogle links the Google subject to an existing account with the same
// email, or creates a password-less account on first sign-in.
func (p *LocalProvider) signInGoogle(ctx context.Context, c GoogleCredential) (domain.UserHandle, error) {
	if p.google == nil {
		return domain.UserHandle{}, &domain.AuthError{Op: "google sign in", Err: errors.New("google sign-in is not configured")}
	}
	id, err := p.google.Verify(ctx, c.IDToken)
	if err != nil {
		return domain.UserHandle{}, &domain.AuthError{Op: "google sign in", Err: err}
	}

	a, err := p.accounts.byGoogleSubject(ctx, id.Subject)
	if err == nil {
		return domain.UserHandle{UID: a.UID, Email: a.Email}, nil
	}
	if !errors.Is(err, errAccountNotFound) {
		return domain.UserHandle{}, &domain.AuthError{Op: "google sign in", Err: err}
	}

	email := normalizeEmail(id.Email)
	a, err = p.accounts.byEmail(ctx, email)
	switch {
	case err == nil:
		if !id.EmailVerified {
			return domain.UserHandle{}, &domain.AuthError{Op: "google sign in", Err: domain.ErrEmailTaken}
		}
		if err := p.accounts.linkGoogle(ctx, a.UID, id.Subject); err != nil {
			return domain.UserHandle{}, &domain.AuthError{Op: "google sign in", Err: err}
		}
		return domain.UserHandle{UID: a.UID, Email: a.Email}, nil
	case errors.Is(err, errAccountNotFound):
		created := account{UID: uuid.NewString(), Email: email}
		created.GoogleSub.String, created.GoogleSub.Valid = id.Subject, true
		if err := p.accounts.create(ctx, created); err != nil {
			return domain.UserHandle{}, &domain.AuthError{Op: "google sign in", Err: err}
		}
		return domain.UserHandle{UID: created.UID, Email: created.Email}, nil
	default:
		return domain.UserHandle{}, &domain.AuthError{Op: "google sign in", Err: err}
	}
}

func (p *LocalProvider) DeleteUser(ctx context.Context, uid string) error {
	if err := p.accounts.delete(ctx, uid); err != nil {
		if errors.Is(err, errAccountNotFound) {
			return &domain.AuthError{Op: "delete user", Err: domain.ErrUserNotFound}
		}
		return &domain.AuthError{Op: "delete user", Err: err}
	}
	return nil
}

func (p *LocalProvider) IssueToken(u domain.UserHandle) (string, error) {
	return p.tokens.Issue(u)
}

// Authenticate parses a session token and checks the account still exists,
// so tokens of deleted accounts stop working immediately.
func (p *LocalProvider) Authenticate(ctx context.Context, token string) (domain.UserHandle, error) {
	u, err := p.tokens.Parse(token)
	if err != nil {
		return domain.UserHandle{}, err
	}
	if _, err := p.accounts.byUID(ctx, u.UID); err != nil {
		if errors.Is(err, errAccountNotFound) {
			return domain.UserHandle{}, &domain.AuthError{Op: "authenticate", Err: domain.ErrUserNotFound}
		}
		return domain.UserHandle{}, &domain.AuthError{Op: "authenticate", Err: err}
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
