package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Johnm75/Tienda/internal/docstore"
	"github.com/Johnm75/Tienda/internal/domain"
	"github.com/Johnm75/Tienda/internal/gate"
	"github.com/Johnm75/Tienda/internal/identity"
	"github.com/Johnm75/Tienda/internal/orders"
	"github.com/Johnm75/Tienda/pkg/logger"
	"go.uber.org/zap"
)

const minPasswordLength = 6

// An open deletion confirmation older than this is dropped and reads as
// hidden again.
const deletionGateTTL = 10 * time.Minute

type RegisterInput struct {
	Name     string `json:"name"`
	Age      string `json:"age"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileUpdate carries the editable profile fields; nil means unchanged.
type ProfileUpdate struct {
	Name             *string `json:"name"`
	Age              *string `json:"age"`
	Phone            *string `json:"phone"`
	ProfileImagePath *string `json:"profile_image_path"`
}

type Session struct {
	Token       string            `json:"token"`
	User        domain.UserHandle `json:"user"`
	DisplayName string            `json:"display_name"`
}

type AccountService struct {
	identity identity.Provider
	docs     docstore.Store
	carts    *CartService
	history  orders.History
	gateOpts []gate.Option
	log      *zap.Logger

	mu      sync.Mutex
	gates   map[string]*gateEntry
	gateTTL time.Duration
	now     func() time.Time
}

type gateEntry struct {
	g      *gate.Gate
	opened time.Time
}

func NewAccountService(
	provider identity.Provider,
	docs docstore.Store,
	carts *CartService,
	history orders.History,
	log *zap.Logger,
	gateOpts ...gate.Option,
) *AccountService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountService{
		identity: provider,
		docs:     docs,
		carts:    carts,
		history:  history,
		gateOpts: gateOpts,
		log:      log,
		gates:    make(map[string]*gateEntry),
		gateTTL:  deletionGateTTL,
		now:      time.Now,
	}
}

func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	user, err := s.identity.SignUp(ctx, in.Email, in.Password)
	if err != nil {
		return nil, err
	}

	profile := domain.Profile{
		Name:  strings.TrimSpace(in.Name),
		Age:   strings.TrimSpace(in.Age),
		Phone: strings.TrimSpace(in.Phone),
		Email: user.Email,
	}
	if err := s.docs.Set(ctx, domain.UsersCollection, user.UID, profile.Fields()); err != nil {
		// an account without its profile is unusable; undo the sign up
		if delErr := s.identity.DeleteUser(ctx, user.UID); delErr != nil {
			logger.FromContext(ctx, s.log).Error("failed to roll back account",
				zap.String("user_id", user.UID), zap.Error(delErr))
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}

	return s.session(user, profile.Name)
}

func (s *AccountService) Login(ctx context.Context, email, password string) (*Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, &domain.ValidationError{Field: "email", Reason: "and password are required"}
	}

	user, err := s.identity.SignIn(ctx, identity.PasswordCredential{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return s.session(user, s.displayName(ctx, user))
}

// LoginWithGoogle signs in with a Google ID token, creating the profile
// document on first sign-in.
func (s *AccountService) LoginWithGoogle(ctx context.Context, idToken string) (*Session, error) {
	if idToken == "" {
		return nil, &domain.ValidationError{Field: "id_token", Reason: "is required"}
	}

	user, err := s.identity.SignIn(ctx, identity.GoogleCredential{IDToken: idToken})
	if err != nil {
		return nil, err
	}

	_, err = s.docs.Get(ctx, domain.UsersCollection, user.UID)
	if errors.Is(err, docstore.ErrNotFound) {
		profile := domain.Profile{Email: user.Email}
		if err := s.docs.Set(ctx, domain.UsersCollection, user.UID, profile.Fields()); err != nil {
			return nil, fmt.Errorf("create profile: %w", err)
		}
	} else if err != nil {
		return nil, err
	}

	return s.session(user, s.displayName(ctx, user))
}

// Logout ends the shopping session: the session cart and any open deletion
// confirmation are dropped.
func (s *AccountService) Logout(ctx context.Context, userID string) error {
	s.CancelDeletion(userID)
	return s.carts.ClearCart(ctx, userID)
}

func (s *AccountService) Profile(ctx context.Context, userID string) (domain.Profile, error) {
	doc, err := s.docs.Get(ctx, domain.UsersCollection, userID)
	if errors.Is(err, docstore.ErrNotFound) {
		return domain.Profile{}, ErrProfileNotFound
	}
	if err != nil {
		return domain.Profile{}, err
	}
	return domain.ProfileFromFields(doc), nil
}

func (s *AccountService) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (domain.Profile, error) {
	fields, err := profileUpdateFields(in)
	if err != nil {
		return domain.Profile{}, err
	}
	if len(fields) > 0 {
		err := s.docs.Update(ctx, domain.UsersCollection, userID, fields)
		if errors.Is(err, docstore.ErrNotFound) {
			return domain.Profile{}, ErrProfileNotFound
		}
		if err != nil {
			return domain.Profile{}, err
		}
	}
	return s.Profile(ctx, userID)
}

// OpenDeletion shows the deletion confirmation and starts its countdown.
func (s *AccountService) OpenDeletion(userID string) gate.Status {
	g := s.gate(userID, true)
	g.Open()
	return g.Status()
}

func (s *AccountService) DeletionStatus(userID string) gate.Status {
	g := s.gate(userID, false)
	if g == nil {
		return gate.New(s.gateOpts...).Status()
	}
	return g.Status()
}

func (s *AccountService) CancelDeletion(userID string) {
	s.mu.Lock()
	e, ok := s.gates[userID]
	delete(s.gates, userID)
	s.mu.Unlock()
	if ok {
		e.g.Cancel()
	}
}

// ConfirmDeletion deletes the account once the countdown has run out. The
// profile document goes first, then the identity, then session data. A failure
// leaves the confirmation armed.
func (s *AccountService) ConfirmDeletion(ctx context.Context, userID string) error {
	g := s.gate(userID, false)
	if g == nil {
		return gate.ErrNotOpen
	}

	err := g.Confirm(ctx, func(ctx context.Context) error {
		return s.deleteAccount(ctx, userID)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	if e, ok := s.gates[userID]; ok && e.g == g {
		delete(s.gates, userID)
	}
	s.mu.Unlock()

	logger.FromContext(ctx, s.log).Info("account deleted", zap.String("user_id", userID))
	return nil
}

func (s *AccountService) deleteAccount(ctx context.Context, userID string) error {
	err := s.docs.Delete(ctx, domain.UsersCollection, userID)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("delete profile: %w", err)
	}

	if err := s.identity.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}

	log := logger.FromContext(ctx, s.log)
	if err := s.carts.ClearCart(ctx, userID); err != nil {
		log.Warn("session cart left to expire", zap.String("user_id", userID), zap.Error(err))
	}
	if s.history != nil {
		if err := s.history.DeleteByUser(ctx, userID); err != nil {
			log.Error("failed to delete purchase history", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return nil
}

// gate returns the user's open confirmation, creating it when asked. Expired
// entries of every user are cancelled and dropped on the way.
func (s *AccountService) gate(userID string, create bool) *gate.Gate {
	s.mu.Lock()
	now := s.now()
	var expired []*gate.Gate
	for uid, e := range s.gates {
		if now.Sub(e.opened) >= s.gateTTL {
			expired = append(expired, e.g)
			delete(s.gates, uid)
		}
	}

	e, ok := s.gates[userID]
	if !ok && create {
		e = &gateEntry{g: gate.New(s.gateOpts...)}
		s.gates[userID] = e
		ok = true
	}
	if create {
		e.opened = now
	}
	s.mu.Unlock()

	for _, g := range expired {
		g.Cancel()
	}
	if !ok {
		return nil
	}
	return e.g
}

func (s *AccountService) session(user domain.UserHandle, displayName string) (*Session, error) {
	token, err := s.identity.IssueToken(user)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user, DisplayName: displayName}, nil
}

// displayName falls back to the email when the profile has no name.
func (s *AccountService) displayName(ctx context.Context, user domain.UserHandle) string {
	p, err := s.Profile(ctx, user.UID)
	if err != nil {
		if !errors.Is(err, ErrProfileNotFound) {
			logger.FromContext(ctx, s.log).Warn("profile lookup failed", zap.String("user_id", user.UID), zap.Error(err))
		}
		return user.Email
	}
	if p.Name == "" {
		return user.Email
	}
	return p.Name
}

func validateRegistration(in RegisterInput) error {
	required := []struct{ field, value string }{
		{"name", in.Name},
		{"age", in.Age},
		{"phone", in.Phone},
		{"email", in.Email},
		{"password", in.Password},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &domain.ValidationError{Field: r.field, Reason: "is required"}
		}
	}
	if !strings.Contains(in.Email, "@") {
		return &domain.ValidationError{Field: "email", Reason: "is not a valid address"}
	}
	if len(in.Password) < minPasswordLength {
		return &domain.ValidationError{Field: "password", Reason: fmt.Sprintf("must be at least %d characters", minPasswordLength)}
	}
	return validateAge(in.Age)
}

func validateAge(age string) error {
	n, err := strconv.Atoi(strings.TrimSpace(age))
	if err != nil || n < 0 || n > 150 {
		return &domain.ValidationError{Field: "age", Reason: "must be a number"}
	}
	return nil
}

func profileUpdateFields(in ProfileUpdate) (docstore.Document, error) {
	fields := docstore.Document{}
	set := func(key, field string, v *string) error {
		if v == nil {
			return nil
		}
		trimmed := strings.TrimSpace(*v)
		if trimmed == "" {
			return &domain.ValidationError{Field: field, Reason: "cannot be empty"}
		}
		fields[key] = trimmed
		return nil
	}

	if err := set("name", "name", in.Name); err != nil {
		return nil, err
	}
	if in.Age != nil {
		if err := validateAge(*in.Age); err != nil {
			return nil, err
		}
	}
	if err := set("age", "age", in.Age); err != nil {
		return nil, err
	}
	if err := set("phone", "phone", in.Phone); err != nil {
		return nil, err
	}
	if err := set("profileImagePath", "profile_image_path", in.ProfileImagePath); err != nil {
		return nil, err
	}
	return fields, nil
}
