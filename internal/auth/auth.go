// Package auth verifies Google sign-in tokens and registers contestants.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/idtoken"

	"github.com/verte-zerg/neontype/internal/model"
	"github.com/verte-zerg/neontype/internal/store"
)

// MinYearOfBirth is the earliest accepted birth year.
const MinYearOfBirth = 1940

var (
	// ErrInvalidToken is returned when a sign-in token fails verification.
	ErrInvalidToken = errors.New("invalid sign-in token")
	// ErrInvalidRegistration is returned for incomplete or out-of-range
	// registration data.
	ErrInvalidRegistration = errors.New("invalid registration")
)

// Identity is the verified subject of a sign-in token.
type Identity struct {
	Email string
	Name  string
}

// Verifier checks a sign-in token.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// GoogleVerifier validates Google ID tokens for one OAuth client.
type GoogleVerifier struct {
	ClientID string
}

// Verify implements Verifier.
func (g GoogleVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	if g.ClientID == "" {
		return Identity{}, fmt.Errorf("%w: google client id is not configured", ErrInvalidToken)
	}
	payload, err := idtoken.Validate(ctx, token, g.ClientID)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return Identity{}, fmt.Errorf("%w: token has no email claim", ErrInvalidToken)
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return Identity{}, fmt.Errorf("%w: email is not verified", ErrInvalidToken)
	}
	name, _ := payload.Claims["name"].(string)
	return Identity{Email: email, Name: name}, nil
}

// SignInResult is the outcome of a successful sign-in.
type SignInResult struct {
	IsNewUser bool       `json:"isNewUser"`
	User      model.User `json:"user"`
}

// Service signs users in and registers new ones.
type Service struct {
	verifier Verifier
	store    store.Store
	now      func() time.Time
}

// NewService creates a Service.
func NewService(v Verifier, st store.Store) *Service {
	return &Service{verifier: v, store: st, now: time.Now}
}

// SignIn verifies token and looks up the user. Unknown users are reported
// as new and are not persisted until they register.
func (s *Service) SignIn(ctx context.Context, token string) (SignInResult, error) {
	if strings.TrimSpace(token) == "" {
		return SignInResult{}, fmt.Errorf("%w: token is required", ErrInvalidToken)
	}
	id, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return SignInResult{}, err
	}
	email := strings.ToLower(strings.TrimSpace(id.Email))
	user, err := s.store.GetUser(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return SignInResult{IsNewUser: true, User: model.User{Email: email, Name: id.Name}}, nil
	}
	if err != nil {
		return SignInResult{}, fmt.Errorf("failed to look up user: %w", err)
	}
	return SignInResult{User: user}, nil
}

// Register validates and stores a user profile.
func (s *Service) Register(ctx context.Context, email, name string, yearOfBirth int) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	current := s.now().Year()
	switch {
	case email == "":
		return model.User{}, fmt.Errorf("%w: email is required", ErrInvalidRegistration)
	case name == "":
		return model.User{}, fmt.Errorf("%w: name is required", ErrInvalidRegistration)
	case yearOfBirth < MinYearOfBirth || yearOfBirth > current:
		return model.User{}, fmt.Errorf("%w: year of birth must be within %d..%d", ErrInvalidRegistration, MinYearOfBirth, current)
	}
	user, err := s.store.UpsertUser(ctx, model.User{
		Email:       email,
		Name:        name,
		YearOfBirth: yearOfBirth,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return model.User{}, fmt.Errorf("failed to save user: %w", err)
	}
	return user, nil
}
