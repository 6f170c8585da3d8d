package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/neontype/internal/store"
)

type fakeVerifier struct {
	id  Identity
	err error
}

func (f fakeVerifier) Verify(context.Context, string) (Identity, error) {
	return f.id, f.err
}

func newService(t *testing.T, v Verifier) *Service {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	svc := NewService(v, st)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestSignInNewThenRegistered(t *testing.T) {
	svc := newService(t, fakeVerifier{id: Identity{Email: "Ann@Example.com", Name: "Ann G"}})
	ctx := context.Background()

	res, err := svc.SignIn(ctx, "token")
	require.NoError(t, err)
	assert.True(t, res.IsNewUser)
	assert.Equal(t, "ann@example.com", res.User.Email)
	assert.Equal(t, "Ann G", res.User.Name)

	_, err = svc.Register(ctx, "ann@example.com", "  Ann  ", 1990)
	require.NoError(t, err)

	res, err = svc.SignIn(ctx, "token")
	require.NoError(t, err)
	assert.False(t, res.IsNewUser)
	assert.Equal(t, "Ann", res.User.Name)
	assert.Equal(t, 1990, res.User.YearOfBirth)
}

func TestSignInRejectsBadToken(t *testing.T) {
	svc := newService(t, fakeVerifier{err: errors.Join(ErrInvalidToken, errors.New("expired"))})
	_, err := svc.SignIn(context.Background(), "token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.SignIn(context.Background(), " ")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRegisterValidation(t *testing.T) {
	svc := newService(t, fakeVerifier{})
	ctx := context.Background()

	cases := []struct {
		name  string
		email string
		user  string
		year  int
	}{
		{"blank name", "a@x.io", "   ", 1990},
		{"blank email", "", "Ann", 1990},
		{"too old", "a@x.io", "Ann", 1939},
		{"future", "a@x.io", "Ann", 2025},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.email, tc.user, tc.year)
			assert.ErrorIs(t, err, ErrInvalidRegistration)
		})
	}

	for _, year := range []int{1940, 2024} {
		_, err := svc.Register(ctx, "a@x.io", "Ann", year)
		assert.NoError(t, err, "year %d is in range", year)
	}
}

func TestGoogleVerifierRequiresClientID(t *testing.T) {
	_, err := GoogleVerifier{}.Verify(context.Background(), "token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
