package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tillpoint/tillpoint/internal/shared"
)

type memoryUsers struct {
	users  map[string]*User
	nextID int64
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: make(map[string]*User)}
}

func (r *memoryUsers) FindByEmail(ctx context.Context, email string) (*User, error) {
	u, ok := r.users[strings.ToLower(email)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (r *memoryUsers) Create(ctx context.Context, user User) (*User, error) {
	r.nextID++
	user.ID = r.nextID
	r.users[strings.ToLower(user.Email)] = &user
	return &user, nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, _ := newTestStore(t)
	return NewService(newMemoryUsers(), store)
}

func TestRegister(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, token, err := svc.Register(ctx, "Asha", "asha@example.com", "secret123")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, DefaultRole, user.Role)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret123")))

	identity, err := svc.tokens.Lookup(ctx, token)
	require.NoError(t, err)
	require.Equal(t, user.ID, identity.UserID)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "Asha", "asha@example.com", "secret123")
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, "Impostor", "asha@example.com", "other-pass")
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Equal(t, "Email already used", shared.UserSafeMessage(err))
}

func TestLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	registered, _, err := svc.Register(ctx, "Ravi", "ravi@example.com", "hunter22")
	require.NoError(t, err)

	user, token, err := svc.Login(ctx, "ravi@example.com", "hunter22")
	require.NoError(t, err)
	require.Equal(t, registered.ID, user.ID)
	require.NotEmpty(t, token)
}

func TestLoginFailuresAreUniform(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "Ravi", "ravi@example.com", "hunter22")
	require.NoError(t, err)

	_, _, wrongPass := svc.Login(ctx, "ravi@example.com", "wrong")
	require.ErrorIs(t, wrongPass, shared.ErrInvalidCredentials)

	_, _, noUser := svc.Login(ctx, "nobody@example.com", "hunter22")
	require.ErrorIs(t, noUser, shared.ErrInvalidCredentials)

	require.Equal(t, wrongPass.Error(), noUser.Error())
}
