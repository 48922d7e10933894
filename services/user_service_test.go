package services

import (
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"qurilish/database"
)

func newUserService(t *testing.T) *UserService {
	t.Helper()
	return NewUserService(database.NewDatabase(newTestDB(t)), zap.NewNop())
}

func TestUserService_CreateAndAuthenticate(t *testing.T) {
	svc := newUserService(t)

	user, err := svc.CreateUser(CreateUserRequest{
		FirstName: gofakeit.FirstName(),
		LastName:  gofakeit.LastName(),
		Email:     "  Manager@Qurilish.UZ ",
		Password:  "Parol#2025",
	})
	require.NoError(t, err)
	assert.Equal(t, "manager@qurilish.uz", user.Email)
	assert.NotEqual(t, "Parol#2025", user.Password)

	got, err := svc.Authenticate("manager@qurilish.uz", "Parol#2025")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate("manager@qurilish.uz", "noto'g'ri")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate("nobody@qurilish.uz", "Parol#2025")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserService_DuplicateEmail(t *testing.T) {
	svc := newUserService(t)

	req := CreateUserRequest{FirstName: "Aziz", LastName: "Karimov", Email: "aziz@example.com", Password: "Parol#2025"}
	_, err := svc.CreateUser(req)
	require.NoError(t, err)

	req.Email = "AZIZ@example.com"
	_, err = svc.CreateUser(req)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestUserService_GetUser(t *testing.T) {
	svc := newUserService(t)

	user, err := svc.CreateUser(CreateUserRequest{FirstName: "Aziz", LastName: "Karimov", Email: gofakeit.Email(), Password: "Parol#2025"})
	require.NoError(t, err)

	got, err := svc.GetUser(user.ID)
	require.NoError(t, err)
	resp := NewUserResponse(got)
	assert.Equal(t, user.Email, resp.Email)

	_, err = svc.GetUser(999)
	assert.ErrorIs(t, err, ErrNotFound)
}
