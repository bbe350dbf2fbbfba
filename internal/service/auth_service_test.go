package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/scriptgrade/scriptgrade-api/internal/dto"
	"github.com/scriptgrade/scriptgrade-api/internal/models"
)

type fakeUserRepo struct {
	users map[string]models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]models.User)}
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uint) (models.User, error) {
	for _, user := range f.users {
		if user.ID == id {
			return user, nil
		}
	}
	return models.User{}, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (models.User, error) {
	user, ok := f.users[username]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	user.ID = uint(len(f.users) + 1)
	f.users[user.Username] = *user
	return nil
}

type fakeClassRepo struct {
	classes []models.Class
}

func (f *fakeClassRepo) List(_ context.Context) ([]models.Class, error) {
	return f.classes, nil
}

func (f *fakeClassRepo) Create(_ context.Context, class *models.Class) error {
	class.ID = uint(len(f.classes) + 1)
	f.classes = append(f.classes, *class)
	return nil
}

func TestAuthRegisterAndLogin(t *testing.T) {
	users := newFakeUserRepo()
	svc := NewAuthService(users, &fakeClassRepo{}, "test-secret", 30*time.Minute, testLogger())

	registered, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username: "alice",
		Password: "correct horse battery",
		Role:     models.RoleStudent,
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleStudent, registered.Role)

	login, err := svc.Login(context.Background(), dto.LoginRequest{Username: "alice", Password: "correct horse battery"})
	require.NoError(t, err)
	require.Equal(t, registered.ID, login.UserID)

	token, err := jwt.ParseWithClaims(login.Token, &dto.TokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)
	claims := token.Claims.(*dto.TokenClaims)
	require.Equal(t, models.RoleStudent, claims.Role)
	require.Equal(t, strconv.FormatUint(uint64(registered.ID), 10), claims.Subject)
}

func TestAuthLoginRejectsBadPassword(t *testing.T) {
	users := newFakeUserRepo()
	svc := NewAuthService(users, &fakeClassRepo{}, "test-secret", 30*time.Minute, testLogger())

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username: "bob",
		Password: "password123",
		Role:     models.RoleTeacher,
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), dto.LoginRequest{Username: "bob", Password: "wrong"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), dto.LoginRequest{Username: "nobody", Password: "password123"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthRegisterDuplicateUsername(t *testing.T) {
	users := newFakeUserRepo()
	svc := NewAuthService(users, &fakeClassRepo{}, "test-secret", 30*time.Minute, testLogger())

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username: "carol",
		Password: "password123",
		Role:     models.RoleStudent,
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), dto.RegisterRequest{
		Username: "carol",
		Password: "password456",
		Role:     models.RoleStudent,
	})
	require.ErrorIs(t, err, ErrUsernameTaken)
}
