package main

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/uni-attendance-api/internal/models"
)

type adminStoreStub struct {
	users   map[string]*models.User
	created int
}

func (s *adminStoreStub) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := s.users[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (s *adminStoreStub) Create(_ context.Context, user *models.User) error {
	user.ID = "admin-1"
	s.users[user.Email] = user
	s.created++
	return nil
}

func TestBootstrapAdminIsIdempotent(t *testing.T) {
	store := &adminStoreStub{users: map[string]*models.User{}}

	require.NoError(t, bootstrapAdmin(context.Background(), store, " Registrar@Uni.edu ", "Registrar", "long-secret", zap.NewNop()))
	require.NoError(t, bootstrapAdmin(context.Background(), store, "registrar@uni.edu", "Registrar", "long-secret", zap.NewNop()))

	require.Equal(t, 1, store.created)
	admin := store.users["registrar@uni.edu"]
	require.NotNil(t, admin)
	require.Equal(t, models.RoleAdmin, admin.Role)
	require.True(t, admin.Active)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("long-secret")))
}

func TestBootstrapAdminRequiresPassword(t *testing.T) {
	store := &adminStoreStub{users: map[string]*models.User{}}
	require.Error(t, bootstrapAdmin(context.Background(), store, "registrar@uni.edu", "Registrar", "short", zap.NewNop()))
	require.Zero(t, store.created)
}
