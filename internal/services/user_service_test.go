package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"datalib/internal/models"
	"datalib/internal/repositories"
	"datalib/internal/services"
	"datalib/internal/testutil"
)

func TestUserService_CRUD(t *testing.T) {
	db := testutil.OpenDB(t)
	svc := services.NewUserService(db, testutil.NewRepos(db).Users)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, services.UserRequest{FullName: "User1", Email: "abc1@def.com"})
	require.NoError(t, err)

	fetched, err := svc.GetUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "abc1@def.com", fetched.Email)
	assert.False(t, fetched.IsAdmin)

	// Keeping one's own email is not a conflict.
	updated, err := svc.UpdateUser(ctx, created.ID, services.UserRequest{FullName: "User One", Email: "abc1@def.com"})
	require.NoError(t, err)
	assert.Equal(t, "User One", updated.FullName)

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	require.NoError(t, svc.DeleteUser(ctx, created.ID))
	_, err = svc.GetUser(ctx, created.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestUserService_EmailTaken(t *testing.T) {
	db := testutil.OpenDB(t)
	svc := services.NewUserService(db, testutil.NewRepos(db).Users)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, services.UserRequest{FullName: "User1", Email: "abc1@def.com"})
	require.NoError(t, err)
	second, err := svc.CreateUser(ctx, services.UserRequest{FullName: "User2", Email: "abc2@def.com"})
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, services.UserRequest{FullName: "Copycat", Email: "abc1@def.com"})
	assert.ErrorIs(t, err, services.ErrConflict)
	assert.EqualError(t, err, "User with Email=abc1@def.com already exists.")

	_, err = svc.UpdateUser(ctx, second.ID, services.UserRequest{FullName: "User2", Email: "abc1@def.com"})
	assert.ErrorIs(t, err, services.ErrConflict)
}

func TestUserService_Validation(t *testing.T) {
	db := testutil.OpenDB(t)
	svc := services.NewUserService(db, testutil.NewRepos(db).Users)
	ctx := context.Background()

	for _, req := range []services.UserRequest{
		{FullName: "", Email: "abc@def.com"},
		{FullName: "User", Email: ""},
		{FullName: "User", Email: "not an email"},
		{FullName: "User", Email: "abc@"},
	} {
		_, err := svc.CreateUser(ctx, req)
		assert.ErrorIs(t, err, services.ErrValidation, "request %+v", req)
	}

	err := svc.DeleteUser(ctx, uuid.New())
	assert.ErrorIs(t, err, services.ErrNotFound)
}

// racingUserRepository behaves as if another request took the email between
// the uniqueness check and the write.
type racingUserRepository struct {
	repositories.UserRepository
}

func (racingUserRepository) Update(*gorm.DB, *models.User) error {
	return gorm.ErrDuplicatedKey
}

func TestUserService_UpdateLosesEmailRace(t *testing.T) {
	db := testutil.OpenDB(t)
	users := testutil.NewRepos(db).Users
	svc := services.NewUserService(db, racingUserRepository{UserRepository: users})
	user := testutil.CreateUser(t, db, "User1", "abc1@def.com")

	_, err := svc.UpdateUser(context.Background(), user.ID, services.UserRequest{FullName: "User1", Email: "abc9@def.com"})

	assert.ErrorIs(t, err, services.ErrConflict)
	assert.EqualError(t, err, "User with Email=abc9@def.com already exists.")
}
